package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlyi/reservation-backend/internal/middleware"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/service"
)

func testContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMapErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{repository.ErrMemberNotFound, http.StatusNotFound},
		{repository.ErrReservationNotFound, http.StatusNotFound},
		{repository.ErrApplicationNotFound, http.StatusNotFound},
		{repository.ErrLocationNotFound, http.StatusNotFound},
		{repository.ErrLoginIDExists, http.StatusConflict},
		{repository.ErrDuplicateApplication, http.StatusConflict},
		{repository.ErrAlreadyCancelled, http.StatusConflict},
		{repository.ErrCapacityExceeded, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrLocationInUse, http.StatusConflict},
		{repository.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := testContext(t)
		require.NoError(t, mapError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)

		body := decodeError(t, rec)
		assert.Equal(t, tc.status, body.Status)
		assert.NotEmpty(t, body.Timestamp)
	}
}

func TestMapErrorValidation(t *testing.T) {
	c, rec := testContext(t)
	verr := &service.ValidationError{Fields: map[string]string{"title": "too short"}}
	require.NoError(t, mapError(c, verr))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "too short", body.Errors["title"])
	assert.Equal(t, "validation failed", body.Message)
}

func TestPathID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")

	id, err := pathID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	c.SetParamValues("abc")
	_, err = pathID(c, "id")
	assert.Error(t, err)

	c.SetParamValues("0")
	_, err = pathID(c, "id")
	assert.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=3&size=oops", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, 3, queryInt(c, "page", 0))
	assert.Equal(t, 20, queryInt(c, "size", 20))
	assert.Equal(t, 7, queryInt(c, "missing", 7))
}

func TestCallCtxCarriesActor(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set("User-Agent", "test-agent")
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(middleware.CtxMemberID, uint64(7))
	c.Set(middleware.CtxLoginID, "egg_user")
	c.Set(middleware.CtxGrade, "ROOSTER")

	cc := callCtx(c)
	assert.Equal(t, uint64(7), cc.ActorID)
	assert.Equal(t, "egg_user", cc.ActorLoginID)
	assert.True(t, cc.IsAdmin())
	assert.Equal(t, http.MethodPost, cc.HTTPMethod)
	assert.Equal(t, "test-agent", cc.UserAgent)
	assert.NotEmpty(t, cc.CorrelationID)
}
