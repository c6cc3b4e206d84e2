package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const testSecret = "unit-test-secret"

func runProtected(t *testing.T, authHeader string, extra ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// JWTAuth runs first, then the extras, then the handler.
	inner := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(extra) - 1; i >= 0; i-- {
		inner = extra[i](inner)
	}
	require.NoError(t, JWTAuth(testSecret)(inner)(c))
	return rec, c
}

func bearerFor(t *testing.T, memberID uint64, loginID string, grade model.Grade) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, memberID, loginID, grade, 1)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	rec, c := runProtected(t, bearerFor(t, 7, "egg_user", model.GradeEgg))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), c.Get(CtxMemberID))
	assert.Equal(t, "egg_user", c.Get(CtxLoginID))
	assert.Equal(t, "EGG", c.Get(CtxGrade))
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := runProtected(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	assert.Equal(t, http.StatusText(http.StatusUnauthorized), body.Error)
	assert.Equal(t, "missing bearer token", body.Message)
	assert.NotEmpty(t, body.Timestamp)
}

func TestJWTAuthRejectsGarbageToken(t *testing.T) {
	rec, _ := runProtected(t, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	assert.Equal(t, "invalid token", body.Message)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, "egg_user", model.GradeEgg, 1)
	require.NoError(t, err)
	rec, _ := runProtected(t, "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminAllowsRooster(t *testing.T) {
	rec, _ := runProtected(t, bearerFor(t, 1, "admin", model.GradeRooster), RequireAdmin())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminRejectsOtherGrades(t *testing.T) {
	rec, _ := runProtected(t, bearerFor(t, 2, "egg_user", model.GradeEgg), RequireAdmin())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusForbidden, body.Status)
	assert.Equal(t, "administrator access required", body.Message)
	assert.NotEmpty(t, body.Timestamp)
}

func TestRateLimitPassesThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	require.NoError(t, RateLimit(nil, 10, 0)(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
