package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlyi/reservation-backend/internal/middleware"
	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

type stubEngine struct {
	cancelErr error
	cancelled []uint64
}

func (s *stubEngine) Apply(_ context.Context, _ utils.CallContext, memberID, reservationID uint64, _ string) (model.Application, error) {
	return model.Application{MemberID: memberID, ReservationID: reservationID, Status: model.StatusConfirmed}, nil
}

func (s *stubEngine) Cancel(_ context.Context, _ utils.CallContext, applicationID uint64) error {
	s.cancelled = append(s.cancelled, applicationID)
	return s.cancelErr
}

func (s *stubEngine) SetStatus(_ context.Context, _ utils.CallContext, applicationID uint64, newStatus model.ApplicationStatus) (model.Application, error) {
	return model.Application{ID: applicationID, Status: newStatus}, nil
}

type stubApplications struct {
	apps map[uint64]model.Application
}

func (s *stubApplications) FindByID(_ context.Context, id uint64) (model.Application, error) {
	a, ok := s.apps[id]
	if !ok {
		return model.Application{}, repository.ErrApplicationNotFound
	}
	return a, nil
}

func (s *stubApplications) ListByMember(_ context.Context, memberID uint64) ([]model.Application, error) {
	out := make([]model.Application, 0)
	for _, a := range s.apps {
		if a.MemberID == memberID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApplications) ListByReservation(_ context.Context, reservationID uint64) ([]model.Application, error) {
	out := make([]model.Application, 0)
	for _, a := range s.apps {
		if a.ReservationID == reservationID {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubMembers struct {
	members map[uint64]model.Member
}

func (s *stubMembers) FindByID(_ context.Context, id uint64) (model.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, repository.ErrMemberNotFound
	}
	return m, nil
}

type stubReservations struct {
	reservations map[uint64]model.Reservation
}

func (s *stubReservations) FindByID(_ context.Context, id uint64) (model.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrReservationNotFound
	}
	return r, nil
}

func newApplicationHandlerForTest(engine *stubEngine, apps *stubApplications,
	members *stubMembers, reservations *stubReservations) *ApplicationHandler {
	if apps == nil {
		apps = &stubApplications{apps: map[uint64]model.Application{}}
	}
	if members == nil {
		members = &stubMembers{members: map[uint64]model.Member{}}
	}
	if reservations == nil {
		reservations = &stubReservations{reservations: map[uint64]model.Reservation{}}
	}
	return NewApplicationHandler(engine, apps, members, reservations)
}

// authedContext builds a request context carrying the claims JWTAuth
// would have injected, with :id bound to the given value.
func authedContext(t *testing.T, actor uint64, grade model.Grade, id string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := testContext(t)
	c.Set(middleware.CtxMemberID, actor)
	c.Set(middleware.CtxLoginID, "tester")
	c.Set(middleware.CtxGrade, string(grade))
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestCancelApplicationReturnsNoContent(t *testing.T) {
	engine := &stubEngine{}
	apps := &stubApplications{apps: map[uint64]model.Application{
		5: {ID: 5, MemberID: 7, ReservationID: 3, Status: model.StatusConfirmed, AppliedAt: time.Now()},
	}}
	h := newApplicationHandlerForTest(engine, apps, nil, nil)

	c, rec := authedContext(t, 7, model.GradeEgg, "5")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []uint64{5}, engine.cancelled)
}

func TestCancelApplicationForbiddenForOtherMember(t *testing.T) {
	engine := &stubEngine{}
	apps := &stubApplications{apps: map[uint64]model.Application{
		5: {ID: 5, MemberID: 7, ReservationID: 3, Status: model.StatusConfirmed},
	}}
	h := newApplicationHandlerForTest(engine, apps, nil, nil)

	c, rec := authedContext(t, 8, model.GradeEgg, "5")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, engine.cancelled)
}

func TestApplicationsByMemberUnknownMemberIsNotFound(t *testing.T) {
	h := newApplicationHandlerForTest(&stubEngine{}, nil, nil, nil)

	c, rec := authedContext(t, 1, model.GradeRooster, "99")
	require.NoError(t, h.ByMember(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestApplicationsByMemberListsExistingMember(t *testing.T) {
	apps := &stubApplications{apps: map[uint64]model.Application{
		5: {ID: 5, MemberID: 7, ReservationID: 3, Status: model.StatusWaiting},
	}}
	members := &stubMembers{members: map[uint64]model.Member{
		7: {ID: 7, LoginID: "egg_user", Grade: model.GradeEgg},
	}}
	h := newApplicationHandlerForTest(&stubEngine{}, apps, members, nil)

	c, rec := authedContext(t, 7, model.GradeEgg, "7")
	require.NoError(t, h.ByMember(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"WAITING"`)
}

func TestApplicationsByReservationUnknownReservationIsNotFound(t *testing.T) {
	h := newApplicationHandlerForTest(&stubEngine{}, nil, nil, nil)

	c, rec := authedContext(t, 1, model.GradeEgg, "99")
	require.NoError(t, h.ByReservation(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, http.StatusNotFound, body.Status)
}
