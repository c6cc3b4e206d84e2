package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/middleware"
	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// applicationEngine is the slice of the engine the handler drives. All
// status decisions happen behind it, under the reservation lock.
type applicationEngine interface {
	Apply(ctx context.Context, cc utils.CallContext, memberID, reservationID uint64, note string) (model.Application, error)
	Cancel(ctx context.Context, cc utils.CallContext, applicationID uint64) error
	SetStatus(ctx context.Context, cc utils.CallContext, applicationID uint64, newStatus model.ApplicationStatus) (model.Application, error)
}

// applicationStore covers the read-side queries the handler issues
// outside the engine.
type applicationStore interface {
	FindByID(ctx context.Context, id uint64) (model.Application, error)
	ListByMember(ctx context.Context, memberID uint64) ([]model.Application, error)
	ListByReservation(ctx context.Context, reservationID uint64) ([]model.Application, error)
}

type memberFinder interface {
	FindByID(ctx context.Context, id uint64) (model.Member, error)
}

type reservationFinder interface {
	FindByID(ctx context.Context, id uint64) (model.Reservation, error)
}

// ApplicationHandler serves the application endpoints. All writes go
// through the engine, which is the only component allowed to decide or
// change an application status.
type ApplicationHandler struct {
	Engine       applicationEngine
	Applications applicationStore
	Members      memberFinder
	Reservations reservationFinder
}

func NewApplicationHandler(engine applicationEngine, applications applicationStore,
	members memberFinder, reservations reservationFinder) *ApplicationHandler {
	return &ApplicationHandler{
		Engine:       engine,
		Applications: applications,
		Members:      members,
		Reservations: reservations,
	}
}

type applyReq struct {
	ReservationID uint64 `json:"reservation_id"`
	Note          string `json:"note"`
}

type applicationResp struct {
	ID            uint64    `json:"id"`
	MemberID      uint64    `json:"member_id"`
	ReservationID uint64    `json:"reservation_id"`
	Status        string    `json:"status"`
	Note          *string   `json:"note,omitempty"`
	AppliedAt     time.Time `json:"applied_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toApplicationResp(a model.Application) applicationResp {
	return applicationResp{
		ID:            a.ID,
		MemberID:      a.MemberID,
		ReservationID: a.ReservationID,
		Status:        string(a.Status),
		Note:          a.Note,
		AppliedAt:     a.AppliedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toApplicationResps(as []model.Application) []applicationResp {
	out := make([]applicationResp, 0, len(as))
	for _, a := range as {
		out = append(out, toApplicationResp(a))
	}
	return out
}

// Apply registers the authenticated member for a reservation. The
// engine decides CONFIRMED vs WAITING under the reservation lock.
func (h *ApplicationHandler) Apply(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	var req applyReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return writeError(c, http.StatusBadRequest, "reservation_id required")
	}
	a, err := h.Engine.Apply(c.Request().Context(), callCtx(c), actor, req.ReservationID, req.Note)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toApplicationResp(a))
}

// Cancel sets an application to CANCELLED. Members cancel their own;
// administrators may cancel any.
func (h *ApplicationHandler) Cancel(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	a, err := h.Applications.FindByID(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	grade, _ := c.Get(middleware.CtxGrade).(string)
	if a.MemberID != actor && !model.Grade(grade).IsAdmin() {
		return writeError(c, http.StatusForbidden, "access denied")
	}
	if err := h.Engine.Cancel(c.Request().Context(), callCtx(c), id); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus is the administrator override for an application status.
func (h *ApplicationHandler) SetStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	status, ok := model.ParseApplicationStatus(c.QueryParam("status"))
	if !ok {
		return writeError(c, http.StatusBadRequest, "status must be CONFIRMED, WAITING or CANCELLED")
	}
	a, err := h.Engine.SetStatus(c.Request().Context(), callCtx(c), id, status)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toApplicationResp(a))
}

// ByMember lists a member's applications. Members see their own;
// administrators see anyone's. An unknown member id is a 404, not an
// empty list.
func (h *ApplicationHandler) ByMember(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	grade, _ := c.Get(middleware.CtxGrade).(string)
	if id != actor && !model.Grade(grade).IsAdmin() {
		return writeError(c, http.StatusForbidden, "access denied")
	}
	if _, err := h.Members.FindByID(c.Request().Context(), id); err != nil {
		return mapError(c, err)
	}
	as, err := h.Applications.ListByMember(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toApplicationResps(as))
}

// ByReservation lists every application of a reservation in raw form;
// the richer applicant view lives on the reservation endpoints. An
// unknown reservation id is a 404.
func (h *ApplicationHandler) ByReservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if _, err := h.Reservations.FindByID(c.Request().Context(), id); err != nil {
		return mapError(c, err)
	}
	as, err := h.Applications.ListByReservation(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toApplicationResps(as))
}
