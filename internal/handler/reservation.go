package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/service"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// reservationService is the lifecycle and projection surface the
// handler delegates to.
type reservationService interface {
	Create(ctx context.Context, cc utils.CallContext, creatorID uint64, in service.ReservationInput) (service.ReservationView, error)
	Update(ctx context.Context, cc utils.CallContext, actorID, id uint64, in service.ReservationInput) (service.ReservationView, error)
	Delete(ctx context.Context, cc utils.CallContext, actorID, id uint64) error
	Get(ctx context.Context, id uint64) (service.ReservationView, error)
	ListAll(ctx context.Context) ([]service.ReservationView, error)
	ListByDate(ctx context.Context, date time.Time) ([]service.ReservationView, error)
	ListFuture(ctx context.Context) ([]service.ReservationView, error)
	ListAvailable(ctx context.Context) ([]service.ReservationView, error)
	Applicants(ctx context.Context, reservationID uint64) ([]service.ApplicantView, error)
}

// ReservationHandler serves the reservation lifecycle and read
// endpoints.
type ReservationHandler struct {
	Reservations reservationService
}

func NewReservationHandler(reservations reservationService) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations}
}

// Create makes a reservation and auto-confirms the creator.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	var req service.ReservationInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	view, err := h.Reservations.Create(c.Request().Context(), callCtx(c), actor, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// Get returns one reservation with live counts.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	view, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// List returns every reservation ordered by date.
func (h *ReservationHandler) List(c echo.Context) error {
	views, err := h.Reservations.ListAll(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// ByDate returns reservations on one yyyy-MM-dd date.
func (h *ReservationHandler) ByDate(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "date must be yyyy-MM-dd")
	}
	views, err := h.Reservations.ListByDate(c.Request().Context(), date)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Future returns reservations dated after today.
func (h *ReservationHandler) Future(c echo.Context) error {
	views, err := h.Reservations.ListFuture(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Available returns reservations with free confirmed slots.
func (h *ReservationHandler) Available(c echo.Context) error {
	views, err := h.Reservations.ListAvailable(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Applicants returns every application of a reservation in applied_at
// order.
func (h *ReservationHandler) Applicants(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	views, err := h.Reservations.Applicants(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Update overwrites a reservation. Creator or admin only; a capacity
// increase promotes waiters.
func (h *ReservationHandler) Update(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	var req service.ReservationInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	view, err := h.Reservations.Update(c.Request().Context(), callCtx(c), actor, id, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Delete removes a reservation and its applications. Creator or admin
// only.
func (h *ReservationHandler) Delete(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Reservations.Delete(c.Request().Context(), callCtx(c), actor, id); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
