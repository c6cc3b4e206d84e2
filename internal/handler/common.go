// Package handler defines the HTTP handlers. Handlers bind and shape
// requests, delegate to the service layer and translate errors into
// the JSON error envelope; they never touch SQL directly.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/friendlyi/reservation-backend/internal/middleware"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/service"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// errorBody is the uniform error envelope of every non-2xx response,
// shared with the middleware so pre-routing rejections look the same.
type errorBody = middleware.ErrorBody

func writeError(c echo.Context, status int, message string) error {
	return middleware.ErrorJSON(c, status, message)
}

// mapError translates service and repository errors into HTTP
// responses. Unknown errors become an opaque 500 after logging.
func mapError(c echo.Context, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, errorBody{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Status:    http.StatusBadRequest,
			Error:     http.StatusText(http.StatusBadRequest),
			Message:   "validation failed",
			Errors:    verr.Fields,
		})
	}
	switch {
	case errors.Is(err, repository.ErrMemberNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrApplicationNotFound),
		errors.Is(err, repository.ErrLocationNotFound):
		return writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrLoginIDExists),
		errors.Is(err, repository.ErrLocationNameExists),
		errors.Is(err, repository.ErrDuplicateApplication),
		errors.Is(err, repository.ErrAlreadyCancelled),
		errors.Is(err, repository.ErrLocationInUse),
		errors.Is(err, repository.ErrCapacityExceeded),
		errors.Is(err, repository.ErrConflict):
		return writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrForbidden):
		return writeError(c, http.StatusForbidden, "access denied")
	default:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
		return writeError(c, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// actorID returns the authenticated member id injected by JWTAuth.
func actorID(c echo.Context) (uint64, error) {
	id, ok := c.Get(middleware.CtxMemberID).(uint64)
	if !ok || id == 0 {
		return 0, errors.New("missing authenticated member")
	}
	return id, nil
}

// callCtx builds the request-scoped CallContext handed down to the
// services and the activity logger.
func callCtx(c echo.Context) utils.CallContext {
	cc := utils.NewCallContext()
	if id, ok := c.Get(middleware.CtxMemberID).(uint64); ok {
		cc.ActorID = id
	}
	if login, ok := c.Get(middleware.CtxLoginID).(string); ok {
		cc.ActorLoginID = login
	}
	if grade, ok := c.Get(middleware.CtxGrade).(string); ok {
		cc.ActorGrade = grade
	}
	cc.RemoteAddr = c.RealIP()
	cc.UserAgent = c.Request().UserAgent()
	cc.RequestURI = c.Request().RequestURI
	cc.HTTPMethod = c.Request().Method
	return cc
}
