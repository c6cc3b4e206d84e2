package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/service"
)

// ActivityLogHandler serves the admin activity log endpoints.
type ActivityLogHandler struct {
	Activity *service.ActivityLogger
}

func NewActivityLogHandler(activity *service.ActivityLogger) *ActivityLogHandler {
	return &ActivityLogHandler{Activity: activity}
}

type activityLogResp struct {
	ID            uint64    `json:"id"`
	MemberID      uint64    `json:"member_id"`
	MemberLoginID string    `json:"member_login_id"`
	ActivityType  string    `json:"activity_type"`
	Description   string    `json:"description"`
	IPAddress     string    `json:"ip_address"`
	RequestURI    string    `json:"request_uri"`
	HTTPMethod    string    `json:"http_method"`
	CreatedAt     time.Time `json:"created_at"`
}

func toActivityLogResps(ls []model.ActivityLog) []activityLogResp {
	out := make([]activityLogResp, 0, len(ls))
	for _, l := range ls {
		out = append(out, activityLogResp{
			ID:            l.ID,
			MemberID:      l.MemberID,
			MemberLoginID: l.MemberLoginID,
			ActivityType:  string(l.ActivityType),
			Description:   l.Description,
			IPAddress:     l.IPAddress,
			RequestURI:    l.RequestURI,
			HTTPMethod:    l.HTTPMethod,
			CreatedAt:     l.CreatedAt,
		})
	}
	return out
}

// Recent returns one page of records, newest first.
func (h *ActivityLogHandler) Recent(c echo.Context) error {
	ls, err := h.Activity.Recent(c.Request().Context(), queryInt(c, "page", 0), queryInt(c, "size", 20))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toActivityLogResps(ls))
}

// ByMember returns a member's records, newest first.
func (h *ActivityLogHandler) ByMember(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	ls, err := h.Activity.ByMember(c.Request().Context(), id, queryInt(c, "page", 0), queryInt(c, "size", 20))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toActivityLogResps(ls))
}

// ByType returns records of one activity type, newest first.
func (h *ActivityLogHandler) ByType(c echo.Context) error {
	t := model.ActivityType(c.Param("type"))
	ls, err := h.Activity.ByType(c.Request().Context(), t, queryInt(c, "page", 0), queryInt(c, "size", 20))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toActivityLogResps(ls))
}
