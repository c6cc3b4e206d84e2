package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/middleware"
	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/service"
)

// MemberHandler serves the member endpoints.
type MemberHandler struct {
	Members *service.MemberService
}

func NewMemberHandler(members *service.MemberService) *MemberHandler {
	return &MemberHandler{Members: members}
}

// memberResp is the public member shape; the password hash never
// leaves the server.
type memberResp struct {
	ID               uint64    `json:"id"`
	LoginID          string    `json:"login_id"`
	Name             string    `json:"name"`
	Email            *string   `json:"email,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	BirthYear        int       `json:"birth_year"`
	Grade            string    `json:"grade"`
	GradeEmoji       string    `json:"grade_emoji"`
	GradeDescription string    `json:"grade_description"`
	ProfileImage     *string   `json:"profile_image,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toMemberResp(m model.Member) memberResp {
	return memberResp{
		ID:               m.ID,
		LoginID:          m.LoginID,
		Name:             m.Name,
		Email:            m.Email,
		Phone:            m.Phone,
		BirthYear:        m.BirthYear,
		Grade:            string(m.Grade),
		GradeEmoji:       m.Grade.Emoji(),
		GradeDescription: m.Grade.Description(),
		ProfileImage:     m.ProfileImage,
		CreatedAt:        m.CreatedAt,
	}
}

func toMemberResps(ms []model.Member) []memberResp {
	out := make([]memberResp, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMemberResp(m))
	}
	return out
}

// ListAll returns every member. Admin only.
func (h *MemberHandler) ListAll(c echo.Context) error {
	ms, err := h.Members.List(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResps(ms))
}

// List returns one page of members. Admin only.
func (h *MemberHandler) List(c echo.Context) error {
	page := queryInt(c, "page", 0)
	size := queryInt(c, "size", 20)
	ms, total, err := h.Members.ListPaged(c.Request().Context(), page, size)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"members": toMemberResps(ms),
		"total":   total,
		"page":    page,
		"size":    size,
	})
}

// GetByLoginID returns one member by login id. Admin only.
func (h *MemberHandler) GetByLoginID(c echo.Context) error {
	loginID := c.Param("loginId")
	if loginID == "" {
		return writeError(c, http.StatusBadRequest, "login id required")
	}
	m, err := h.Members.GetByLoginID(c.Request().Context(), loginID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResp(m))
}

// Get returns one member.
func (h *MemberHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	m, err := h.Members.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResp(m))
}

// Update modifies a member. Members may edit themselves; everyone else
// needs the administrator grade.
func (h *MemberHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	grade, _ := c.Get(middleware.CtxGrade).(string)
	isAdmin := model.Grade(grade).IsAdmin()
	if actor != id && !isAdmin {
		return writeError(c, http.StatusForbidden, "access denied")
	}

	var req service.MemberUpdateInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	m, err := h.Members.Update(c.Request().Context(), callCtx(c), isAdmin, id, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResp(m))
}

// Stats returns a member's participation statistics. Members see their
// own; administrators see anyone's.
func (h *MemberHandler) Stats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	grade, _ := c.Get(middleware.CtxGrade).(string)
	if actor != id && !model.Grade(grade).IsAdmin() {
		return writeError(c, http.StatusForbidden, "access denied")
	}
	stats, err := h.Members.Stats(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// UpdateGrade sets a member's grade. Admin only.
func (h *MemberHandler) UpdateGrade(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	var req struct {
		Grade string `json:"grade"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	g, ok := model.ParseGrade(req.Grade)
	if !ok {
		return writeError(c, http.StatusBadRequest, "unknown grade")
	}
	m, err := h.Members.UpdateGrade(c.Request().Context(), callCtx(c), id, g)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResp(m))
}

// Delete removes a member. Admin only.
func (h *MemberHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Members.Delete(c.Request().Context(), callCtx(c), id); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "member deleted"})
}

// Search finds members by keyword over name, email and login id. Admin
// only.
func (h *MemberHandler) Search(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return writeError(c, http.StatusBadRequest, "keyword required")
	}
	ms, err := h.Members.Search(c.Request().Context(), keyword)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResps(ms))
}

// ByGrade lists members holding one grade. Admin only.
func (h *MemberHandler) ByGrade(c echo.Context) error {
	g, ok := model.ParseGrade(c.Param("grade"))
	if !ok {
		return writeError(c, http.StatusBadRequest, "unknown grade")
	}
	ms, err := h.Members.ByGrade(c.Request().Context(), g)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResps(ms))
}
