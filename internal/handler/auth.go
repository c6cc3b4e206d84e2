package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/config"
	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/service"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Members  *service.MemberService
	Tokens   *repository.TokenRepo
	Activity *service.ActivityLogger
}

func NewAuthHandler(cfg config.Config, members *service.MemberService, tokens *repository.TokenRepo, activity *service.ActivityLogger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Members: members, Tokens: tokens, Activity: activity}
}

type loginReq struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	Member  memberResp `json:"member"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Register creates a member from self-service input and returns a
// token pair so the client is logged in immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.MemberInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Members.Register(ctx, callCtx(c), req)
	if err != nil {
		return mapError(c, err)
	}
	resp, err := h.issuePair(ctx, m)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	if req.LoginID == "" || req.Password == "" {
		return writeError(c, http.StatusBadRequest, "login_id and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Members.GetByLoginID(ctx, req.LoginID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return writeError(c, http.StatusUnauthorized, "invalid credentials")
		}
		return mapError(c, err)
	}
	if !utils.VerifyPassword(m.PasswordHash, req.Password) {
		return writeError(c, http.StatusUnauthorized, "invalid credentials")
	}

	resp, err := h.issuePair(ctx, m)
	if err != nil {
		return mapError(c, err)
	}
	if h.Activity != nil {
		h.Activity.Record(callCtx(c), m.ID, m.LoginID, model.ActivityLogin, "logged in")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented token is revoked and
// a new pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return writeError(c, http.StatusBadRequest, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	memberID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "invalid refresh token")
	}
	m, err := h.Members.Get(ctx, memberID)
	if err != nil {
		return mapError(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return mapError(c, err)
	}
	resp, err := h.issuePair(ctx, m)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token. The access token simply
// expires; there is no server-side blacklist.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return writeError(c, http.StatusBadRequest, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
		return mapError(c, err)
	}
	cc := callCtx(c)
	if h.Activity != nil && cc.ActorID != 0 {
		h.Activity.Record(cc, cc.ActorID, cc.ActorLoginID, model.ActivityLogout, "logged out")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated member.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}
	m, err := h.Members.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberResp(m))
}

// Validate confirms the access token is still good. JWTAuth already
// rejected anything invalid, so reaching here means valid.
func (h *AuthHandler) Validate(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}

func (h *AuthHandler) issuePair(ctx context.Context, m model.Member) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, m.ID, m.LoginID, m.Grade, h.Cfg.AccessTTLHours)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, m.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		Member:  toMemberResp(m),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
