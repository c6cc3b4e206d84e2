package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/model"
)

// RequireAdmin rejects requests whose authenticated member is not a
// ROOSTER. Must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			grade, ok := c.Get(CtxGrade).(string)
			if !ok || !model.Grade(grade).IsAdmin() {
				return ErrorJSON(c, http.StatusForbidden, "administrator access required")
			}
			return next(c)
		}
	}
}
