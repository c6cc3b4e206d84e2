// Package middleware provides the HTTP request middleware: bearer
// token authentication, grade-based authorization and redis-backed
// rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxMemberID = "member_id"
	CtxLoginID  = "login_id"
	CtxGrade    = "grade"
)

// JWTAuth validates the Bearer access token and injects the member id,
// login id and grade claims into the request context. The secret must
// match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return ErrorJSON(c, http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return ErrorJSON(c, http.StatusUnauthorized, "invalid token")
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ErrorJSON(c, http.StatusUnauthorized, "invalid claims")
			}

			// mid is issued as a JSON number; it decodes as float64.
			mid, ok := claims["mid"].(float64)
			if !ok || mid < 1 {
				return ErrorJSON(c, http.StatusUnauthorized, "invalid claims")
			}
			loginID, _ := claims["sub"].(string)
			grade, _ := claims["grade"].(string)

			c.Set(CtxMemberID, uint64(mid))
			c.Set(CtxLoginID, loginID)
			c.Set(CtxGrade, grade)
			return next(c)
		}
	}
}
