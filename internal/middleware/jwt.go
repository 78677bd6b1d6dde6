package middleware // reusable HTTP middleware for the staff API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxStaffID  = "staff_id"
	CtxRole     = "role"
	CtxUsername = "username"
)

// JWTAuth validates a Bearer staff token and stores the staff id (uint64),
// role and username in the echo context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			id, _ := claims.StaffID()
			c.Set(CtxStaffID, id)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxUsername, claims.Username)
			return next(c)
		}
	}
}

// StaffID returns the authenticated staff id, or 0.
func StaffID(c echo.Context) uint64 {
	id, _ := c.Get(CtxStaffID).(uint64)
	return id
}
