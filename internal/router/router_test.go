package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

func newServer(t *testing.T, limited *int) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	count := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			*limited++
			return next(c)
		}
	}
	RegisterRoutes(e, Handlers{
		Auth:     handler.NewAuthHandler(nil),
		Rooms:    handler.NewRoomHandler(nil, nil, nil),
		Bookings: handler.NewBookingHandler(nil, nil),
	}, Guards{JWTSecret: "secret", RateLimit: count})
	return e
}

func call(e *echo.Echo, method, target, token string) int {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func token(t *testing.T, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken("secret", 1, "desk", role, "", time.Hour)
	require.NoError(t, err)
	return at.Token
}

func TestRouteGuards(t *testing.T) {
	var limited int
	e := newServer(t, &limited)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodGet, "/v1/rooms/available", ""), "public, reaches the handler")

	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/bookings", ""))
	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPatch, "/v1/bookings/1/check-in", ""))
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPatch, "/v1/bookings/x/check-in", token(t, "receptionist")))
	assert.Equal(t, http.StatusForbidden, call(e, http.MethodGet, "/v1/bookings", token(t, "guest")))

	assert.Equal(t, http.StatusForbidden, call(e, http.MethodDelete, "/v1/rooms/1", token(t, "receptionist")))
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodDelete, "/v1/rooms/x", token(t, "manager")))

	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/bookings", ""))
	assert.Equal(t, 1, limited)
}
