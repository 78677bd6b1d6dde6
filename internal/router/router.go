package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Auth     *handler.AuthHandler
	Rooms    *handler.RoomHandler
	Bookings *handler.BookingHandler
	Ready    echo.HandlerFunc
}

// Guards are the per-route middlewares built from configuration.
type Guards struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // booking creation and login
	Cache     echo.MiddlewareFunc // room type catalogue
}

func (g Guards) orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

// RegisterRoutes wires the public, staff and manager route groups.
func RegisterRoutes(e *echo.Echo, h Handlers, g Guards) {
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready)
	}

	limit := g.orPass(g.RateLimit)
	cache := g.orPass(g.Cache)

	// Guests browse and book without an account.
	v1 := e.Group("/v1")
	v1.POST("/auth/login", h.Auth.Login, limit)
	v1.GET("/roomtypes", h.Rooms.RoomTypes, cache)
	v1.GET("/rooms/available", h.Rooms.Available)
	v1.GET("/rooms/:id/availability", h.Rooms.RoomAvailability)
	v1.POST("/bookings", h.Bookings.Create, limit)

	staff := e.Group("/v1", middleware.JWTAuth(g.JWTSecret), middleware.RequireRole(model.RoleReceptionist, model.RoleManager))
	staff.GET("/me", h.Auth.Me)
	staff.GET("/rooms", h.Rooms.List)
	staff.GET("/bookings", h.Bookings.List)
	staff.GET("/bookings/:id", h.Bookings.Get)
	staff.PATCH("/bookings/:id/check-in", h.Bookings.CheckIn)
	staff.PATCH("/bookings/:id/check-out", h.Bookings.CheckOut)
	staff.PATCH("/bookings/:id/cancel", h.Bookings.Cancel)

	manager := e.Group("/v1", middleware.JWTAuth(g.JWTSecret), middleware.RequireRole(model.RoleManager))
	manager.POST("/rooms", h.Rooms.Create)
	manager.DELETE("/rooms/:id", h.Rooms.Delete)
}
