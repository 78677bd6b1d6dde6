package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

const requestTimeout = 5 * time.Second

// BookingService is the admission flow behind the booking endpoints.
type BookingService interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (uint64, error)
	CheckIn(ctx context.Context, id uint64) (model.Booking, error)
	CheckOut(ctx context.Context, id uint64) (model.Booking, error)
	Cancel(ctx context.Context, id uint64) (model.Booking, error)
}

// BookingReader serves staff listings.
type BookingReader interface {
	List(ctx context.Context) ([]model.BookingDetail, error)
	GetByID(ctx context.Context, id uint64) (model.BookingDetail, error)
}

type BookingHandler struct {
	Admission BookingService
	Bookings  BookingReader
}

func NewBookingHandler(a BookingService, b BookingReader) *BookingHandler {
	return &BookingHandler{Admission: a, Bookings: b}
}

type createBookingReq struct {
	GuestName  string      `json:"guest_name" validate:"required,max=255"`
	RoomID     uint64      `json:"room_id" validate:"required"`
	CheckIn    string      `json:"check_in_date" validate:"required"`
	CheckOut   string      `json:"check_out_date" validate:"required"`
	TotalPrice model.Money `json:"total_price" validate:"gt=0"`
}

// Create admits a booking: 201 on success, 409 when the room is taken.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := h.Admission.CreateBooking(ctx, service.CreateBookingInput{
		GuestName:  req.GuestName,
		RoomID:     req.RoomID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Booking created successfully", "booking_id": id})
}

func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	items, err := h.Bookings.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) CheckIn(c echo.Context) error {
	return h.transition(c, h.Admission.CheckIn, "Check-in successful")
}

func (h *BookingHandler) CheckOut(c echo.Context) error {
	return h.transition(c, h.Admission.CheckOut, "Check-out successful")
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.Admission.Cancel, "Booking cancelled")
}

func (h *BookingHandler) transition(c echo.Context, apply func(context.Context, uint64) (model.Booking, error), msg string) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	b, err := apply(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "booking": b})
}
