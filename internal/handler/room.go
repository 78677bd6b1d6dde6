package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// RoomStore is the inventory the room endpoints manage.
type RoomStore interface {
	List(ctx context.Context) ([]model.RoomWithType, error)
	Create(ctx context.Context, number string, roomTypeID uint64) (uint64, error)
	Delete(ctx context.Context, id uint64) error
}

// RoomTypeLister lists the room catalogue.
type RoomTypeLister interface {
	List(ctx context.Context) ([]model.RoomType, error)
}

// AvailabilityService answers availability queries.
type AvailabilityService interface {
	CheckAvailability(ctx context.Context, roomID uint64, stay model.DateRange) (bool, error)
	ListAvailableRooms(ctx context.Context, stay model.DateRange) ([]service.AvailableRoom, error)
}

type RoomHandler struct {
	Rooms        RoomStore
	Types        RoomTypeLister
	Availability AvailabilityService
}

func NewRoomHandler(rooms RoomStore, types RoomTypeLister, av AvailabilityService) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Types: types, Availability: av}
}

func (h *RoomHandler) RoomTypes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	items, err := h.Types.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	items, err := h.Rooms.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// stayFromQuery reads ?checkIn=&checkOut=.
func stayFromQuery(c echo.Context) (model.DateRange, error) {
	in, out := strings.TrimSpace(c.QueryParam("checkIn")), strings.TrimSpace(c.QueryParam("checkOut"))
	if in == "" || out == "" {
		return model.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, "Missing checkIn or checkOut dates")
	}
	checkIn, err := model.ParseDate(in)
	if err != nil {
		return model.DateRange{}, &service.ValidationError{Field: "checkIn", Reason: "must be a YYYY-MM-DD date"}
	}
	checkOut, err := model.ParseDate(out)
	if err != nil {
		return model.DateRange{}, &service.ValidationError{Field: "checkOut", Reason: "must be a YYYY-MM-DD date"}
	}
	return model.NewDateRange(checkIn, checkOut)
}

// Available lists rooms free for the whole stay with its estimated total.
func (h *RoomHandler) Available(c echo.Context) error {
	stay, err := stayFromQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	items, err := h.Availability.ListAvailableRooms(ctx, stay)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"check_in_date":  stay.CheckIn,
		"check_out_date": stay.CheckOut,
		"items":          items,
	})
}

// RoomAvailability reports whether one room is free for the stay.
func (h *RoomHandler) RoomAvailability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	stay, err := stayFromQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	free, err := h.Availability.CheckAvailability(ctx, id, stay)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"room_id": id, "available": free})
}

type createRoomReq struct {
	RoomNumber string `json:"room_number" validate:"required,max=255"`
	RoomTypeID uint64 `json:"room_type_id" validate:"required"`
}

func (h *RoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if err := bind(c, &req); err != nil {
		return err
	}
	number := strings.TrimSpace(req.RoomNumber)
	if number == "" {
		return &service.ValidationError{Field: "room_number", Reason: "is required"}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	id, err := h.Rooms.Create(ctx, number, req.RoomTypeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Room created successfully", "room_id": id})
}

func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Rooms.Delete(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Room deleted successfully"})
}
