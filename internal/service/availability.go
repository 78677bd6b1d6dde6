package service

import (
	"context"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ConflictFinder reports active bookings overlapping a stay on one room.
type ConflictFinder interface {
	FindConflicts(ctx context.Context, roomID uint64, stay model.DateRange) ([]uint64, error)
}

// AvailableLister lists rooms free for a whole stay.
type AvailableLister interface {
	ListAvailable(ctx context.Context, stay model.DateRange) ([]model.RoomWithType, error)
}

// AvailableRoom is a free room with the price of the requested stay.
type AvailableRoom struct {
	model.RoomWithType
	Nights         int         `json:"nights"`
	EstimatedTotal model.Money `json:"estimated_total"`
}

// Availability answers whether rooms are free.  Its answers come from the
// replica and are advisory: only admission on the primary is final.
type Availability struct {
	bookings ConflictFinder
	rooms    AvailableLister
}

func NewAvailability(bookings ConflictFinder, rooms AvailableLister) *Availability {
	return &Availability{bookings: bookings, rooms: rooms}
}

// CheckAvailability reports whether the room has no active booking
// overlapping the stay.
func (a *Availability) CheckAvailability(ctx context.Context, roomID uint64, stay model.DateRange) (bool, error) {
	if err := stay.Validate(); err != nil {
		return false, err
	}
	ids, err := a.bookings.FindConflicts(ctx, roomID, stay)
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

// ListAvailableRooms returns every room free for the stay with the
// nightly base price multiplied out.
func (a *Availability) ListAvailableRooms(ctx context.Context, stay model.DateRange) ([]AvailableRoom, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	rooms, err := a.rooms.ListAvailable(ctx, stay)
	if err != nil {
		return nil, err
	}
	nights := stay.Nights()
	out := make([]AvailableRoom, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, AvailableRoom{
			RoomWithType:   r,
			Nights:         nights,
			EstimatedTotal: r.BasePrice.Mul(nights),
		})
	}
	return out, nil
}
