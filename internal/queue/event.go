// Package queue carries booking lifecycle events over RabbitMQ.
package queue

import (
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Event kinds.
const (
	KindCreated    = "booking.created"
	KindCheckedIn  = "booking.checked_in"
	KindCheckedOut = "booking.checked_out"
	KindCancelled  = "booking.cancelled"
)

// BookingEvent is published after a booking change has committed.  It
// carries enough for consumers to log or notify without querying the
// database.
type BookingEvent struct {
	Kind       string              `json:"kind"`
	BookingID  uint64              `json:"booking_id"`
	RoomID     uint64              `json:"room_id"`
	GuestName  string              `json:"guest_name"`
	Status     model.BookingStatus `json:"status"`
	CheckIn    model.Date          `json:"check_in"`
	CheckOut   model.Date          `json:"check_out"`
	TotalPrice model.Money         `json:"total_price"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NewBookingEvent describes b after a change of the given kind.
func NewBookingEvent(kind string, b model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Kind:       kind,
		BookingID:  b.ID,
		RoomID:     b.RoomID,
		GuestName:  b.GuestName,
		Status:     b.Status,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		TotalPrice: b.TotalPrice,
		OccurredAt: at.UTC(),
	}
}

// KindFor maps a state machine event to the published kind.
func KindFor(ev model.BookingEvent) string {
	switch ev {
	case model.EventCheckIn:
		return KindCheckedIn
	case model.EventCheckOut:
		return KindCheckedOut
	case model.EventCancel:
		return KindCancelled
	}
	return "booking.unknown"
}
