package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BookingStatus is the lifecycle state of a booking.  The zero value is
// not a valid status; only the constants below are.
type BookingStatus uint8

const (
	BookingConfirmed BookingStatus = iota + 1
	BookingCheckedIn
	BookingCheckedOut
	BookingCancelled
)

var bookingStatusNames = map[BookingStatus]string{
	BookingConfirmed:  "Confirmed",
	BookingCheckedIn:  "Checked_In",
	BookingCheckedOut: "Checked_Out",
	BookingCancelled:  "Cancelled",
}

// ActiveBookingStatuses lists the statuses that hold a room for their
// dates.  Checked_Out and Cancelled bookings never block availability.
var ActiveBookingStatuses = []BookingStatus{BookingConfirmed, BookingCheckedIn}

// ParseBookingStatus maps the stored name back to a status.
func ParseBookingStatus(s string) (BookingStatus, error) {
	for st, name := range bookingStatusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown booking status %q", s)
}

func (s BookingStatus) String() string {
	if name, ok := bookingStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BookingStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s BookingStatus) Valid() bool {
	_, ok := bookingStatusNames[s]
	return ok
}

// Active reports whether the booking counts against availability.
func (s BookingStatus) Active() bool {
	return s == BookingConfirmed || s == BookingCheckedIn
}

// Terminal reports whether no further event is accepted.
func (s BookingStatus) Terminal() bool {
	return s == BookingCheckedOut || s == BookingCancelled
}

// Apply runs one event through the booking state machine and returns the
// next status and the side effect the room must undergo together with
// it.  Illegal events return a *TransitionError and leave s as it was.
//
//	Confirmed  --check-in-->  Checked_In   (room Occupied)
//	Checked_In --check-out--> Checked_Out  (room Available)
//	Confirmed  --cancel-->    Cancelled    (room untouched)
func (s BookingStatus) Apply(ev BookingEvent) (BookingStatus, RoomEffect, error) {
	switch s {
	case BookingConfirmed:
		switch ev {
		case EventCheckIn:
			return BookingCheckedIn, EffectOccupy, nil
		case EventCancel:
			return BookingCancelled, EffectNone, nil
		}
	case BookingCheckedIn:
		if ev == EventCheckOut {
			return BookingCheckedOut, EffectRelease, nil
		}
	case BookingCheckedOut, BookingCancelled:
		// terminal
	}
	return s, EffectNone, &TransitionError{Current: s, Event: ev}
}

func (s BookingStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid booking status %d", uint8(s))
	}
	return json.Marshal(s.String())
}

func (s *BookingStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseBookingStatus(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Scan implements sql.Scanner for the ENUM column.
func (s *BookingStatus) Scan(src interface{}) error {
	var name string
	switch v := src.(type) {
	case []byte:
		name = string(v)
	case string:
		name = v
	default:
		return fmt.Errorf("cannot scan %T into BookingStatus", src)
	}
	parsed, err := ParseBookingStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s BookingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid booking status %d", uint8(s))
	}
	return s.String(), nil
}

// BookingEvent is an input to the booking state machine.
type BookingEvent uint8

const (
	EventCheckIn BookingEvent = iota + 1
	EventCheckOut
	EventCancel
)

func (e BookingEvent) String() string {
	switch e {
	case EventCheckIn:
		return "check-in"
	case EventCheckOut:
		return "check-out"
	case EventCancel:
		return "cancel"
	}
	return fmt.Sprintf("BookingEvent(%d)", uint8(e))
}

// RoomEffect is the room-status write paired with a booking transition.
type RoomEffect uint8

const (
	EffectNone RoomEffect = iota
	EffectOccupy
	EffectRelease
)

// Target returns the room status the effect writes, and false for
// EffectNone.
func (e RoomEffect) Target() (RoomStatus, bool) {
	switch e {
	case EffectOccupy:
		return RoomOccupied, true
	case EffectRelease:
		return RoomAvailable, true
	}
	return 0, false
}

// RoomStatus is the current occupancy state of a room.
type RoomStatus uint8

const (
	RoomAvailable RoomStatus = iota + 1
	RoomOccupied
	RoomCleaning
	RoomMaintenance
)

var roomStatusNames = map[RoomStatus]string{
	RoomAvailable:   "Available",
	RoomOccupied:    "Occupied",
	RoomCleaning:    "Cleaning",
	RoomMaintenance: "Maintenance",
}

// ParseRoomStatus maps the stored name back to a status.
func ParseRoomStatus(s string) (RoomStatus, error) {
	for st, name := range roomStatusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown room status %q", s)
}

func (s RoomStatus) String() string {
	if name, ok := roomStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RoomStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s RoomStatus) Valid() bool {
	_, ok := roomStatusNames[s]
	return ok
}

func (s RoomStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid room status %d", uint8(s))
	}
	return json.Marshal(s.String())
}

func (s *RoomStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseRoomStatus(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Scan implements sql.Scanner for the ENUM column.
func (s *RoomStatus) Scan(src interface{}) error {
	var name string
	switch v := src.(type) {
	case []byte:
		name = string(v)
	case string:
		name = v
	default:
		return fmt.Errorf("cannot scan %T into RoomStatus", src)
	}
	parsed, err := ParseRoomStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s RoomStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid room status %d", uint8(s))
	}
	return s.String(), nil
}
