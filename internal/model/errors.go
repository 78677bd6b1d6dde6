package model

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a stay does not end after it starts.
var ErrInvalidRange = errors.New("invalid date range")

// ErrInvalidTransition is returned when a booking event is not legal
// from the booking's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError reports the rejected event together with the status
// the booking was in, so that callers can show it to staff.
type TransitionError struct {
	Current BookingStatus
	Event   BookingEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s. Current status: %s", e.Event, e.Current)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
