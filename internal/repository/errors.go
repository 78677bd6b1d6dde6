// Package repository holds the SQL repositories.  Sentinel values let
// handlers distinguish failure scenarios without inspecting driver errors:
// ErrNotFound for missing rows, ErrConflict when a booking would overlap
// an active one.
package repository

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/database"
)

// ErrNotFound is the parent of every missing-row error.  Handlers should
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

var (
	ErrRoomNotFound     = fmt.Errorf("room %w", ErrNotFound)
	ErrRoomTypeNotFound = fmt.Errorf("room type %w", ErrNotFound)
	ErrBookingNotFound  = fmt.Errorf("booking %w", ErrNotFound)
	ErrStaffNotFound    = fmt.Errorf("staff %w", ErrNotFound)
)

// ErrConflict is returned when the requested dates overlap an active
// booking on the same room.  Handlers should translate it into HTTP 409.
var ErrConflict = errors.New("room is not available for the selected dates")

// Constraint violations with a domain meaning.  Both still match
// database.ErrConstraintViolation.
var (
	ErrRoomNumberTaken = fmt.Errorf("room number already exists: %w", database.ErrConstraintViolation)
	ErrRoomInUse       = fmt.Errorf("room has bookings: %w", database.ErrConstraintViolation)
)
