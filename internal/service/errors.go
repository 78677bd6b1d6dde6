// Package service holds the availability engine and booking admission:
// input validation, per-room serialization and the state machine entry
// points.  It depends only on small store interfaces.
package service

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input problem.  Nothing has been
// read or written when it is returned.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
