package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/sony/gobreaker"
)

// ErrStorageUnavailable is returned when a target cannot be reached or
// has no connection to give.  Handlers translate it into HTTP 503.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrConstraintViolation is returned when a write breaks a uniqueness,
// foreign-key or check constraint.  Handlers translate it into a 4xx
// response.
var ErrConstraintViolation = errors.New("constraint violation")

// MySQL server error numbers the adapter cares about.
const (
	errDupEntry          = 1062
	errRowIsReferenced   = 1451
	errNoReferencedRow   = 1452
	errBadNull           = 1048
	errCheckConstraint   = 3819
	errTooManyConns      = 1040
	errTooManyUserConns  = 1203
	errServerShutdown    = 1053
	errNoSuchTable       = 1146
	errReadOnlyTransient = 1290
	errLockWaitTimeout   = 1205
	errDeadlock          = 1213
)

// ConstraintError describes a rejected write.
type ConstraintError struct {
	Number  uint16
	Message string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation (%d): %s", e.Number, e.Message)
}

// Is makes errors.Is(err, ErrConstraintViolation) match.
func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintViolation }

// Duplicate reports a unique index collision.
func (e *ConstraintError) Duplicate() bool { return e.Number == errDupEntry }

// ForeignKey reports a missing parent row or a parent still referenced.
func (e *ConstraintError) ForeignKey() bool {
	return e.Number == errNoReferencedRow || e.Number == errRowIsReferenced
}

// classify maps driver errors onto the adapter's taxonomy.  Errors that
// are neither connectivity nor constraint problems pass through as-is
// so that callers can still match sql.ErrNoRows or context errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrConstraintViolation) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry, errRowIsReferenced, errNoReferencedRow, errBadNull, errCheckConstraint:
			return &ConstraintError{Number: me.Number, Message: me.Message}
		case errTooManyConns, errTooManyUserConns, errServerShutdown, errReadOnlyTransient,
			errLockWaitTimeout, errDeadlock:
			return unavailable(err)
		}
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return unavailable(err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return unavailable(err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return unavailable(err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return unavailable(err)
	}
	return err
}

// lockContention reports an InnoDB deadlock or lock wait timeout.  The
// server is healthy in both cases; only the transaction lost.
func lockContention(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == errDeadlock || me.Number == errLockWaitTimeout)
}

func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDeadlock
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// IsConstraint returns the ConstraintError carried by err, if any.
func IsConstraint(err error) (*ConstraintError, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
