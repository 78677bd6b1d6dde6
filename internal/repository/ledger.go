package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// roomLedger is the only writer of Rooms.status.  It runs inside the
// transaction that changes the booking so both rows move together.
type roomLedger struct{}

func (roomLedger) apply(ctx context.Context, tx *sql.Tx, roomID uint64, effect model.RoomEffect) error {
	target, ok := effect.Target()
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE Rooms SET status = ? WHERE id = ?`, target, roomID)
	return err
}
