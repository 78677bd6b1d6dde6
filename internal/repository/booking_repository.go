package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// activeStatusList is the SQL form of model.ActiveBookingStatuses.
const activeStatusList = `'Confirmed', 'Checked_In'`

// BookingRepo reads bookings from the replica and admits or transitions
// them on the primary.
type BookingRepo struct {
	c      *database.Cluster
	ledger roomLedger
}

func NewBookingRepo(c *database.Cluster) *BookingRepo { return &BookingRepo{c: c} }

const bookingDetailQuery = `SELECT b.id, b.guest_name, b.room_id, b.check_in_date, b.check_out_date,
                                   b.total_price, b.status, r.room_number, rt.name
                            FROM Bookings b
                            JOIN Rooms r ON r.id = b.room_id
                            JOIN RoomTypes rt ON rt.id = r.room_type_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingDetail(s rowScanner) (model.BookingDetail, error) {
	var d model.BookingDetail
	err := s.Scan(&d.ID, &d.GuestName, &d.RoomID, &d.CheckIn, &d.CheckOut,
		&d.TotalPrice, &d.Status, &d.RoomNumber, &d.RoomType)
	return d, err
}

// List returns every booking, newest first.
func (r *BookingRepo) List(ctx context.Context) ([]model.BookingDetail, error) {
	out := []model.BookingDetail{}
	err := r.c.Read(ctx, func(db database.Querier) error {
		rows, err := db.QueryContext(ctx, bookingDetailQuery+` ORDER BY b.id DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanBookingDetail(rows)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one booking from the replica.  A booking admitted a
// moment ago may not be visible yet.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.BookingDetail, error) {
	var d model.BookingDetail
	err := r.c.Read(ctx, func(db database.Querier) error {
		var err error
		d, err = scanBookingDetail(db.QueryRowContext(ctx, bookingDetailQuery+` WHERE b.id = ?`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingDetail{}, ErrBookingNotFound
	}
	return d, err
}

// FindConflicts returns the ids of active bookings on the room that
// overlap the stay, as seen by the replica.
func (r *BookingRepo) FindConflicts(ctx context.Context, roomID uint64, stay model.DateRange) ([]uint64, error) {
	const q = `SELECT id FROM Bookings
	           WHERE room_id = ?
	             AND status IN (` + activeStatusList + `)
	             AND check_in_date < ? AND check_out_date > ?`
	var ids []uint64
	err := r.c.Read(ctx, func(db database.Querier) error {
		rows, err := db.QueryContext(ctx, q, roomID, stay.CheckOut, stay.CheckIn)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id uint64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// Admit inserts a Confirmed booking if no active booking on the room
// overlaps the stay.  The room row is locked first, so concurrent
// admissions for one room are serialized by the primary; the overlap
// query is a locking read and always sees the latest commits.
func (r *BookingRepo) Admit(ctx context.Context, nb model.NewBooking) (uint64, error) {
	var id uint64
	err := r.c.Tx(ctx, func(tx *sql.Tx) error {
		var roomID uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM Rooms WHERE id = ? FOR UPDATE`, nb.RoomID).Scan(&roomID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		const overlap = `SELECT id FROM Bookings
		                 WHERE room_id = ?
		                   AND status IN (` + activeStatusList + `)
		                   AND check_in_date < ? AND check_out_date > ?
		                 LIMIT 1 FOR UPDATE`
		var existing uint64
		err = tx.QueryRowContext(ctx, overlap, nb.RoomID, nb.Stay.CheckOut, nb.Stay.CheckIn).Scan(&existing)
		switch {
		case err == nil:
			return fmt.Errorf("%w: booking %d holds room %d for %s", ErrConflict, existing, nb.RoomID, nb.Stay)
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		const ins = `INSERT INTO Bookings (guest_name, room_id, check_in_date, check_out_date, total_price, status)
		             VALUES (?, ?, ?, ?, ?, 'Confirmed')`
		res, err := tx.ExecContext(ctx, ins, nb.GuestName, nb.RoomID, nb.Stay.CheckIn, nb.Stay.CheckOut, nb.TotalPrice)
		if err != nil {
			return err
		}
		last, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(last)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Transition applies an event to a booking and its room in one primary
// transaction.  Like Admit it locks the room row before any Bookings row,
// so the two never wait on each other in opposite orders.  A rejected
// event leaves both rows untouched.
func (r *BookingRepo) Transition(ctx context.Context, id uint64, ev model.BookingEvent) (model.Booking, error) {
	var b model.Booking
	err := r.c.Tx(ctx, func(tx *sql.Tx) error {
		// room_id never changes after insert, so a plain read is enough
		// to find which room to lock.
		var roomID uint64
		err := tx.QueryRowContext(ctx, `SELECT room_id FROM Bookings WHERE id = ?`, id).Scan(&roomID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT id FROM Rooms WHERE id = ? FOR UPDATE`, roomID).Scan(&roomID); err != nil {
			return err
		}

		const sel = `SELECT id, guest_name, room_id, check_in_date, check_out_date, total_price, status
		             FROM Bookings WHERE id = ? FOR UPDATE`
		err = tx.QueryRowContext(ctx, sel, id).Scan(
			&b.ID, &b.GuestName, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.TotalPrice, &b.Status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}

		next, effect, err := b.Status.Apply(ev)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `UPDATE Bookings SET status = ? WHERE id = ? AND status = ?`, next, id, b.Status)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return &model.TransitionError{Current: b.Status, Event: ev}
		}
		if err := r.ledger.apply(ctx, tx, b.RoomID, effect); err != nil {
			return err
		}
		b.Status = next
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}
