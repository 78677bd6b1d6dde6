package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomRepo manages room rows.  It never writes Rooms.status; occupancy
// changes only through BookingRepo.Transition.
type RoomRepo struct {
	c *database.Cluster
}

func NewRoomRepo(c *database.Cluster) *RoomRepo { return &RoomRepo{c: c} }

const roomWithTypeColumns = `r.id, r.room_number, r.room_type_id, r.status, rt.name, rt.base_price, rt.capacity`

func scanRoomWithType(rows *sql.Rows) (model.RoomWithType, error) {
	var rw model.RoomWithType
	err := rows.Scan(&rw.ID, &rw.RoomNumber, &rw.RoomTypeID, &rw.Status, &rw.TypeName, &rw.BasePrice, &rw.Capacity)
	return rw, err
}

func (r *RoomRepo) listWithType(ctx context.Context, q string, args ...any) ([]model.RoomWithType, error) {
	out := []model.RoomWithType{}
	err := r.c.Read(ctx, func(db database.Querier) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rw, err := scanRoomWithType(rows)
			if err != nil {
				return err
			}
			out = append(out, rw)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns all rooms joined with their type.
func (r *RoomRepo) List(ctx context.Context) ([]model.RoomWithType, error) {
	q := `SELECT ` + roomWithTypeColumns + `
	      FROM Rooms r
	      JOIN RoomTypes rt ON rt.id = r.room_type_id
	      ORDER BY r.id ASC`
	return r.listWithType(ctx, q)
}

// ListAvailable returns the rooms with no active booking overlapping the
// stay.  The overlap clause is the half-open test with the stay's
// check-out bound to the first placeholder and its check-in to the
// second.  This is a replica read and therefore advisory.
func (r *RoomRepo) ListAvailable(ctx context.Context, stay model.DateRange) ([]model.RoomWithType, error) {
	q := `SELECT ` + roomWithTypeColumns + `
	      FROM Rooms r
	      JOIN RoomTypes rt ON rt.id = r.room_type_id
	      WHERE r.id NOT IN (
	          SELECT b.room_id FROM Bookings b
	          WHERE b.status IN (` + activeStatusList + `)
	            AND b.check_in_date < ? AND b.check_out_date > ?
	      )
	      ORDER BY r.id ASC`
	return r.listWithType(ctx, q, stay.CheckOut, stay.CheckIn)
}

// GetByID fetches a single room from the replica.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	const q = `SELECT id, room_number, room_type_id, status FROM Rooms WHERE id = ? LIMIT 1`
	var room model.Room
	err := r.c.Read(ctx, func(db database.Querier) error {
		return db.QueryRowContext(ctx, q, id).Scan(&room.ID, &room.RoomNumber, &room.RoomTypeID, &room.Status)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ErrRoomNotFound
	}
	return room, err
}

// Create inserts an Available room and returns its id.
func (r *RoomRepo) Create(ctx context.Context, number string, roomTypeID uint64) (uint64, error) {
	const q = `INSERT INTO Rooms (room_number, room_type_id, status) VALUES (?, ?, 'Available')`
	res, err := r.c.Write(ctx, q, strings.TrimSpace(number), roomTypeID)
	if err != nil {
		if ce, ok := database.IsConstraint(err); ok {
			switch {
			case ce.Duplicate():
				return 0, ErrRoomNumberTaken
			case ce.ForeignKey():
				return 0, ErrRoomTypeNotFound
			}
		}
		return 0, err
	}
	return res.InsertedID, nil
}

// Delete removes a room.  Rooms referenced by any booking cannot be
// deleted; bookings are never removed.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.c.Write(ctx, `DELETE FROM Rooms WHERE id = ?`, id)
	if err != nil {
		if ce, ok := database.IsConstraint(err); ok && ce.ForeignKey() {
			return ErrRoomInUse
		}
		return err
	}
	if res.AffectedRows == 0 {
		return ErrRoomNotFound
	}
	return nil
}
