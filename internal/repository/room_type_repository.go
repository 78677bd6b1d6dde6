package repository

import (
	"context"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomTypeRepo reads the room type catalogue from the replica.
type RoomTypeRepo struct {
	c *database.Cluster
}

func NewRoomTypeRepo(c *database.Cluster) *RoomTypeRepo { return &RoomTypeRepo{c: c} }

// List returns every room type ordered by id.
func (r *RoomTypeRepo) List(ctx context.Context) ([]model.RoomType, error) {
	const q = `SELECT id, name, base_price, capacity FROM RoomTypes ORDER BY id ASC`
	out := []model.RoomType{}
	err := r.c.Read(ctx, func(db database.Querier) error {
		rows, err := db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var rt model.RoomType
			if err := rows.Scan(&rt.ID, &rt.Name, &rt.BasePrice, &rt.Capacity); err != nil {
				return err
			}
			out = append(out, rt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
