package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

type StaffRepo struct {
	c *database.Cluster
}

func NewStaffRepo(c *database.Cluster) *StaffRepo { return &StaffRepo{c: c} }

const staffColumns = `id, username, password_hash, full_name, role, is_active, created_at`

func (r *StaffRepo) getOne(ctx context.Context, where string, arg any) (model.Staff, error) {
	var s model.Staff
	err := r.c.Read(ctx, func(db database.Querier) error {
		return db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM Staff WHERE `+where+` LIMIT 1`, arg).
			Scan(&s.ID, &s.Username, &s.PasswordHash, &s.FullName, &s.Role, &s.IsActive, &s.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Staff{}, ErrStaffNotFound
	}
	return s, err
}

// GetByUsername fetches a staff account by trimmed username.
func (r *StaffRepo) GetByUsername(ctx context.Context, username string) (model.Staff, error) {
	return r.getOne(ctx, "username = ?", strings.TrimSpace(username))
}

// GetByID fetches a staff account by id.
func (r *StaffRepo) GetByID(ctx context.Context, id uint64) (model.Staff, error) {
	return r.getOne(ctx, "id = ?", id)
}
