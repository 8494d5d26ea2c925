// Package repository contains data access logic separated from HTTP handlers.
// This file holds the Map repository: maps are the root of the ownership
// chain and are addressed by their public slug (map_id) from the API.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/pamfree/internal/model"
)

const mapColumns = "id, map_id, title, description, owner_user_id, is_publicly_editable, created_at, updated_at"

// MapRepo encapsulates all database queries related to maps.
type MapRepo struct {
	db *sql.DB
}

// NewMapRepo constructs a MapRepo with the provided DB handle.
func NewMapRepo(db *sql.DB) *MapRepo {
	return &MapRepo{db: db}
}

func scanMap(s rowScanner) (*model.Map, error) {
	var m model.Map
	if err := s.Scan(&m.ID, &m.MapID, &m.Title, &m.Description, &m.OwnerUserID,
		&m.IsPubliclyEditable, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts m and fills in ID and timestamps.  A duplicate slug
// yields ErrMapIDExists.
func (r *MapRepo) Create(ctx context.Context, m *model.Map) error {
	t := now()
	m.CreatedAt, m.UpdatedAt = t, t
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO maps (map_id, title, description, owner_user_id, is_publicly_editable, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.MapID, m.Title, m.Description, m.OwnerUserID, m.IsPubliclyEditable, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrMapIDExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// SlugExists reports whether a map with the given public slug exists.
func (r *MapRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM maps WHERE map_id = ?", slug).Scan(&n)
	return n > 0, err
}

// GetBySlug fetches a map by its public slug.
func (r *MapRepo) GetBySlug(ctx context.Context, slug string) (*model.Map, error) {
	m, err := scanMap(r.db.QueryRowContext(ctx,
		"SELECT "+mapColumns+" FROM maps WHERE map_id = ?", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMapNotFound
	}
	return m, err
}

// GetByID fetches a map by internal id.
func (r *MapRepo) GetByID(ctx context.Context, id uint64) (*model.Map, error) {
	m, err := scanMap(r.db.QueryRowContext(ctx,
		"SELECT "+mapColumns+" FROM maps WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMapNotFound
	}
	return m, err
}

// ListByOwner returns the owner's maps, most recently updated first.
func (r *MapRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Map, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mapColumns+" FROM maps WHERE owner_user_id = ? ORDER BY updated_at DESC, id DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Map{}
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update writes title, description and the public-edit flag, bumping
// updated_at.  It returns ErrMapNotFound when the row vanished.
func (r *MapRepo) Update(ctx context.Context, m *model.Map) error {
	m.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE maps SET title = ?, description = ?, is_publicly_editable = ?, updated_at = ?
		 WHERE id = ?`,
		m.Title, m.Description, m.IsPubliclyEditable, m.UpdatedAt, m.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrMapNotFound)
}

// Delete removes the map with its floors, their pins and the map's public
// editors, in that order, inside one transaction.  deleted is false when
// the map no longer existed.
func (r *MapRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	return mapDeletePlan.run(ctx, r.db, id)
}
