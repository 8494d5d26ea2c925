package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/pamfree/internal/model"
)

const floorColumns = "id, map_id, floor_number, name, image_url, image_key, created_at, updated_at"

// FloorRepo provides persistence for floors.  Ownership is not checked
// here; callers resolve the parent map first.
type FloorRepo struct {
	db *sql.DB
}

func NewFloorRepo(db *sql.DB) *FloorRepo { return &FloorRepo{db: db} }

func scanFloor(s rowScanner) (*model.Floor, error) {
	var f model.Floor
	if err := s.Scan(&f.ID, &f.MapID, &f.FloorNumber, &f.Name, &f.ImageURL, &f.ImageKey,
		&f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts f and fills in ID and timestamps.
func (r *FloorRepo) Create(ctx context.Context, f *model.Floor) error {
	t := now()
	f.CreatedAt, f.UpdatedAt = t, t
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO floors (map_id, floor_number, name, image_url, image_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.MapID, f.FloorNumber, f.Name, f.ImageURL, f.ImageKey, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

// GetByID fetches a floor by id.
func (r *FloorRepo) GetByID(ctx context.Context, id uint64) (*model.Floor, error) {
	f, err := scanFloor(r.db.QueryRowContext(ctx,
		"SELECT "+floorColumns+" FROM floors WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFloorNotFound
	}
	return f, err
}

// ListByMap returns a map's floors ordered by floor number.
func (r *FloorRepo) ListByMap(ctx context.Context, mapID uint64) ([]*model.Floor, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+floorColumns+" FROM floors WHERE map_id = ? ORDER BY floor_number, id", mapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Floor{}
	for rows.Next() {
		f, err := scanFloor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update writes name and floor number.
func (r *FloorRepo) Update(ctx context.Context, f *model.Floor) error {
	f.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE floors SET floor_number = ?, name = ?, updated_at = ? WHERE id = ?",
		f.FloorNumber, f.Name, f.UpdatedAt, f.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrFloorNotFound)
}

// SetImage replaces the image reference.  Pass nil url/key to detach.
func (r *FloorRepo) SetImage(ctx context.Context, f *model.Floor, url, key *string) error {
	t := now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE floors SET image_url = ?, image_key = ?, updated_at = ? WHERE id = ?",
		url, key, t, f.ID)
	if err != nil {
		return err
	}
	if err := affectedOrNotFound(res, ErrFloorNotFound); err != nil {
		return err
	}
	f.ImageURL, f.ImageKey, f.UpdatedAt = url, key, t
	return nil
}

// Delete removes the floor after its pins.  deleted is false when the
// floor no longer existed.
func (r *FloorRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	return floorDeletePlan.run(ctx, r.db, id)
}
