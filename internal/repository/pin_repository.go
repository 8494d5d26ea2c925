package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/pamfree/internal/model"
)

const pinColumns = "p.id, p.floor_id, p.title, p.description, p.x_position, p.y_position, p.editor_id, p.editor_nickname, p.created_at, p.updated_at"

// PinRepo provides persistence for pins.
type PinRepo struct {
	db *sql.DB
}

func NewPinRepo(db *sql.DB) *PinRepo { return &PinRepo{db: db} }

func scanPin(s rowScanner) (*model.Pin, error) {
	var p model.Pin
	if err := s.Scan(&p.ID, &p.FloorID, &p.Title, &p.Description, &p.XPosition, &p.YPosition,
		&p.EditorID, &p.EditorNickname, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PinRepo) list(ctx context.Context, q string, arg any) ([]*model.Pin, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Pin{}
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts p and fills in ID and timestamps.
func (r *PinRepo) Create(ctx context.Context, p *model.Pin) error {
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pins (floor_id, title, description, x_position, y_position, editor_id, editor_nickname, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.FloorID, p.Title, p.Description, p.XPosition, p.YPosition, p.EditorID, p.EditorNickname, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a pin by id.
func (r *PinRepo) GetByID(ctx context.Context, id uint64) (*model.Pin, error) {
	p, err := scanPin(r.db.QueryRowContext(ctx,
		"SELECT "+pinColumns+" FROM pins p WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPinNotFound
	}
	return p, err
}

// ListByFloor returns a floor's pins in creation order.
func (r *PinRepo) ListByFloor(ctx context.Context, floorID uint64) ([]*model.Pin, error) {
	return r.list(ctx, "SELECT "+pinColumns+" FROM pins p WHERE p.floor_id = ? ORDER BY p.created_at, p.id", floorID)
}

// ListByMap returns every pin on every floor of a map, used by the
// public viewer to avoid one query per floor.
func (r *PinRepo) ListByMap(ctx context.Context, mapID uint64) ([]*model.Pin, error) {
	return r.list(ctx,
		`SELECT `+pinColumns+` FROM pins p JOIN floors f ON f.id = p.floor_id
		 WHERE f.map_id = ? ORDER BY p.floor_id, p.created_at, p.id`, mapID)
}

// Update writes the editable pin fields.
func (r *PinRepo) Update(ctx context.Context, p *model.Pin) error {
	p.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE pins SET title = ?, description = ?, x_position = ?, y_position = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Description, p.XPosition, p.YPosition, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrPinNotFound)
}

// Delete removes a pin.  deleted is false when it no longer existed.
func (r *PinRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	return pinDeletePlan.run(ctx, r.db, id)
}
