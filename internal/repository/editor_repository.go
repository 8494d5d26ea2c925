package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/pamfree/internal/model"
)

// EditorRepo persists anonymous public editors.  Tokens are stored as
// issued; see model.PublicEditor.
type EditorRepo struct {
	db *sql.DB
}

func NewEditorRepo(db *sql.DB) *EditorRepo { return &EditorRepo{db: db} }

// Create inserts e.  ID, token and timestamps are chosen by the caller.
func (r *EditorRepo) Create(ctx context.Context, e *model.PublicEditor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO public_editors (id, map_id, nickname, editor_token, last_active_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.MapID, e.Nickname, e.EditorToken, e.LastActiveAt, e.CreatedAt)
	return err
}

// GetByID fetches an editor including its token.
func (r *EditorRepo) GetByID(ctx context.Context, id string) (*model.PublicEditor, error) {
	var e model.PublicEditor
	err := r.db.QueryRowContext(ctx,
		`SELECT id, map_id, nickname, editor_token, last_active_at, created_at
		 FROM public_editors WHERE id = ?`, id).
		Scan(&e.ID, &e.MapID, &e.Nickname, &e.EditorToken, &e.LastActiveAt, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEditorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Touch sets last_active_at.
func (r *EditorRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE public_editors SET last_active_at = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrEditorNotFound)
}
