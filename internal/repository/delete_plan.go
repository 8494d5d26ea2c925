package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// deleteStep removes one table's rows for the plan's root id.
type deleteStep struct {
	table string
	query string
}

// deletePlan lists deletes in dependency order: children first, the root
// row last.  The schema declares no ON DELETE CASCADE, so the order is
// what keeps foreign keys satisfied.
type deletePlan []deleteStep

var (
	pinDeletePlan = deletePlan{
		{"pins", `DELETE FROM pins WHERE id = ?`},
	}
	floorDeletePlan = deletePlan{
		{"pins", `DELETE FROM pins WHERE floor_id = ?`},
		{"floors", `DELETE FROM floors WHERE id = ?`},
	}
	mapDeletePlan = deletePlan{
		{"pins", `DELETE FROM pins WHERE floor_id IN (SELECT id FROM floors WHERE map_id = ?)`},
		{"floors", `DELETE FROM floors WHERE map_id = ?`},
		{"public_editors", `DELETE FROM public_editors WHERE map_id = ?`},
		{"maps", `DELETE FROM maps WHERE id = ?`},
	}
	userDeletePlan = deletePlan{
		{"pins", `DELETE FROM pins WHERE floor_id IN (
			SELECT f.id FROM floors f JOIN maps m ON m.id = f.map_id WHERE m.owner_user_id = ?)`},
		{"floors", `DELETE FROM floors WHERE map_id IN (SELECT id FROM maps WHERE owner_user_id = ?)`},
		{"public_editors", `DELETE FROM public_editors WHERE map_id IN (SELECT id FROM maps WHERE owner_user_id = ?)`},
		{"maps", `DELETE FROM maps WHERE owner_user_id = ?`},
		{"refresh_tokens", `DELETE FROM refresh_tokens WHERE user_id = ?`},
		{"users", `DELETE FROM users WHERE id = ?`},
	}
)

// run executes every step inside one transaction and reports whether the
// root row existed.  A missing root is not an error: the plan still runs
// (removing nothing) and deleted is false.
func (p deletePlan) run(ctx context.Context, db *sql.DB, id any) (deleted bool, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var last int64
	for _, step := range p {
		res, execErr := tx.ExecContext(ctx, step.query, id)
		if execErr != nil {
			err = fmt.Errorf("delete %s: %w", step.table, execErr)
			return false, err
		}
		last, _ = res.RowsAffected()
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return last > 0, nil
}

// now is the clock used for created_at/updated_at.  Truncated to
// microseconds to match DATETIME(6).
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
