// Package testutil provides an in-process database and seed helpers for
// package tests.  The database is a temp-file SQLite opened through
// modernc.org/sqlite with foreign keys enforced, so delete plans are
// checked against referential integrity the same way MySQL checks them.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iliyamo/pamfree/internal/model"
)

// sqliteSchema mirrors database.schema with SQLite types.  DATETIME
// columns are declared as such so the driver scans them into time.Time.
var sqliteSchema = []string{
	`CREATE TABLE users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT 'user',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE refresh_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE maps (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		map_id               TEXT NOT NULL UNIQUE,
		title                TEXT NOT NULL,
		description          TEXT NOT NULL,
		owner_user_id        INTEGER NOT NULL REFERENCES users(id),
		is_publicly_editable BOOLEAN NOT NULL DEFAULT 0,
		created_at           DATETIME NOT NULL,
		updated_at           DATETIME NOT NULL
	)`,
	`CREATE TABLE floors (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		map_id       INTEGER NOT NULL REFERENCES maps(id),
		floor_number INTEGER NOT NULL,
		name         TEXT NOT NULL,
		image_url    TEXT NULL,
		image_key    TEXT NULL,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE public_editors (
		id             TEXT PRIMARY KEY,
		map_id         INTEGER NOT NULL REFERENCES maps(id),
		nickname       TEXT NOT NULL,
		editor_token   TEXT NOT NULL,
		last_active_at DATETIME NOT NULL,
		created_at     DATETIME NOT NULL
	)`,
	`CREATE TABLE pins (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		floor_id        INTEGER NOT NULL REFERENCES floors(id),
		title           TEXT NOT NULL,
		description     TEXT NOT NULL,
		x_position      REAL NOT NULL,
		y_position      REAL NOT NULL,
		editor_id       TEXT NULL,
		editor_nickname TEXT NULL,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
}

// OpenDB creates a fresh database under t.TempDir and closes it when
// the test ends.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pamfree.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a single connection keeps the pragma and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}

// Count returns the number of rows in table matching where (which may
// be empty).
func Count(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := db.QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func stamp() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// SeedUser inserts a user with an unusable password hash.  Tests that
// log in should register through the service instead.
func SeedUser(t testing.TB, db *sql.DB, email, role string) model.User {
	t.Helper()
	now := stamp()
	u := model.User{Email: email, PasswordHash: "x", Name: email, Role: role, CreatedAt: now, UpdatedAt: now}
	res, err := db.Exec(
		"INSERT INTO users (email, password_hash, name, role, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	u.ID = uint64(id)
	return u
}

// SeedMap inserts a map owned by ownerID.
func SeedMap(t testing.TB, db *sql.DB, ownerID uint64, slug string, public bool) model.Map {
	t.Helper()
	now := stamp()
	m := model.Map{MapID: slug, Title: slug, OwnerUserID: ownerID, IsPubliclyEditable: public, CreatedAt: now, UpdatedAt: now}
	res, err := db.Exec(
		`INSERT INTO maps (map_id, title, description, owner_user_id, is_publicly_editable, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		m.MapID, m.Title, m.Description, m.OwnerUserID, m.IsPubliclyEditable, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		t.Fatalf("seed map: %v", err)
	}
	id, _ := res.LastInsertId()
	m.ID = uint64(id)
	return m
}

// SeedFloor inserts a floor under mapID.
func SeedFloor(t testing.TB, db *sql.DB, mapID uint64, number int) model.Floor {
	t.Helper()
	now := stamp()
	f := model.Floor{MapID: mapID, FloorNumber: number, Name: "floor", CreatedAt: now, UpdatedAt: now}
	res, err := db.Exec(
		`INSERT INTO floors (map_id, floor_number, name, created_at, updated_at) VALUES (?,?,?,?,?)`,
		f.MapID, f.FloorNumber, f.Name, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		t.Fatalf("seed floor: %v", err)
	}
	id, _ := res.LastInsertId()
	f.ID = uint64(id)
	return f
}

// SeedPin inserts an owner pin under floorID.
func SeedPin(t testing.TB, db *sql.DB, floorID uint64) model.Pin {
	t.Helper()
	now := stamp()
	p := model.Pin{FloorID: floorID, Title: "pin", XPosition: 10, YPosition: 20, CreatedAt: now, UpdatedAt: now}
	res, err := db.Exec(
		`INSERT INTO pins (floor_id, title, description, x_position, y_position, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		p.FloorID, p.Title, p.Description, p.XPosition, p.YPosition, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		t.Fatalf("seed pin: %v", err)
	}
	id, _ := res.LastInsertId()
	p.ID = uint64(id)
	return p
}

// Ctx is a short deadline for store calls in tests.
func Ctx(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
