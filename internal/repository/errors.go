// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to tell
// "no such row" apart from a failing store, and to map duplicate keys to
// a conflict.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrMapNotFound    = errors.New("map not found")
	ErrFloorNotFound  = errors.New("floor not found")
	ErrPinNotFound    = errors.New("pin not found")
	ErrEditorNotFound = errors.New("public editor not found")

	// ErrEmailExists and ErrMapIDExists are returned when a unique index
	// rejects the write, i.e. a concurrent request won the pre-check race.
	ErrEmailExists = errors.New("email already exists")
	ErrMapIDExists = errors.New("map id already exists")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-constraint violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	// other drivers (sqlite in tests) only expose the message
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}
