package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsTransient reports whether a failed read may succeed on another attempt.
// Lock contention and I/O hiccups qualify; schema and constraint errors do
// not. Errors that did not come from SQLite are treated as transient.
func IsTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return true
	}

	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr:
		return true
	}
	return false
}
