package store

import (
	"errors"
	"fmt"
)

// ErrNotInitialized means the database file is missing or has never had the
// schema applied. The fix is always the same: run init-db.
var ErrNotInitialized = errors.New("database not initialized (run init-db first)")

// SchemaError means the database exists but carries a schema version this
// build does not understand. There is no in-place migration path; the
// operator deletes the file and re-runs init-db.
type SchemaError struct {
	Found int
	Want  int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf(
		"database schema version %d is not supported (want %d); delete the database file and re-run init-db",
		e.Found, e.Want,
	)
}
