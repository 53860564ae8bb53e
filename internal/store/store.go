package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking via PRAGMA user_version:
// 0 - Uninitialized (fresh file, or a database this tool does not own)
// 1 - Initial schema: student, key, usage, changelog
const currentSchemaVersion = 1

// Store provides durable storage for roster, key state, and history.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Create initializes the database at the given path, creating the file and
// schema as needed. Returns created=false when the database already exists
// at the current schema version.
//
// A database at an unexpected schema version is never touched; callers get
// a *SchemaError telling the operator to delete the file and start over.
func Create(path string) (s *Store, created bool, err error) {
	db, err := openDB(path)
	if err != nil {
		return nil, false, err
	}

	version, err := schemaVersion(db)
	if err != nil {
		db.Close()
		return nil, false, err
	}

	switch {
	case version == currentSchemaVersion:
		return &Store{db: db}, false, nil
	case version != 0:
		db.Close()
		return nil, false, &SchemaError{Found: version, Want: currentSchemaVersion}
	}

	// version 0: either a fresh file or a pre-versioning database. The
	// latter is detectable by its tables and must not be silently adopted.
	initialized, err := hasTable(db, "student")
	if err != nil {
		db.Close()
		return nil, false, err
	}
	if initialized {
		db.Close()
		return nil, false, &SchemaError{Found: 0, Want: currentSchemaVersion}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, false, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, true, nil
}

// Open opens an existing, initialized database. Unlike Create it never
// creates or migrates anything: a missing file or uninitialized database
// yields ErrNotInitialized so commands can tell the operator to run init-db.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	version, err := schemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	switch {
	case version == 0:
		db.Close()
		return nil, ErrNotInitialized
	case version != currentSchemaVersion:
		db.Close()
		return nil, &SchemaError{Found: version, Want: currentSchemaVersion}
	}

	return &Store{db: db}, nil
}

// openDB opens the SQLite file and applies connection configuration shared
// by Create and Open.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool for SQLite
	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the tables and stamps the schema version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// schemaVersion reads the PRAGMA user_version stamp.
func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func hasTable(db *sql.DB, name string) (bool, error) {
	var found string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return true, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
