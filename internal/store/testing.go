package store

import (
	"database/sql"
	"testing"
)

// NewTestStore opens an in-memory database with migrations applied. The
// store is closed automatically when the test finishes.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	// Every pooled connection would otherwise get its own empty memory db
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	if err := migrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	s := &Store{db: db}
	t.Cleanup(func() { s.Close() })
	return s
}
