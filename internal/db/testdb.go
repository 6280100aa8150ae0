package db

import (
	"database/sql"
	"testing"
)

// NewTestDB creates an in-memory SQLite database with the full schema,
// FTS index, and migrations applied, same as the serve boot path. The
// pool is pinned to a single connection: every pooled connection would
// otherwise get its own empty in-memory database, and the foreign_keys
// pragma the cascade tests depend on is per-connection.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
