// Package testing provides testing utilities and helpers for the folio project.
package testing

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3" // cgo driver for in-memory test databases

	"github.com/aristath/folio/internal/database"
)

// NewTestDB creates a file-backed SQLite database with the schema registered
// for name applied ("folio"; unknown names get an empty database).
// Returns the database and a cleanup function that closes and removes it.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, path := range []string{tmpPath, tmpPath + "-wal", tmpPath + "-shm"} {
			_ = os.Remove(path)
		}
	}
}

// NewMemoryDB opens an in-memory database with the folio schema applied.
// The pool is pinned to one connection: every connection to :memory: would
// otherwise see its own empty database.
func NewMemoryDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	conn, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := database.ApplySchema(conn, "folio_schema.sql"); err != nil {
		_ = conn.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return conn, func() {
		if err := conn.Close(); err != nil {
			t.Logf("Warning: Failed to close in-memory database: %v", err)
		}
	}
}
