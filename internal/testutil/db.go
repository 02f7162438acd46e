package testutil

import (
	"database/sql"
	"testing"

	"github.com/junwei-lu/litscan/internal/db"
	"github.com/junwei-lu/litscan/internal/store"

	_ "github.com/mattn/go-sqlite3" // Blank import for sql driver
)

// SetupTestDB creates an in-memory SQLite database and applies the
// embedded migrations. The connection is closed when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})

	if _, err := conn.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	if err := db.RunMigrations(conn); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return conn
}

// SetupTestStore builds a Store on a fresh in-memory database.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(SetupTestDB(t))
}
