// Package dbtest opens throwaway SQLite databases with the schema applied.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/db"
)

// Open returns a migrated SQLite database living in t.TempDir().
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "renubu.db")
	dbx, err := db.NewSQLConnection(db.DriverSQLite, path, db.SQLOpts{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbx.Close() })

	if _, err := db.Migrate(context.Background(), dbx, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbx
}
