package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestSQLite returns a migrated SQLite database in a temporary directory.
func TestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	if err := RunSQLiteMigrations(path); err != nil {
		t.Fatalf("failed to migrate sqlite database: %v", err)
	}

	db, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

var sharedPool = sync.OnceValues(func() (*pgxpool.Pool, error) {
	ctx := context.Background()
	pool, err := Connect(ctx, os.Getenv("TEST_DATABASE_URL"))
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
})

// TestPool returns the migrated Postgres pool shared by every test in the
// binary. It skips the test when TEST_DATABASE_URL is not set.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	pool, err := sharedPool()
	if err != nil {
		t.Fatalf("failed to set up test database: %v", err)
	}
	return pool
}

// TestTx returns a transaction on the shared pool that is rolled back when
// the test ends, so Postgres tests need no table cleanup.
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })

	return tx
}
