package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	pool := TestPool(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, pool))

	var tableExists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'documents'
		)
	`).Scan(&tableExists)
	require.NoError(t, err)
	require.True(t, tableExists)

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, RunMigrations(ctx, pool))
	})
}

func TestRunSQLiteMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "finance.db")

	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunSQLiteMigrations(path))

	t.Run("creates documents table", func(t *testing.T) {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'documents'`).Scan(&name)
		require.NoError(t, err)
		require.Equal(t, "documents", name)
	})

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, RunSQLiteMigrations(path))
	})
}
