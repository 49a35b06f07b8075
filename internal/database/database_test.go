package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("fails with invalid connection string", func(t *testing.T) {
		pool, err := Connect(context.Background(), "invalid://connection")
		require.Error(t, err)
		require.Nil(t, pool)
	})

	t.Run("fails with unreachable host", func(t *testing.T) {
		pool, err := Connect(context.Background(), "postgres://localhost:59999/nonexistent?connect_timeout=1")
		require.Error(t, err)
		require.Nil(t, pool)
	})

	t.Run("connects to test database", func(t *testing.T) {
		pool := TestPool(t)
		require.NoError(t, pool.Ping(context.Background()))
	})
}

func TestOpenSQLite(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "a", "b", "c.db")

		db, err := OpenSQLite(context.Background(), path)
		require.NoError(t, err)
		require.NoError(t, db.Close())
		require.FileExists(t, path)
	})

	t.Run("opens file in working directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		db, err := OpenSQLite(context.Background(), filepath.Join(dir, "plain.db"))
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})
}
