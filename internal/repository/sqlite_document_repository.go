package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteDocumentRepository stores whole JSON documents by key in SQLite.
type SQLiteDocumentRepository struct {
	db *sql.DB
}

// NewSQLiteDocumentRepository creates a new SQLiteDocumentRepository.
func NewSQLiteDocumentRepository(db *sql.DB) *SQLiteDocumentRepository {
	return &SQLiteDocumentRepository{db: db}
}

// Get returns the document stored under key.
func (r *SQLiteDocumentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(value), nil
}

// Put creates or replaces the document stored under key.
func (r *SQLiteDocumentRepository) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// Delete removes the document stored under key. Missing keys are ignored.
func (r *SQLiteDocumentRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
