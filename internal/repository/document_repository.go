// Package repository provides database access for domain entities.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/smart-finance/internal/database"
)

// ErrDocumentNotFound is returned when nothing is stored under a key.
var ErrDocumentNotFound = errors.New("document not found")

// PGDocumentRepository stores whole JSON documents by key in PostgreSQL.
type PGDocumentRepository struct {
	db database.PGXDB
}

// NewPGDocumentRepository creates a new PGDocumentRepository.
func NewPGDocumentRepository(db database.PGXDB) *PGDocumentRepository {
	return &PGDocumentRepository{db: db}
}

// Get returns the document stored under key.
func (r *PGDocumentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRow(ctx, `
		SELECT value::text FROM documents WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(value), nil
}

// Put creates or replaces the document stored under key.
func (r *PGDocumentRepository) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// Delete removes the document stored under key. Missing keys are ignored.
func (r *PGDocumentRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
