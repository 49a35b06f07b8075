package store

import (
	"context"
	"errors"
	"sync"

	"gitlab.com/yelinaung/smart-finance/internal/repository"
)

// Backend persists the serialized collection as a single blob.
// Read returns nil data and no error when nothing has been written yet.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// DocumentRepository is the key/value contract both SQL repositories satisfy.
type DocumentRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// DocumentBackend stores the collection under one key of a DocumentRepository.
type DocumentBackend struct {
	repo DocumentRepository
	key  string
}

// NewDocumentBackend creates a DocumentBackend for key.
func NewDocumentBackend(repo DocumentRepository, key string) *DocumentBackend {
	return &DocumentBackend{repo: repo, key: key}
}

// Read implements Backend.
func (b *DocumentBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := b.repo.Get(ctx, b.key)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, nil
	}
	return data, err
}

// Write implements Backend.
func (b *DocumentBackend) Write(ctx context.Context, data []byte) error {
	return b.repo.Put(ctx, b.key, data)
}

// MemoryBackend keeps the blob in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Read implements Backend.
func (b *MemoryBackend) Read(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, nil
	}
	return append([]byte(nil), b.data...), nil
}

// Write implements Backend.
func (b *MemoryBackend) Write(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}
