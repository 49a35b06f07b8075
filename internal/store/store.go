// Package store keeps the ordered expense collection and persists it as a whole.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/models"
)

// DefaultKey is the storage key the collection is written under.
const DefaultKey = "smart_finance_expenses"

// Store is the in-memory, write-through expense collection.
// Records keep insertion order and are never mutated after insertion.
type Store struct {
	backend Backend
	newID   func() string

	mu      sync.RWMutex
	records []models.Expense
}

// Option customises a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator. Used by tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates an empty Store backed by backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		newID:   uuid.NewString,
		records: []models.Expense{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one.
// Unreadable or corrupt data yields an empty collection and a warning.
func (s *Store) Load(ctx context.Context) {
	records := s.read(ctx)

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	logger.Log.Info().Int("records", len(records)).Msg("Expense store loaded")
}

func (s *Store) read(ctx context.Context) []models.Expense {
	data, err := s.backend.Read(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to read persisted expenses, starting empty")
		return []models.Expense{}
	}
	if len(data) == 0 {
		return []models.Expense{}
	}

	var decoded []models.Expense
	if err := json.Unmarshal(data, &decoded); err != nil {
		logger.Log.Warn().Err(err).Int("bytes", len(data)).Msg("Persisted expenses are corrupt, starting empty")
		return []models.Expense{}
	}

	records := make([]models.Expense, 0, len(decoded))
	seen := make(map[string]struct{}, len(decoded))
	for i, rec := range decoded {
		if rec.ID == "" {
			logger.Log.Warn().Int("index", i).Msg("Skipping persisted expense without id")
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			logger.Log.Warn().Int("index", i).Str("expense_id", rec.ID).Msg("Skipping duplicate persisted expense")
			continue
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}
	return records
}

// Add validates fields, assigns a fresh id, appends the record and persists.
func (s *Store) Add(ctx context.Context, fields models.ExpenseFields) (models.Expense, error) {
	added, err := s.AddBatch(ctx, []models.ExpenseFields{fields})
	if err != nil {
		return models.Expense{}, err
	}
	return added[0], nil
}

// AddBatch appends every item in order and persists once.
// Either all items are stored or none are.
func (s *Store) AddBatch(ctx context.Context, batch []models.ExpenseFields) ([]models.Expense, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	batch = slices.Clone(batch)
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.records
	next := slices.Clone(prev)
	added := make([]models.Expense, 0, len(batch))
	for _, fields := range batch {
		rec := models.NewExpense(s.uniqueIDLocked(next), fields)
		next = append(next, rec)
		added = append(added, rec)
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.records = next

	return added, nil
}

// uniqueIDLocked returns an id not already present in records.
func (s *Store) uniqueIDLocked(records []models.Expense) string {
	for {
		id := s.newID()
		if id != "" && !slices.ContainsFunc(records, func(e models.Expense) bool { return e.ID == id }) {
			return id
		}
	}
}

// Remove deletes the record with id. An unknown id is a no-op and is not persisted.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.records, func(e models.Expense) bool { return e.ID == id })
	if idx < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.records), idx, idx+1)
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.records = next

	return true, nil
}

func (s *Store) persist(ctx context.Context, records []models.Expense) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode expenses: %w", err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		logger.Log.Error().Err(err).Int("records", len(records)).Msg("Failed to persist expenses")
		return fmt.Errorf("failed to persist expenses: %w", err)
	}
	return nil
}

// Total sums every amount. It is recomputed on each call.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, rec := range s.records {
		total = total.Add(rec.Amount)
	}
	return total
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []models.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Get returns the record with id.
func (s *Store) Get(id string) (models.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := slices.IndexFunc(s.records, func(e models.Expense) bool { return e.ID == id })
	if idx < 0 {
		return models.Expense{}, false
	}
	return s.records[idx], true
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
