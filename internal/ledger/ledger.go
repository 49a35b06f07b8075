// Package ledger is the application service shared by every front-end.
package ledger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/advisor"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/report"
	"gitlab.com/yelinaung/smart-finance/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const instrumentationName = "gitlab.com/yelinaung/smart-finance/internal/ledger"

var (
	// ErrBusy is returned when the session already has an extraction running.
	ErrBusy = errors.New("an extraction is already in progress for this session")

	// ErrNotConfigured is returned when extraction or advice is requested
	// without a Gemini client.
	ErrNotConfigured = errors.New("AI features are not configured")

	// ErrNotFound is returned by Resolve when no expense matches.
	ErrNotFound = errors.New("expense not found")
)

// MinPrefixLength is the shortest ID prefix Resolve accepts.
const MinPrefixLength = 4

// Extraction sources, used as the "source" metric attribute.
const (
	SourceText  = "text"
	SourceVoice = "voice"
	SourceFile  = "file"
)

// Extractor turns user input into expense fields.
type Extractor interface {
	ExtractFromText(ctx context.Context, text string) (models.ExpenseFields, error)
	ExtractFromFile(ctx context.Context, data []byte, mimeType string) ([]models.ExpenseFields, error)
	ExtractFromVoice(ctx context.Context, audio []byte, mimeType string) (models.ExpenseFields, error)
}

// Advisor writes advice for the expense collection.
type Advisor interface {
	Advise(ctx context.Context, records []models.Expense) string
}

// ImportResult describes the records added from one document.
type ImportResult struct {
	Count   int              `json:"count"`
	Records []models.Expense `json:"records"`
}

// Service coordinates extraction, storage and advice.
type Service struct {
	store     *store.Store
	extractor Extractor
	advisor   Advisor

	mu       sync.Mutex
	sessions map[string]*semaphore.Weighted

	tracer       trace.Tracer
	extractions  metric.Int64Counter
	recordsAdded metric.Int64Counter
}

// New creates a Service. extractor and advisor may be nil, in which case
// the operations that need them return ErrNotConfigured.
func New(s *store.Store, extractor Extractor, adv Advisor) *Service {
	meter := otel.Meter(instrumentationName)

	return &Service{
		store:        s,
		extractor:    extractor,
		advisor:      adv,
		sessions:     make(map[string]*semaphore.Weighted),
		tracer:       otel.Tracer(instrumentationName),
		extractions:  counter(meter, "smart_finance.extractions", "Extraction attempts by source and outcome"),
		recordsAdded: counter(meter, "smart_finance.records.added", "Expense records added"),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		logger.Log.Warn().Err(err).Str("instrument", name).Msg("Failed to create counter")
		c, _ = noop.Meter{}.Int64Counter(name)
	}
	return c
}

// acquire claims the session's extraction slot without waiting. The slot
// is dropped from the map on release so idle sessions hold no memory.
func (s *Service) acquire(session string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sem, found := s.sessions[session]
	if !found {
		sem = semaphore.NewWeighted(1)
		s.sessions[session] = sem
	}
	if !sem.TryAcquire(1) {
		return nil, false
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sem.Release(1)
		if s.sessions[session] == sem {
			delete(s.sessions, session)
		}
	}, true
}

// AddFromText extracts one expense from text and stores it.
func (s *Service) AddFromText(ctx context.Context, session, text string) (models.Expense, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.AddFromText")
	defer span.End()

	if s.extractor == nil {
		return models.Expense{}, ErrNotConfigured
	}

	release, ok := s.acquire(session)
	if !ok {
		s.recordOutcome(ctx, span, SourceText, ErrBusy)
		return models.Expense{}, ErrBusy
	}
	defer release()

	fields, err := s.extractor.ExtractFromText(ctx, text)
	if err != nil {
		s.recordOutcome(ctx, span, SourceText, err)
		return models.Expense{}, err
	}

	return s.addOne(ctx, span, SourceText, session, fields)
}

// AddFromVoice transcribes a recording, extracts one expense and stores it.
func (s *Service) AddFromVoice(ctx context.Context, session string, audio []byte, mimeType string) (models.Expense, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.AddFromVoice")
	defer span.End()

	if s.extractor == nil {
		return models.Expense{}, ErrNotConfigured
	}

	release, ok := s.acquire(session)
	if !ok {
		s.recordOutcome(ctx, span, SourceVoice, ErrBusy)
		return models.Expense{}, ErrBusy
	}
	defer release()

	fields, err := s.extractor.ExtractFromVoice(ctx, audio, mimeType)
	if err != nil {
		s.recordOutcome(ctx, span, SourceVoice, err)
		return models.Expense{}, err
	}

	return s.addOne(ctx, span, SourceVoice, session, fields)
}

// ImportDocument extracts every expense from an image or PDF and stores
// them together. Nothing is stored if any item is rejected.
func (s *Service) ImportDocument(ctx context.Context, session string, data []byte, mimeType string) (ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.ImportDocument")
	defer span.End()

	if s.extractor == nil {
		return ImportResult{}, ErrNotConfigured
	}

	release, ok := s.acquire(session)
	if !ok {
		s.recordOutcome(ctx, span, SourceFile, ErrBusy)
		return ImportResult{}, ErrBusy
	}
	defer release()

	batch, err := s.extractor.ExtractFromFile(ctx, data, mimeType)
	if err != nil {
		s.recordOutcome(ctx, span, SourceFile, err)
		return ImportResult{}, err
	}

	records, err := s.store.AddBatch(ctx, batch)
	if err != nil {
		s.recordOutcome(ctx, span, SourceFile, err)
		return ImportResult{}, err
	}

	s.recordOutcome(ctx, span, SourceFile, nil)
	s.recordsAdded.Add(ctx, int64(len(records)), metric.WithAttributes(attribute.String("source", SourceFile)))
	span.SetAttributes(attribute.Int("records", len(records)))

	logger.Log.Info().
		Str("session_hash", logger.HashSession(session)).
		Int("records", len(records)).
		Msg("Document imported")

	return ImportResult{Count: len(records), Records: records}, nil
}

func (s *Service) addOne(
	ctx context.Context,
	span trace.Span,
	source, session string,
	fields models.ExpenseFields,
) (models.Expense, error) {
	rec, err := s.store.Add(ctx, fields)
	if err != nil {
		s.recordOutcome(ctx, span, source, err)
		return models.Expense{}, err
	}

	s.recordOutcome(ctx, span, source, nil)
	s.recordsAdded.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))

	logger.Log.Info().
		Str("session_hash", logger.HashSession(session)).
		Str("source", source).
		Str("expense_id", rec.ID).
		Str("description", logger.SanitizeDescription(rec.Description)).
		Msg("Expense added")

	return rec, nil
}

func (s *Service) recordOutcome(ctx context.Context, span trace.Span, source string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrBusy):
		outcome = "busy"
	case err != nil:
		outcome = "error"
	}

	s.extractions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}

// Delete removes the expense with id. Deleting an unknown id is a no-op
// that reports false.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Delete")
	defer span.End()

	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove failed")
		return false, err
	}
	span.SetAttributes(attribute.Bool("removed", removed))
	return removed, nil
}

// List returns every expense in insertion order.
func (s *Service) List() []models.Expense {
	return s.store.List()
}

// Get returns the expense with id.
func (s *Service) Get(id string) (models.Expense, bool) {
	return s.store.Get(id)
}

// Resolve finds the expense whose ID equals ref or, failing that, is the
// only one starting with ref. Prefixes shorter than MinPrefixLength and
// ambiguous prefixes report ErrNotFound.
func (s *Service) Resolve(ref string) (models.Expense, error) {
	ref = strings.TrimSpace(ref)
	if e, ok := s.store.Get(ref); ok {
		return e, nil
	}
	ref = strings.ToLower(ref)
	if len(ref) < MinPrefixLength {
		return models.Expense{}, ErrNotFound
	}

	var (
		match models.Expense
		found int
	)
	for _, e := range s.store.List() {
		if strings.HasPrefix(strings.ToLower(e.ID), ref) {
			match = e
			found++
		}
	}
	if found != 1 {
		return models.Expense{}, ErrNotFound
	}
	return match, nil
}

// Recent returns up to n expenses, most recently added first. n <= 0
// returns all of them.
func (s *Service) Recent(n int) []models.Expense {
	records := s.store.List()
	slices.Reverse(records)
	if n > 0 && n < len(records) {
		records = records[:n]
	}
	return records
}

// Total returns the sum of all amounts.
func (s *Service) Total() decimal.Decimal {
	return s.store.Total()
}

// Summary aggregates the collection for display.
func (s *Service) Summary() report.Summary {
	return report.Summarize(s.store.List())
}

// Advice returns Markdown advice for the whole collection. An empty
// collection gets advisor.NoDataMessage even when no advisor is configured.
func (s *Service) Advice(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Advice")
	defer span.End()

	if s.store.Len() == 0 {
		return advisor.NoDataMessage, nil
	}
	if s.advisor == nil {
		return "", ErrNotConfigured
	}
	return s.advisor.Advise(ctx, s.store.List()), nil
}
