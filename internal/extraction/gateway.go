// Package extraction turns free text, recordings and documents into
// validated expense fields.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/smart-finance/internal/exchange"
	"gitlab.com/yelinaung/smart-finance/internal/gemini"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/models"
)

// Parser is the subset of the Gemini client the Gateway depends on.
type Parser interface {
	ParseExpenseText(ctx context.Context, text string) (*gemini.ExpenseCandidate, error)
	ParseExpenseDocument(ctx context.Context, data []byte, mimeType string) ([]gemini.ExpenseCandidate, error)
	TranscribeVoice(ctx context.Context, audio []byte, mimeType, language string) (string, error)
}

// Gateway converts unstructured input into expense fields. It never
// commits state and never retries.
type Gateway struct {
	parser        Parser
	converter     exchange.Converter
	baseCurrency  string
	voiceLanguage string
	now           func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithConverter enables conversion of foreign-currency amounts.
func WithConverter(c exchange.Converter) Option {
	return func(g *Gateway) {
		g.converter = c
	}
}

// WithBaseCurrency sets the currency stored amounts are expressed in.
func WithBaseCurrency(code string) Option {
	return func(g *Gateway) {
		if normalized := exchange.NormalizeCurrency(code); normalized != "" {
			g.baseCurrency = normalized
		}
	}
}

// WithVoiceLanguage sets the locale used for transcription.
func WithVoiceLanguage(lang string) Option {
	return func(g *Gateway) {
		if lang = strings.TrimSpace(lang); lang != "" {
			g.voiceLanguage = lang
		}
	}
}

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway creates a Gateway backed by parser.
func NewGateway(parser Parser, opts ...Option) *Gateway {
	g := &Gateway{
		parser:        parser,
		baseCurrency:  models.BaseCurrency,
		voiceLanguage: gemini.DefaultVoiceLanguage,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ExtractFromText extracts a single expense from free text. The date is
// always the time of the call.
func (g *Gateway) ExtractFromText(ctx context.Context, text string) (models.ExpenseFields, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ExpenseFields{}, newError(KindInput, ErrEmptyInput)
	}

	candidate, err := g.parser.ParseExpenseText(ctx, text)
	if err != nil {
		return models.ExpenseFields{}, newError(classify(err), err)
	}
	if candidate == nil {
		return models.ExpenseFields{}, newError(KindParse, gemini.ErrEmptyResponse)
	}

	fields, err := g.toFields(ctx, *candidate, g.now())
	if err != nil {
		return models.ExpenseFields{}, newError(KindParse, err)
	}

	return fields, nil
}

// ExtractFromFile extracts every expense line item from an image or PDF.
// The batch is all-or-nothing: one malformed item rejects the whole file.
func (g *Gateway) ExtractFromFile(ctx context.Context, data []byte, mimeType string) ([]models.ExpenseFields, error) {
	if len(data) == 0 {
		return nil, newError(KindInput, ErrEmptyInput)
	}
	mimeType = normalizeMIME(mimeType)
	if !SupportedDocument(mimeType) {
		return nil, newError(KindInput, fmt.Errorf("%w: %q", ErrUnsupportedMedia, mimeType))
	}

	candidates, err := g.parser.ParseExpenseDocument(ctx, data, mimeType)
	if err != nil {
		kind := classify(err)
		if errors.Is(err, gemini.ErrEmptyResponse) {
			kind = KindNoRecords
		}
		return nil, newError(kind, err)
	}
	if len(candidates) == 0 {
		return nil, newError(KindNoRecords, gemini.ErrNoRecords)
	}

	now := g.now()
	out := make([]models.ExpenseFields, 0, len(candidates))
	for i, c := range candidates {
		date, err := parseItemDate(c.Date, now)
		if err != nil {
			return nil, newError(KindParse, fmt.Errorf("item %d: %w", i, err))
		}
		fields, err := g.toFields(ctx, c, date)
		if err != nil {
			return nil, newError(KindParse, fmt.Errorf("item %d: %w", i, err))
		}
		out = append(out, fields)
	}

	return out, nil
}

// ExtractFromVoice transcribes a recording and extracts an expense from the
// transcript. A failed transcription matches ErrVoiceCapture.
func (g *Gateway) ExtractFromVoice(ctx context.Context, audio []byte, mimeType string) (models.ExpenseFields, error) {
	if len(audio) == 0 {
		return models.ExpenseFields{}, newError(KindInput, ErrEmptyInput)
	}
	mimeType = normalizeMIME(mimeType)
	if !SupportedAudio(mimeType) {
		return models.ExpenseFields{}, newError(KindInput, fmt.Errorf("%w: %q", ErrUnsupportedMedia, mimeType))
	}

	transcript, err := g.parser.TranscribeVoice(ctx, audio, mimeType, g.voiceLanguage)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Voice transcription failed")
		return models.ExpenseFields{}, newError(KindService, fmt.Errorf("%w: %w", ErrVoiceCapture, err))
	}

	return g.ExtractFromText(ctx, transcript)
}

func (g *Gateway) toFields(ctx context.Context, c gemini.ExpenseCandidate, date time.Time) (models.ExpenseFields, error) {
	description := truncateRunes(strings.TrimSpace(c.Description), gemini.MaxDescriptionLength)
	if description == "" {
		return models.ExpenseFields{}, &models.ValidationError{Field: "description", Reason: "missing"}
	}
	if c.Amount == nil || c.Amount.IsZero() {
		return models.ExpenseFields{}, &models.ValidationError{Field: "amount", Reason: "missing"}
	}

	expenseType, err := models.ParseExpenseType(c.Type)
	if err != nil {
		return models.ExpenseFields{}, err
	}

	amount, description := g.convert(ctx, *c.Amount, c.Currency, description)

	fields := models.ExpenseFields{
		Description: description,
		Amount:      amount,
		Category:    gemini.SanitizeCategoryName(c.Category),
		Type:        expenseType,
		Date:        date,
	}
	if err := fields.Validate(); err != nil {
		return models.ExpenseFields{}, err
	}

	return fields, nil
}

func parseItemDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", raw)}
	}
	return d, nil
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

func truncateRunes(s string, limit int) string {
	if runes := []rune(s); len(runes) > limit {
		return strings.TrimSpace(string(runes[:limit]))
	}
	return s
}

// SupportedAudio reports whether mimeType can be sent for transcription.
func SupportedAudio(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "audio/")
}

// SupportedDocument reports whether mimeType can be imported.
func SupportedDocument(mimeType string) bool {
	mimeType = normalizeMIME(mimeType)
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}
