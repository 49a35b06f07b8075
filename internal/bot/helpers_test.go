package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/config"
	"gitlab.com/yelinaung/smart-finance/internal/extraction"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	appmodels "gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/store"
)

var testNow = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

// fakeExtractor returns canned extraction results.
type fakeExtractor struct {
	mu sync.Mutex

	fields appmodels.ExpenseFields
	batch  []appmodels.ExpenseFields
	err    error

	lastMIME  string
	lastBytes []byte
}

func (f *fakeExtractor) ExtractFromText(_ context.Context, _ string) (appmodels.ExpenseFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields, f.err
}

func (f *fakeExtractor) ExtractFromFile(_ context.Context, data []byte, mimeType string) ([]appmodels.ExpenseFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMIME = mimeType
	f.lastBytes = data
	return f.batch, f.err
}

func (f *fakeExtractor) ExtractFromVoice(_ context.Context, audio []byte, mimeType string) (appmodels.ExpenseFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMIME = mimeType
	f.lastBytes = audio
	return f.fields, f.err
}

type fakeAdvisor struct {
	advice string
}

func (a fakeAdvisor) Advise(_ context.Context, records []appmodels.Expense) string {
	if len(records) == 0 {
		return "暂无数据，无法分析。"
	}
	return a.advice
}

func lunchFields() appmodels.ExpenseFields {
	return appmodels.ExpenseFields{
		Description: "吃午饭",
		Amount:      decimal.NewFromInt(20),
		Category:    "餐饮",
		Type:        appmodels.ExpenseTypeNeed,
		Date:        testNow,
	}
}

func parseFailure() error {
	return &extraction.ExtractionError{Kind: extraction.KindParse, Err: extraction.ErrEmptyInput}
}

// setupTestBot creates a Bot backed by an in-memory ledger.
func setupTestBot(t *testing.T, ext ledger.Extractor, adv ledger.Advisor) *Bot {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken:     "test-token",
		WhitelistedUserIDs:   []int64{123456},
		WhitelistedUsernames: []string{"alice"},
	}

	svc := ledger.New(store.New(store.NewMemoryBackend()), ext, adv)
	b := newBot(cfg, svc)
	b.now = func() time.Time { return testNow }
	return b
}

// seed adds expenses directly through the ledger.
func seed(t *testing.T, b *Bot, ext *fakeExtractor, items ...appmodels.ExpenseFields) []appmodels.Expense {
	t.Helper()

	ext.mu.Lock()
	ext.batch = items
	ext.mu.Unlock()

	res, err := b.ledger.ImportDocument(context.Background(), "seed", []byte{1}, "image/png")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return res.Records
}

// fileServer serves body for every request.
func fileServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
