package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is used when NewCachedService gets a non-positive TTL.
const DefaultCacheTTL = 12 * time.Hour

var errNoUpstream = errors.New("exchange: cached service has no upstream converter")

// quote is one remembered rate for a currency pair.
type quote struct {
	rate    decimal.Decimal
	date    time.Time
	fetched time.Time
}

func (q quote) apply(amount decimal.Decimal) ConversionResult {
	return ConversionResult{
		Amount:   amount.Mul(q.rate).Round(2),
		Rate:     q.rate,
		RateDate: q.date,
	}
}

// CachedService remembers a rate per currency pair for a TTL.
// Concurrent misses on one pair share a single upstream request, which runs
// detached from the callers so one caller's deadline cannot fail the others.
type CachedService struct {
	inner Converter
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	quotes map[string]quote

	lookups metric.Int64Counter
}

// CacheOption configures a CachedService.
type CacheOption func(*CachedService)

// WithCacheClock replaces time.Now for expiry decisions.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(s *CachedService) { s.now = now }
}

// NewCachedService wraps inner with a TTL rate cache.
func NewCachedService(inner Converter, ttl time.Duration, opts ...CacheOption) *CachedService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	lookups, err := otel.Meter("gitlab.com/yelinaung/smart-finance/internal/exchange").
		Int64Counter("smart_finance.fx.lookups", metric.WithDescription("Rate lookups by cache result"))
	if err != nil {
		lookups, _ = noop.Meter{}.Int64Counter("smart_finance.fx.lookups")
	}

	s := &CachedService{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		quotes:  make(map[string]quote),
		lookups: lookups,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func pairKey(from, to string) string {
	return NormalizeCurrency(from) + "->" + NormalizeCurrency(to)
}

// Convert converts amount with a cached rate, fetching one on a miss.
func (s *CachedService) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	if s.inner == nil {
		return ConversionResult{}, errNoUpstream
	}

	pair := pairKey(fromCurrency, toCurrency)
	if q, ok := s.fresh(pair); ok {
		s.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "hit")))
		return q.apply(amount), nil
	}
	s.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "miss")))

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(pair, func() (any, error) {
		return s.refresh(detached, pair, fromCurrency, toCurrency)
	})

	select {
	case <-ctx.Done():
		return ConversionResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ConversionResult{}, res.Err
		}
		q, _ := res.Val.(quote)
		return q.apply(amount), nil
	}
}

func (s *CachedService) fresh(pair string) (quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[pair]
	if !ok {
		return quote{}, false
	}
	if s.now().Sub(q.fetched) >= s.ttl {
		delete(s.quotes, pair)
		return quote{}, false
	}
	return q, true
}

// refresh asks upstream for the rate of one unit and stores it. Failures are not cached.
func (s *CachedService) refresh(ctx context.Context, pair, from, to string) (quote, error) {
	result, err := s.inner.Convert(ctx, decimal.NewFromInt(1), from, to)
	if err == nil {
		err = validateConversionRate(result.Rate)
	}
	if err != nil {
		logger.Log.Warn().Err(err).Str("pair", pair).Msg("Exchange rate refresh failed")
		return quote{}, err
	}

	q := quote{rate: result.Rate, date: result.RateDate, fetched: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, old := range s.quotes {
		if q.fetched.Sub(old.fetched) >= s.ttl {
			delete(s.quotes, key)
		}
	}
	s.quotes[pair] = q
	return q, nil
}
