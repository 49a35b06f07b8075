package exchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingConverter struct {
	mu    sync.Mutex
	calls int
	rate  decimal.Decimal
	date  time.Time
	delay time.Duration
	err   error
}

func (s *countingConverter) Convert(
	_ context.Context,
	amount decimal.Decimal,
	_, _ string,
) (ConversionResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return ConversionResult{}, s.err
	}
	return ConversionResult{
		Amount:   amount.Mul(s.rate).Round(2),
		Rate:     s.rate,
		RateDate: s.date,
	}, nil
}

func (s *countingConverter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestCachedService_Convert(t *testing.T) {
	t.Parallel()

	rateDate := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	t.Run("uses cache for same pair", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("7.25"), date: rateDate}
		svc := NewCachedService(upstream, time.Hour)

		got1, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("72.50").Equal(got1.Amount))

		got2, err := svc.Convert(context.Background(), decimal.RequireFromString("20"), "usd", "cny")
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("145").Equal(got2.Amount))
		require.True(t, got1.Rate.Equal(got2.Rate))
		require.Equal(t, 1, upstream.callCount())
	})

	t.Run("cache key is per pair", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("7.8"), date: rateDate}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.NoError(t, err)
		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "CNY")
		require.NoError(t, err)
		require.Equal(t, 2, upstream.callCount())
	})

	t.Run("expired entry triggers refresh", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("0.92"), date: rateDate}
		now := rateDate
		svc := NewCachedService(upstream, time.Hour, WithCacheClock(func() time.Time { return now }))

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "HKD", "CNY")
		require.NoError(t, err)

		now = now.Add(59 * time.Minute)
		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "HKD", "CNY")
		require.NoError(t, err)
		require.Equal(t, 1, upstream.callCount())

		now = now.Add(time.Minute)
		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "HKD", "CNY")
		require.NoError(t, err)
		require.Equal(t, 2, upstream.callCount())
	})

	t.Run("caller deadline does not cancel the shared fetch", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{
			rate:  decimal.RequireFromString("9.1"),
			date:  rateDate,
			delay: 50 * time.Millisecond,
		}
		svc := NewCachedService(upstream, time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		_, err := svc.Convert(ctx, decimal.RequireFromString("10"), "GBP", "CNY")
		require.ErrorIs(t, err, context.DeadlineExceeded)

		got, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "GBP", "CNY")
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("91").Equal(got.Amount))
		require.Equal(t, 1, upstream.callCount())
	})

	t.Run("concurrent misses share one request", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{
			rate:  decimal.RequireFromString("0.048"),
			date:  rateDate,
			delay: 20 * time.Millisecond,
		}
		svc := NewCachedService(upstream, time.Hour)

		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				_, err := svc.Convert(context.Background(), decimal.RequireFromString("1000"), "JPY", "CNY")
				assert.NoError(t, err)
			})
		}
		wg.Wait()
		require.Equal(t, 1, upstream.callCount())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{err: errors.New("upstream down")}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.Error(t, err)
		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.Error(t, err)
		require.Equal(t, 2, upstream.callCount())
	})

	t.Run("rejects non-positive upstream rate", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.Zero, date: rateDate}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("nil inner converter", func(t *testing.T) {
		t.Parallel()
		svc := NewCachedService(nil, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.ErrorIs(t, err, errNoUpstream)
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, DefaultCacheTTL, NewCachedService(&countingConverter{}, 0).ttl)
	})
}

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "usd", want: "USD"},
		{in: " CNY ", want: "CNY"},
		{in: "", want: ""},
		{in: "US", want: ""},
		{in: "元元元", want: ""},
		{in: "U5D", want: ""},
		{in: "rmb", want: "CNY"},
		{in: " RMB ", want: "CNY"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, NormalizeCurrency(tt.in))
		})
	}
}
