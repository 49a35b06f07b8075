package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrankfurterClient_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts successfully", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/latest", r.URL.Path)
			assert.Equal(t, "USD", r.URL.Query().Get("from"))
			assert.Equal(t, "CNY", r.URL.Query().Get("to"))
			_, _ = w.Write([]byte(`{"amount":1,"base":"USD","date":"2026-02-14","rates":{"CNY":7.25}}`))
		}))
		defer server.Close()

		client := NewFrankfurterClient(server.URL+"/", time.Second)
		got, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "usd", "cny")
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("72.50").Equal(got.Amount))
		require.True(t, decimal.RequireFromString("7.25").Equal(got.Rate))
		require.Equal(t, "2026-02-14", got.RateDate.Format("2006-01-02"))
	})

	t.Run("returns error on non 200 response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewFrankfurterClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusBadGateway, statusErr.Code)
		require.Contains(t, err.Error(), "USD->CNY")
	})

	t.Run("returns error when target rate is missing", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"amount":1,"base":"USD","date":"2026-02-14","rates":{"EUR":0.93}}`))
		}))
		defer server.Close()

		client := NewFrankfurterClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.ErrorIs(t, err, errRateMissing)
	})

	t.Run("returns error when target rate is non-positive", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"amount":1,"base":"USD","date":"2026-02-14","rates":{"CNY":0}}`))
		}))
		defer server.Close()

		client := NewFrankfurterClient(server.URL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("10"), "USD", "CNY")
		require.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("falls back to default endpoint", func(t *testing.T) {
		t.Parallel()

		for _, base := range []string{"", "not a url", "://"} {
			client := NewFrankfurterClient(base, 0)
			require.Equal(t, DefaultBaseURL+"/latest", client.latest.String())
			require.Equal(t, defaultRequestTimeout, client.httpClient.Timeout)
		}
	})

	t.Run("returns same amount for same currency", func(t *testing.T) {
		t.Parallel()

		client := NewFrankfurterClient("", 0)
		got, err := client.Convert(context.Background(), decimal.RequireFromString("12.34"), "CNY", "cny")
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("12.34").Equal(got.Amount))
		require.True(t, decimal.NewFromInt(1).Equal(got.Rate))
	})

	t.Run("rejects invalid currency codes", func(t *testing.T) {
		t.Parallel()

		client := NewFrankfurterClient(DefaultBaseURL, time.Second)
		_, err := client.Convert(context.Background(), decimal.RequireFromString("1"), "dollars", "CNY")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid currency pair")
	})

	t.Run("returns validation error for non-positive amount", func(t *testing.T) {
		t.Parallel()

		client := NewFrankfurterClient(DefaultBaseURL, time.Second)
		_, err := client.Convert(context.Background(), decimal.Zero, "USD", "CNY")
		require.ErrorIs(t, err, errNonPositiveCash)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = fmt.Fprint(w, `{"amount":1,"base":"USD","date":"2026-02-14","rates":{"CNY":7.25}}`)
		}))
		defer server.Close()

		client := NewFrankfurterClient(server.URL, time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := client.Convert(ctx, decimal.RequireFromString("10"), "USD", "CNY")
		require.Error(t, err)
	})
}
