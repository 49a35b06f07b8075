package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public Frankfurter endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

const (
	defaultRequestTimeout = 5 * time.Second
	maxResponseBytes      = 64 << 10
	rateDateLayout        = "2006-01-02"
)

var (
	errRateMissing     = errors.New("conversion rate missing in response")
	errNonPositiveCash = errors.New("amount must be positive")
)

// StatusError reports a non-200 answer from the rates API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exchange API returned status %d", e.Code)
}

// FrankfurterClient fetches ECB reference rates from frankfurter.app.
type FrankfurterClient struct {
	latest     *url.URL
	httpClient *http.Client
}

// latestRates is the body of GET /latest.
type latestRates struct {
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// NewFrankfurterClient creates a client whose requests are traced.
// An unparseable baseURL falls back to DefaultBaseURL.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || base.Host == "" {
		base, _ = url.Parse(DefaultBaseURL)
	}

	return &FrankfurterClient{
		latest: base.JoinPath("latest"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Convert converts amount between two ISO currency codes at the latest rate.
func (c *FrankfurterClient) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	from, to := NormalizeCurrency(fromCurrency), NormalizeCurrency(toCurrency)
	if from == "" || to == "" {
		return ConversionResult{}, fmt.Errorf("invalid currency pair %q -> %q", fromCurrency, toCurrency)
	}
	if !amount.IsPositive() {
		return ConversionResult{}, errNonPositiveCash
	}
	if from == to {
		return ConversionResult{Amount: amount, Rate: decimal.NewFromInt(1), RateDate: time.Now().UTC()}, nil
	}

	rate, date, err := c.latestRate(ctx, from, to)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("%s->%s: %w", from, to, err)
	}

	logger.Log.Debug().
		Str("pair", from+"->"+to).
		Str("rate", rate.String()).
		Time("rate_date", date).
		Msg("Fetched exchange rate")

	return ConversionResult{Amount: amount.Mul(rate).Round(2), Rate: rate, RateDate: date}, nil
}

func (c *FrankfurterClient) latestRate(ctx context.Context, from, to string) (decimal.Decimal, time.Time, error) {
	endpoint := *c.latest
	endpoint.RawQuery = url.Values{"from": {from}, "to": {to}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("request rate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, time.Time{}, &StatusError{Code: resp.StatusCode}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	dec.UseNumber()

	var body latestRates
	if err := dec.Decode(&body); err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("decode rate response: %w", err)
	}

	raw, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, time.Time{}, errRateMissing
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	if err := validateConversionRate(rate); err != nil {
		return decimal.Zero, time.Time{}, err
	}

	date, err := time.Parse(rateDateLayout, body.Date)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("parse rate date: %w", err)
	}
	return rate, date, nil
}
