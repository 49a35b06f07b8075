// Package exchange converts foreign-currency amounts into the base currency.
package exchange

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidRate indicates an upstream rate that cannot be applied.
var ErrInvalidRate = errors.New("conversion rate must be positive")

// ConversionResult contains converted amount details.
type ConversionResult struct {
	Amount   decimal.Decimal
	Rate     decimal.Decimal
	RateDate time.Time
}

// Converter converts amounts between currencies.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, fromCurrency, toCurrency string) (ConversionResult, error)
}

// currencyAliases maps colloquial codes to their ISO 4217 form.
var currencyAliases = map[string]string{
	"RMB": "CNY",
}

// NormalizeCurrency upper-cases and trims a currency code, resolving
// aliases such as RMB. It returns "" for anything that is not three ASCII letters.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if alias, ok := currencyAliases[code]; ok {
		return alias
	}
	if len(code) != 3 {
		return ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return code
}

func validateConversionRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}
