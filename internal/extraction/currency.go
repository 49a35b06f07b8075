package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/exchange"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

func appendOriginalAmount(
	description string,
	originalAmount decimal.Decimal,
	originalCurrency string,
	result exchange.ConversionResult,
	targetCurrency string,
) string {
	return appendMetadata(description, fmt.Sprintf(
		"[orig: %s %s -> %s %s @ %s (%s)]",
		originalAmount.StringFixed(2),
		originalCurrency,
		result.Amount.StringFixed(2),
		targetCurrency,
		result.Rate.StringFixed(4),
		result.RateDate.Format("2006-01-02"),
	))
}

func appendConversionUnavailable(description, originalCurrency, targetCurrency string) string {
	return appendMetadata(description,
		fmt.Sprintf("[fx_unavailable: kept %s, target %s]", originalCurrency, targetCurrency))
}

func appendMetadata(description, metadata string) string {
	if strings.TrimSpace(description) == "" {
		return metadata
	}
	return description + " " + metadata
}

// convert brings amount into the base currency, rounded to cents. An empty,
// unknown or base currency leaves the amount untouched; a failed lookup keeps
// the original amount and annotates the description.
func (g *Gateway) convert(
	ctx context.Context,
	amount decimal.Decimal,
	currency string,
	description string,
) (decimal.Decimal, string) {
	source := exchange.NormalizeCurrency(currency)
	if source == "" || source == g.baseCurrency {
		return amount, description
	}

	if g.converter == nil {
		logger.Log.Warn().
			Str("source_currency", source).
			Str("target_currency", g.baseCurrency).
			Msg("Exchange service unavailable; keeping original amount")
		return amount, appendConversionUnavailable(description, source, g.baseCurrency)
	}

	result, err := g.converter.Convert(ctx, amount, source, g.baseCurrency)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("source_currency", source).
			Str("target_currency", g.baseCurrency).
			Msg("Exchange lookup failed; keeping original amount")
		return amount, appendConversionUnavailable(description, source, g.baseCurrency)
	}

	result.Amount = result.Amount.Round(2)
	return result.Amount, appendOriginalAmount(description, amount, source, result, g.baseCurrency)
}
