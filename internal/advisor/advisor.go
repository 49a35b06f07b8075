// Package advisor produces AI-written financial advice for the expense ledger.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/smart-finance/internal/gemini"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

// Fixed replies returned instead of errors.
const (
	NoDataMessage       = "暂无数据，无法分析。"
	EmptyAdviceMessage  = "生成建议失败，请稍后重试。"
	ServiceErrorMessage = "生成建议时发生错误，请检查网络或稍后重试。"
)

// Generator is the subset of the Gemini client the Advisor depends on.
type Generator interface {
	GenerateAdvice(ctx context.Context, ledger string) (string, error)
}

// Advisor turns the expense collection into Markdown advice.
type Advisor struct {
	generator Generator
}

// New creates an Advisor.
func New(generator Generator) *Advisor {
	return &Advisor{generator: generator}
}

// Advise returns Markdown advice for records. It never fails: an empty
// collection or a failed call produce a fixed message instead.
func (a *Advisor) Advise(ctx context.Context, records []models.Expense) string {
	if len(records) == 0 {
		return NoDataMessage
	}

	advice, err := a.generator.GenerateAdvice(ctx, FormatLedger(records))
	switch {
	case errors.Is(err, gemini.ErrEmptyResponse):
		logger.Log.Warn().Msg("Advice generation returned no text")
		return EmptyAdviceMessage
	case err != nil:
		logger.Log.Error().Err(err).Int("records", len(records)).Msg("Advice generation failed")
		return ServiceErrorMessage
	}

	advice = strings.TrimSpace(advice)
	if advice == "" {
		return EmptyAdviceMessage
	}
	return advice
}

// FormatLedger renders one "- date: description (category) - amount [type]"
// line per record.
func FormatLedger(records []models.Expense) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s) - %s [%s]",
			r.Date.UTC().Format(time.DateOnly),
			r.Description,
			r.Category,
			report.FormatAmount(r.Amount),
			r.Type,
		))
	}
	return strings.Join(lines, "\n")
}
