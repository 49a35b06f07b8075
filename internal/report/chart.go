package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/smart-finance/internal/models"
)

var (
	// ErrNoData indicates there is nothing to chart.
	ErrNoData = errors.New("no expenses to chart")
	// ErrUnknownChart is returned for a chart kind that is not supported.
	ErrUnknownChart = errors.New("unknown chart kind")
)

// Chart kinds.
const (
	ChartCategory  = "category"
	ChartNecessity = "type"
)

// ParseChartKind resolves user input to a chart kind. Empty input selects
// the category chart; "need" and "want" are accepted for the Need/Want chart.
func ParseChartKind(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ChartCategory:
		return ChartCategory, nil
	case ChartNecessity, "need", "want":
		return ChartNecessity, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownChart, s)
	}
}

// Chart renders the chart of the given kind.
func Chart(kind string, records []models.Expense) ([]byte, error) {
	switch kind {
	case ChartCategory, "":
		return CategoryChart(records)
	case ChartNecessity:
		return NecessityChart(records)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownChart, kind)
	}
}

// CategoryChart renders a PNG pie chart of spending per category.
func CategoryChart(records []models.Expense) ([]byte, error) {
	return pieChart("Spending by Category", ByCategory(records))
}

// NecessityChart renders a PNG pie chart of Need versus Want spending.
func NecessityChart(records []models.Expense) ([]byte, error) {
	return pieChart("Need vs Want", ByType(records))
}

func pieChart(title string, data []Slice) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, 0, len(data))
	names := make([]string, 0, len(data))
	for _, s := range data {
		values = append(values, s.Amount.InexactFloat64())
		names = append(names, s.Name)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}
