package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"gitlab.com/yelinaung/smart-finance/internal/models"
)

// ExportCSV writes records as CSV with a header row, in insertion order.
func ExportCSV(records []models.Expense) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"ID", "Date", "Amount", "Description", "Category", "Type"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range records {
		row := []string{
			records[i].ID,
			records[i].Date.Format(time.DateTime),
			records[i].Amount.StringFixed(2),
			records[i].Description,
			records[i].Category,
			string(records[i].Type),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportFilename returns a dated file name for a CSV export.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("expenses_%s.csv", now.Format(time.DateOnly))
}

// ChartFilename returns a dated file name for a chart of the given kind.
func ChartFilename(kind string, now time.Time) string {
	if kind == "" {
		kind = ChartCategory
	}
	return fmt.Sprintf("chart_%s_%s.png", kind, now.Format(time.DateOnly))
}
