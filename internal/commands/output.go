package commands

import (
	"fmt"
	"io"
	"time"

	"gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func printExpense(w io.Writer, e models.Expense) {
	fmt.Fprintf(w, "  %s  %s  %10s  %s [%s, %s]\n",
		shortID(e.ID),
		e.Date.Format(time.DateOnly),
		report.FormatAmount(e.Amount),
		e.Description,
		e.Category,
		e.Type)
}

func printSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "Total: %s (%d expenses)\n", report.FormatAmount(s.Total), s.Count)
	if s.Count == 0 {
		return
	}

	fmt.Fprintln(w, "\nBy type:")
	for _, sl := range s.ByType {
		fmt.Fprintf(w, "  %-12s %10s  %d\n", sl.Name, report.FormatAmount(sl.Amount), sl.Count)
	}

	fmt.Fprintln(w, "\nBy category:")
	for _, sl := range s.ByCategory {
		fmt.Fprintf(w, "  %-12s %10s  %d\n", sl.Name, report.FormatAmount(sl.Amount), sl.Count)
	}
}
