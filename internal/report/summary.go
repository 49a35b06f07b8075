// Package report aggregates expenses and renders them as charts and CSV.
package report

import (
	"cmp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/models"
)

// Slice is the total of one group of expenses.
type Slice struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// Summary is the aggregate view of the whole collection.
type Summary struct {
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	ByCategory []Slice         `json:"by_category"`
	ByType     []Slice         `json:"by_type"`
}

// Summarize aggregates records into totals and breakdowns.
func Summarize(records []models.Expense) Summary {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return Summary{
		Total:      total,
		Count:      len(records),
		ByCategory: ByCategory(records),
		ByType:     ByType(records),
	}
}

// ByCategory sums amounts per category, largest first.
func ByCategory(records []models.Expense) []Slice {
	return aggregate(records, func(r models.Expense) string {
		if r.Category == "" {
			return models.DefaultCategory
		}
		return r.Category
	})
}

// ByType sums amounts per Need/Want classification, largest first.
func ByType(records []models.Expense) []Slice {
	return aggregate(records, func(r models.Expense) string {
		return string(r.Type)
	})
}

func aggregate(records []models.Expense, key func(models.Expense) string) []Slice {
	index := make(map[string]int)
	var out []Slice
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Slice{Name: k, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
		out[i].Count++
	}

	slices.SortStableFunc(out, func(a, b Slice) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

var baseCurrency atomic.Pointer[string]

// currencySymbols lists the codes rendered with a symbol instead of the code.
var currencySymbols = map[string]string{
	"CNY": "¥",
}

// SetBaseCurrency selects the currency FormatAmount renders. A blank code
// restores models.BaseCurrency.
func SetBaseCurrency(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = models.BaseCurrency
	}
	baseCurrency.Store(&code)
}

// FormatAmount renders an amount in the base currency, e.g. "¥20.00".
func FormatAmount(amount decimal.Decimal) string {
	code := models.BaseCurrency
	if p := baseCurrency.Load(); p != nil {
		code = *p
	}
	return FormatMoney(amount, code)
}

// FormatMoney renders amount in currency code: "¥20.00" for CNY and
// "SGD 20.00" for codes without a symbol.
func FormatMoney(amount decimal.Decimal, code string) string {
	if symbol, ok := currencySymbols[code]; ok {
		return symbol + amount.StringFixed(2)
	}
	return code + " " + amount.StringFixed(2)
}
