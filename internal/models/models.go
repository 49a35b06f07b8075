// Package models defines the domain entities for the expense tracker.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every stored amount is expressed in.
const BaseCurrency = "CNY"

// DefaultCategory is used when the extracted category is blank.
const DefaultCategory = "其他"

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// ExpenseType classifies an expense as essential or discretionary.
type ExpenseType string

// Expense types.
const (
	ExpenseTypeNeed ExpenseType = "Need"
	ExpenseTypeWant ExpenseType = "Want"
)

// Valid reports whether t is one of the known expense types.
func (t ExpenseType) Valid() bool {
	return t == ExpenseTypeNeed || t == ExpenseTypeWant
}

// ParseExpenseType normalises s into an ExpenseType, ignoring case and surrounding space.
func ParseExpenseType(s string) (ExpenseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "need":
		return ExpenseTypeNeed, nil
	case "want":
		return ExpenseTypeWant, nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown expense type %q", s)}
	}
}

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExpenseFields is an expense as produced by extraction, before it has an ID.
type ExpenseFields struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Type        ExpenseType     `json:"type"`
	Date        time.Time       `json:"date"`
}

// Validate checks the invariants every stored expense must satisfy.
// A blank category is replaced with DefaultCategory.
func (f *ExpenseFields) Validate() error {
	f.Description = strings.TrimSpace(f.Description)
	if f.Description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !f.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if !f.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown expense type %q", f.Type)}
	}
	f.Category = strings.TrimSpace(f.Category)
	if f.Category == "" {
		f.Category = DefaultCategory
	}
	if utf8.RuneCountInString(f.Category) > MaxCategoryNameLength {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("longer than %d characters", MaxCategoryNameLength)}
	}
	if f.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "must be set"}
	}
	return nil
}

// Expense represents a single stored expense entry.
type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Type        ExpenseType     `json:"type"`
	Date        time.Time       `json:"date"`
}

// NewExpense attaches an ID to extracted fields.
func NewExpense(id string, f ExpenseFields) Expense {
	return Expense{
		ID:          id,
		Description: f.Description,
		Amount:      f.Amount,
		Category:    f.Category,
		Type:        f.Type,
		Date:        f.Date,
	}
}

// Fields returns the expense without its ID.
func (e Expense) Fields() ExpenseFields {
	return ExpenseFields{
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Type:        e.Type,
		Date:        e.Date,
	}
}
