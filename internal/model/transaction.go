// Package model defines the canonical transaction record and its ledger row encoding.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money leaving an account from money coming in.
type TransactionType string

// Transaction types.
const (
	TypeDebit  TransactionType = "Debit"
	TypeCredit TransactionType = "Credit"
)

// Placeholder values written when a message does not carry a field.
const (
	Unknown         = "Unknown"
	DefaultCategory = "Others"
)

// Transaction represents a single card transaction extracted from a notification.
type Transaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	Bank        string
	Description string
	Type        TransactionType
	Category    string
	CardLast4   string
}

// Month returns the full month name of the transaction date in loc.
func (t *Transaction) Month(loc *time.Location) string {
	return t.Date.In(loc).Format("January")
}

// Year returns the four digit year of the transaction date in loc.
func (t *Transaction) Year(loc *time.Location) string {
	return t.Date.In(loc).Format("2006")
}

// Normalize fills the placeholder values for optional fields.
func (t *Transaction) Normalize() {
	if t.Description == "" {
		t.Description = Unknown
	}
	if t.CardLast4 == "" {
		t.CardLast4 = Unknown
	}
	if t.Type == "" {
		t.Type = TypeDebit
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
}

// Validate reports whether the transaction may be persisted: bank and date
// must be present and the amount strictly positive.
func (t *Transaction) Validate() error {
	if t.Bank == "" {
		return invalidRow("missing bank")
	}
	if t.Date.IsZero() {
		return invalidRow("missing date")
	}
	if !t.Amount.IsPositive() {
		return invalidRow("amount must be positive")
	}
	return nil
}

// ToRow encodes the transaction into ledger cells in column order.
func (t *Transaction) ToRow(loc *time.Location) Row {
	return Row{
		t.Bank,
		FormatDate(t.Date, loc),
		FormatAmount(t.Amount),
		t.Description,
		string(t.Type),
		t.Category,
		t.CardLast4,
		t.Month(loc),
		t.Year(loc),
	}
}
