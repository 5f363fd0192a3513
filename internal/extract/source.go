// Package extract turns bank notification emails into transactions.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/mail"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/shopspring/decimal"
)

// Fields are the values a format reads out of one message.
type Fields struct {
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	CardLast4   string
	Type        model.TransactionType
}

// Format recognizes and parses one message layout of an issuer.
type Format struct {
	Detect func(msg *mail.Message) bool
	Parse  func(msg *mail.Message) (Fields, error)
	Name   string
}

// Source is one issuer's notification stream in a mailbox.
type Source struct {
	ID    string
	Bank  string
	Query string
	// Limit caps the threads fetched per run. Zero means uncapped.
	Limit     int
	DebitOnly bool
	// Formats are tried in order; the first whose detector matches is the
	// only one parsed.
	Formats []Format
}

// Parse converts msg into a transaction. Messages no format recognizes, or
// that lack an amount, yield an error wrapping common.ErrParseMiss.
func (s *Source) Parse(msg *mail.Message) (*model.Transaction, error) {
	format, ok := s.detect(msg)
	if !ok {
		return nil, fmt.Errorf("%s: no format matched: %w", s.ID, common.ErrParseMiss)
	}

	fields, err := format.Parse(msg)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", s.ID, format.Name, err)
	}

	tx := &model.Transaction{
		Bank:        s.Bank,
		Date:        fields.Date,
		Amount:      fields.Amount,
		Description: fields.Description,
		Type:        fields.Type,
		CardLast4:   fields.CardLast4,
	}
	if tx.Date.IsZero() {
		tx.Date = msg.Date
	}
	if s.DebitOnly || tx.Type == "" {
		tx.Type = model.TypeDebit
	}
	return tx, nil
}

func (s *Source) detect(msg *mail.Message) (Format, bool) {
	for _, f := range s.Formats {
		if f.Detect == nil || f.Detect(msg) {
			return f, true
		}
	}
	return Format{}, false
}

// InferType classifies a message body as a credit when it mentions money
// coming in, and a debit otherwise.
func InferType(body string) model.TransactionType {
	if common.ContainsAny(body, "credited", "Payment received") {
		return model.TypeCredit
	}
	return model.TypeDebit
}

// amountFrom parses a captured amount, treating a missing capture as a miss.
func amountFrom(raw string, ok bool) (decimal.Decimal, error) {
	if !ok {
		return decimal.Zero, fmt.Errorf("amount: %w", common.ErrParseMiss)
	}
	return model.ParseAmount(raw)
}

// dateFrom parses a captured body date with layout in loc. A missing or
// malformed capture yields the zero time so the receipt time is used.
func dateFrom(raw string, ok bool, loc *time.Location, layouts ...string) time.Time {
	if !ok {
		return time.Time{}
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
