package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
)

// Row is one ledger line as stored: a list of cell values.
type Row []string

// Column positions in a ledger row (zero based).
const (
	ColBank = iota
	ColDate
	ColAmount
	ColDescription
	ColType
	ColCategory
	ColCardLast4
	ColMonth
	ColYear
	ColSource
)

// LedgerColumns is the number of columns in a per-owner ledger.
const LedgerColumns = ColYear + 1

// MasterColumns is the number of columns in the Master ledger.
const MasterColumns = ColSource + 1

var header = []string{
	"Bank", "Date", "Amount", "Transaction Info", "Transaction Type",
	"Category", "Card Last 4", "Month", "Year",
}

// Header returns the header row of a per-owner ledger.
func Header() Row {
	return append(Row(nil), header...)
}

// MasterHeader returns the header row of the Master ledger, which carries a
// trailing Source column.
func MasterHeader() Row {
	return append(Header(), "Source")
}

// Cell returns the value at column i, or "" if the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	return append(Row(nil), r...)
}

// ValidateRow applies the persisted-row rule: at least minCols cells, bank,
// date and amount present, and a numeric amount greater than zero.
func ValidateRow(r Row, minCols int) error {
	if len(r) < minCols {
		return invalidRow(fmt.Sprintf("expected %d columns, got %d", minCols, len(r)))
	}
	if r.Cell(ColBank) == "" {
		return invalidRow("missing bank")
	}
	if r.Cell(ColDate) == "" {
		return invalidRow("missing date")
	}
	if r.Cell(ColAmount) == "" {
		return invalidRow("missing amount")
	}
	if _, err := ParseAmount(r.Cell(ColAmount)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidRow, err)
	}
	return nil
}

// RowKey returns a normalized identity for a ledger row built from bank,
// date, amount, description and card. Rows that encode the same transaction
// through different cell formats share a key.
func RowKey(r Row, loc *time.Location) (string, error) {
	date, err := ParseDate(r.Cell(ColDate), loc)
	if err != nil {
		return "", err
	}
	amount, err := ParseAmount(r.Cell(ColAmount))
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		strings.TrimSpace(r.Cell(ColBank)),
		FormatDate(date, loc),
		FormatAmount(amount),
		strings.TrimSpace(r.Cell(ColDescription)),
		normalizeCard(r.Cell(ColCardLast4)),
	}, "|"), nil
}

// IsTextColumn reports whether the zero-based column holds free text that a
// spreadsheet must store exactly as written.
func IsTextColumn(col int) bool {
	return col == ColDescription || col == ColCardLast4
}

// normalizeCard drops the leading zeros a spreadsheet strips when it reads
// a card suffix as a number.
func normalizeCard(card string) string {
	card = strings.TrimSpace(card)
	if trimmed := strings.TrimLeft(card, "0"); trimmed != "" {
		return trimmed
	}
	return card
}

func invalidRow(reason string) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidRow, reason)
}
