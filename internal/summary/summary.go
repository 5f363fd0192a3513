// Package summary aggregates the Master ledger into a daily spend digest.
package summary

import (
	"log/slog"
	"time"

	"github.com/Veraticus/spendmail/internal/model"
	"github.com/shopspring/decimal"
)

// BankTotal is the amount spent through one bank.
type BankTotal struct {
	Bank   string
	Amount decimal.Decimal
}

// OwnerTotal is one owner's spend broken down by bank.
type OwnerTotal struct {
	Owner string
	Banks []BankTotal
	Total decimal.Decimal
}

// Bucket is a period's spend broken down by owner, in order of first
// appearance in the ledger.
type Bucket struct {
	Owners []OwnerTotal
	Total  decimal.Decimal
}

func (b *Bucket) add(owner, bank string, amount decimal.Decimal) {
	b.Total = b.Total.Add(amount)

	oi := -1
	for i := range b.Owners {
		if b.Owners[i].Owner == owner {
			oi = i
			break
		}
	}
	if oi < 0 {
		b.Owners = append(b.Owners, OwnerTotal{Owner: owner, Total: decimal.Zero})
		oi = len(b.Owners) - 1
	}

	o := &b.Owners[oi]
	o.Total = o.Total.Add(amount)
	for i := range o.Banks {
		if o.Banks[i].Bank == bank {
			o.Banks[i].Amount = o.Banks[i].Amount.Add(amount)
			return
		}
	}
	o.Banks = append(o.Banks, BankTotal{Bank: bank, Amount: amount})
}

// Summary is the daily and month-to-date spend as of Date.
type Summary struct {
	Date        time.Time
	Today       Bucket
	MonthToDate Bucket
	Skipped     int
}

// Empty reports whether nothing was spent today or this month.
func (s *Summary) Empty() bool {
	return s.Today.Total.IsZero() && s.MonthToDate.Total.IsZero()
}

// Compute aggregates Master rows as of now. Only debits count. Rows with an
// unreadable amount or date are skipped.
func Compute(rows []model.Row, now time.Time, loc *time.Location, logger *slog.Logger) *Summary {
	s := &Summary{
		Date:        now.In(loc),
		Today:       Bucket{Total: decimal.Zero},
		MonthToDate: Bucket{Total: decimal.Zero},
	}

	for i, row := range rows {
		if row.Cell(model.ColType) != string(model.TypeDebit) {
			continue
		}

		amount, err := model.ParseDecimal(row.Cell(model.ColAmount))
		if err != nil {
			logger.Warn("skipping row with invalid amount", "row", i+2, "error", err)
			s.Skipped++
			continue
		}
		date, err := model.ParseDate(row.Cell(model.ColDate), loc)
		if err != nil {
			logger.Warn("skipping row with invalid date", "row", i+2, "error", err)
			s.Skipped++
			continue
		}

		owner := row.Cell(model.ColSource)
		bank := row.Cell(model.ColBank)

		if model.SameDay(date, now, loc) {
			s.Today.add(owner, bank, amount)
		}
		if model.SameMonth(date, now, loc) {
			s.MonthToDate.add(owner, bank, amount)
		}
	}

	return s
}
