package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/shopspring/decimal"
)

// StorageDateLayout is how dates are written into ledger cells. Keeping the
// time of day lets the rolling window compare against an exact cutoff.
const StorageDateLayout = "2006-01-02 15:04:05"

// DisplayDateLayout is the date shown in digests.
const DisplayDateLayout = "01/02/2006"

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	StorageDateLayout,
	"2006-01-02T15:04:05",
	time.DateOnly,
	"01/02/2006 15:04:05",
	DisplayDateLayout,
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseDecimal parses a numeric cell, ignoring thousands separators.
func ParseDecimal(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", common.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", common.ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseAmount parses a transaction amount such as "1,234.50". Non-numeric and
// non-positive values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q is not positive", common.ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders an amount with two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatDate renders t in loc using the storage layout.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(StorageDateLayout)
}

// ParseDate parses a date cell. Besides the storage layout it accepts ISO and
// US style dates and spreadsheet serial numbers, which is what the Sheets API
// returns for date cells read unformatted.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", common.ErrInvalidDate)
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return fromSerial(serial, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", common.ErrInvalidDate, s)
}

// fromSerial converts a spreadsheet serial day number into a wall-clock time in loc.
func fromSerial(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	wall := sheetsEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether a and b fall in the same calendar month in loc.
func SameMonth(a, b time.Time, loc *time.Location) bool {
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
