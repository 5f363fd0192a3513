package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spendmail/internal/model"
)

// DefaultDateFormat is the display pattern applied to ledger date columns.
const DefaultDateFormat = "MM/dd/yyyy"

// Writer appends transactions to one owner's ledger sheet.
type Writer struct {
	sheet      Sheet
	loc        *time.Location
	logger     *slog.Logger
	dateFormat string
	appended   int
}

// NewWriter creates a writer for sheet. Dates are encoded in loc.
func NewWriter(sheet Sheet, loc *time.Location, dateFormat string, logger *slog.Logger) *Writer {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	return &Writer{
		sheet:      sheet,
		loc:        loc,
		logger:     logger,
		dateFormat: dateFormat,
	}
}

// Sheet returns the underlying sheet.
func (w *Writer) Sheet() Sheet { return w.sheet }

// Appended returns the number of transactions written so far.
func (w *Writer) Appended() int { return w.appended }

// EnsureHeader writes the column header if the sheet is empty.
func (w *Writer) EnsureHeader(ctx context.Context) error {
	last, err := w.sheet.LastRow(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect sheet %s: %w", w.sheet.Name(), err)
	}
	if last > 0 {
		return nil
	}

	if err := w.sheet.AppendRows(ctx, []model.Row{model.Header()}); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", w.sheet.Name(), err)
	}
	w.logger.Info("initialized ledger sheet", "sheet", w.sheet.Name())
	return nil
}

// Append validates tx and writes it as one row.
func (w *Writer) Append(ctx context.Context, tx *model.Transaction) error {
	tx.Normalize()
	if err := tx.Validate(); err != nil {
		return err
	}

	if err := w.sheet.AppendRows(ctx, []model.Row{tx.ToRow(w.loc)}); err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.sheet.Name(), err)
	}
	w.appended++
	return nil
}

// FormatDates applies the display date pattern to the date column.
func (w *Writer) FormatDates(ctx context.Context) error {
	if err := w.sheet.SetColumnDateFormat(ctx, model.ColDate+1, w.dateFormat); err != nil {
		return fmt.Errorf("failed to format dates on %s: %w", w.sheet.Name(), err)
	}
	return nil
}
