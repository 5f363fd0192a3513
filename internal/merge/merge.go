// Package merge rebuilds the Master ledger from every owner's ledger.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/model"
)

// Source is one owner ledger feeding the Master.
type Source struct {
	BookID string
	Sheet  string
	Label  string
}

// Destination is where the Master ledger lives.
type Destination struct {
	BookID string
	Sheet  string
}

// SourceCount is the number of rows merged from one source.
type SourceCount struct {
	Label string
	Rows  int
}

// Result summarizes a merge run.
type Result struct {
	Sources []SourceCount
	Total   int
}

// Merger copies owner ledgers into the Master ledger.
type Merger struct {
	backend    ledger.Backend
	logger     *slog.Logger
	dateFormat string
}

// NewMerger creates a merger over backend.
func NewMerger(backend ledger.Backend, dateFormat string, logger *slog.Logger) *Merger {
	if dateFormat == "" {
		dateFormat = ledger.DefaultDateFormat
	}
	return &Merger{backend: backend, logger: logger, dateFormat: dateFormat}
}

// Merge clears dest and rewrites it from sources, in the given order. Only a
// failure to prepare dest is returned; a source that cannot be read
// contributes zero rows.
func (m *Merger) Merge(ctx context.Context, sources []Source, dest Destination) (*Result, error) {
	master, err := m.initMaster(ctx, dest)
	if err != nil {
		return nil, err
	}

	result := &Result{Sources: make([]SourceCount, 0, len(sources))}
	next := 2

	for _, src := range sources {
		rows, err := m.collect(ctx, src)
		if err != nil {
			m.logger.Error("failed to read source ledger", "source", src.Label, "error", err)
			rows = nil
		}

		if len(rows) > 0 {
			if err := master.WriteRange(ctx, next, 1, rows); err != nil {
				m.logger.Error("failed to write source rows to master", "source", src.Label, "error", err)
				rows = nil
			} else {
				next += len(rows)
			}
		}

		result.Sources = append(result.Sources, SourceCount{Label: src.Label, Rows: len(rows)})
		result.Total += len(rows)
		m.logger.Info("merged source", "source", src.Label, "rows", len(rows))
	}

	if err := master.SetColumnDateFormat(ctx, model.ColDate+1, m.dateFormat); err != nil {
		m.logger.Warn("failed to format master date column", "error", err)
	}

	m.logger.Info("merge complete", "total", result.Total)
	return result, nil
}

func (m *Merger) initMaster(ctx context.Context, dest Destination) (ledger.Sheet, error) {
	master, err := ledger.OpenSheet(ctx, m.backend, dest.BookID, dest.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open master ledger: %w", err)
	}
	if err := master.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear master ledger: %w", err)
	}
	if err := master.AppendRows(ctx, []model.Row{model.MasterHeader()}); err != nil {
		return nil, fmt.Errorf("failed to write master header: %w", err)
	}
	return master, nil
}

// collect reads the valid rows of src with its label appended.
func (m *Merger) collect(ctx context.Context, src Source) ([]model.Row, error) {
	book, err := m.backend.OpenBook(ctx, src.BookID)
	if err != nil {
		return nil, err
	}

	sheet, err := book.Sheet(ctx, src.Sheet)
	if errors.Is(err, common.ErrNotFound) {
		m.logger.Warn("source sheet not found", "source", src.Label, "sheet", src.Sheet)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	last, err := sheet.LastRow(ctx)
	if err != nil {
		return nil, err
	}
	if last <= 1 {
		m.logger.Info("source ledger is empty", "source", src.Label)
		return nil, nil
	}

	width, err := sheet.LastColumn(ctx)
	if err != nil {
		return nil, err
	}

	data, err := sheet.ReadRange(ctx, 2, 1, last-1, width)
	if err != nil {
		return nil, err
	}

	out := make([]model.Row, 0, len(data))
	for i, row := range data {
		if err := model.ValidateRow(row, model.LedgerColumns); err != nil {
			m.logger.Warn("skipping invalid row", "source", src.Label, "row", i+2, "error", err)
			continue
		}
		merged := make(model.Row, 0, model.MasterColumns)
		merged = append(merged, row[:model.LedgerColumns]...)
		merged = append(merged, src.Label)
		out = append(out, merged)
	}
	return out, nil
}
