// Package ledger defines the spreadsheet-like storage that transaction
// ledgers are written to, and the writer that keeps a ledger sheet in shape.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/model"
)

// Backend opens ledger books (spreadsheets) by id.
type Backend interface {
	OpenBook(ctx context.Context, id string) (Book, error)
}

// Book is a collection of named sheets.
type Book interface {
	ID() string
	// Sheet returns the named sheet or an error wrapping common.ErrNotFound.
	Sheet(ctx context.Context, name string) (Sheet, error)
	CreateSheet(ctx context.Context, name string) (Sheet, error)
}

// Sheet is a grid of string cells. Row and column indices are 1-based.
type Sheet interface {
	Name() string
	Clear(ctx context.Context) error
	AppendRows(ctx context.Context, rows []model.Row) error
	// ReadRange returns numRows rows of exactly numCols cells each, padded
	// with empty strings where the sheet holds fewer.
	ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([]model.Row, error)
	WriteRange(ctx context.Context, startRow, startCol int, rows []model.Row) error
	DeleteRow(ctx context.Context, row int) error
	LastRow(ctx context.Context) (int, error)
	LastColumn(ctx context.Context) (int, error)
	SetColumnDateFormat(ctx context.Context, col int, pattern string) error
}

// OpenSheet returns the named sheet, creating it when it does not exist.
func OpenSheet(ctx context.Context, backend Backend, bookID, name string) (Sheet, error) {
	book, err := backend.OpenBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to open book %s: %w", bookID, err)
	}

	sheet, err := book.Sheet(ctx, name)
	if err == nil {
		return sheet, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to open sheet %s: %w", name, err)
	}

	sheet, err = book.CreateSheet(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return sheet, nil
}

// ReadAll returns every row of the sheet below the header, numCols wide.
func ReadAll(ctx context.Context, sheet Sheet, numCols int) ([]model.Row, error) {
	last, err := sheet.LastRow(ctx)
	if err != nil {
		return nil, err
	}
	if last <= 1 {
		return nil, nil
	}
	return sheet.ReadRange(ctx, 2, 1, last-1, numCols)
}
