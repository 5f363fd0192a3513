package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/jmoiron/sqlx"
)

// LedgerBackend returns a ledger.Backend that keeps books in the database.
// Book ids are free-form; sheets are created on demand like spreadsheet tabs.
func (s *SQLiteStorage) LedgerBackend() ledger.Backend {
	return &sqlBackend{db: s.db}
}

type sqlBackend struct {
	db *sqlx.DB
}

func (b *sqlBackend) OpenBook(_ context.Context, id string) (ledger.Book, error) {
	if err := validateString(id, "book id"); err != nil {
		return nil, err
	}
	return &sqlBook{db: b.db, id: id}, nil
}

type sqlBook struct {
	db *sqlx.DB
	id string
}

func (b *sqlBook) ID() string { return b.id }

func (b *sqlBook) Sheet(ctx context.Context, name string) (ledger.Sheet, error) {
	var count int
	err := b.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM ledger_sheets WHERE book_id = ? AND name = ?`, b.id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sheet %q: %w", name, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("sheet %q: %w", name, common.ErrNotFound)
	}
	return &sqlSheet{db: b.db, book: b.id, name: name}, nil
}

func (b *sqlBook) CreateSheet(ctx context.Context, name string) (ledger.Sheet, error) {
	if err := validateString(name, "sheet name"); err != nil {
		return nil, err
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO ledger_sheets (book_id, name) VALUES (?, ?)`, b.id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
	}
	return &sqlSheet{db: b.db, book: b.id, name: name}, nil
}

type sqlSheet struct {
	db   *sqlx.DB
	book string
	name string
}

type rowRecord struct {
	Cells  string `db:"cells"`
	RowNum int    `db:"row_num"`
}

func encodeCells(r model.Row) (string, error) {
	if r == nil {
		r = model.Row{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode row: %w", err)
	}
	return string(b), nil
}

func decodeCells(s string) (model.Row, error) {
	var r model.Row
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return r, nil
}

func (s *sqlSheet) Name() string { return s.name }

func (s *sqlSheet) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ledger_rows WHERE book_id = ? AND sheet = ?`, s.book, s.name)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.name, err)
	}
	return nil
}

func (s *sqlSheet) lastRow(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var last int
	err := sqlx.GetContext(ctx, q, &last,
		`SELECT COALESCE(MAX(row_num), 0) FROM ledger_rows WHERE book_id = ? AND sheet = ?`, s.book, s.name)
	if err != nil {
		return 0, fmt.Errorf("failed to find last row of %s: %w", s.name, err)
	}
	return last, nil
}

func (s *sqlSheet) AppendRows(ctx context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	last, err := s.lastRow(ctx, tx)
	if err != nil {
		return err
	}

	for i, r := range rows {
		cells, err := encodeCells(r)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_rows (book_id, sheet, row_num, cells) VALUES (?, ?, ?, ?)`,
			s.book, s.name, last+i+1, cells)
		if err != nil {
			return fmt.Errorf("failed to append row to %s: %w", s.name, err)
		}
	}

	return tx.Commit()
}

func (s *sqlSheet) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([]model.Row, error) {
	if err := ledger.CheckRange(startRow, startCol, numRows, numCols); err != nil {
		return nil, err
	}

	var records []rowRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT row_num, cells FROM ledger_rows
		WHERE book_id = ? AND sheet = ? AND row_num BETWEEN ? AND ?`,
		s.book, s.name, startRow, startRow+numRows-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.name, err)
	}

	byRow := make(map[int]model.Row, len(records))
	for _, rec := range records {
		r, err := decodeCells(rec.Cells)
		if err != nil {
			return nil, err
		}
		byRow[rec.RowNum] = r
	}

	out := make([]model.Row, 0, numRows)
	for i := range numRows {
		out = append(out, ledger.Window(byRow[startRow+i], startCol, numCols))
	}
	return out, nil
}

func (s *sqlSheet) WriteRange(ctx context.Context, startRow, startCol int, rows []model.Row) error {
	if err := validateRange(startRow, startCol); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, r := range rows {
		rowNum := startRow + i

		var existing string
		err := tx.GetContext(ctx, &existing,
			`SELECT cells FROM ledger_rows WHERE book_id = ? AND sheet = ? AND row_num = ?`,
			s.book, s.name, rowNum)

		var current model.Row
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to read row %d of %s: %w", rowNum, s.name, err)
		default:
			if current, err = decodeCells(existing); err != nil {
				return err
			}
		}

		cells, err := encodeCells(ledger.Overlay(current, startCol, r))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_rows (book_id, sheet, row_num, cells) VALUES (?, ?, ?, ?)
			ON CONFLICT(book_id, sheet, row_num) DO UPDATE SET cells = excluded.cells`,
			s.book, s.name, rowNum, cells)
		if err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", rowNum, s.name, err)
		}
	}

	return tx.Commit()
}

func (s *sqlSheet) DeleteRow(ctx context.Context, row int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_rows WHERE book_id = ? AND sheet = ? AND row_num = ?`, s.book, s.name, row)
	if err != nil {
		return fmt.Errorf("failed to delete row %d of %s: %w", row, s.name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("row %d of %s: %w", row, s.name, common.ErrNotFound)
	}

	// Shift through negative numbers so the primary key never collides mid-update.
	shifts := []string{
		`UPDATE ledger_rows SET row_num = -(row_num - 1) WHERE book_id = ? AND sheet = ? AND row_num > ?`,
		`UPDATE ledger_rows SET row_num = -row_num WHERE book_id = ? AND sheet = ? AND row_num < ?`,
	}
	if _, err := tx.ExecContext(ctx, shifts[0], s.book, s.name, row); err != nil {
		return fmt.Errorf("failed to shift rows of %s: %w", s.name, err)
	}
	if _, err := tx.ExecContext(ctx, shifts[1], s.book, s.name, 0); err != nil {
		return fmt.Errorf("failed to shift rows of %s: %w", s.name, err)
	}

	return tx.Commit()
}

func (s *sqlSheet) LastRow(ctx context.Context) (int, error) {
	return s.lastRow(ctx, s.db)
}

func (s *sqlSheet) LastColumn(ctx context.Context) (int, error) {
	var records []rowRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT row_num, cells FROM ledger_rows WHERE book_id = ? AND sheet = ?`, s.book, s.name)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", s.name, err)
	}

	last := 0
	for _, rec := range records {
		r, err := decodeCells(rec.Cells)
		if err != nil {
			return 0, err
		}
		last = max(last, ledger.Width(r))
	}
	return last, nil
}

func (s *sqlSheet) SetColumnDateFormat(ctx context.Context, col int, pattern string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_formats (book_id, sheet, col, pattern) VALUES (?, ?, ?, ?)
		ON CONFLICT(book_id, sheet, col) DO UPDATE SET pattern = excluded.pattern`,
		s.book, s.name, col, pattern)
	if err != nil {
		return fmt.Errorf("failed to set date format on %s: %w", s.name, err)
	}
	return nil
}

// ColumnFormat returns the pattern stored for a sheet column, or "".
func (s *SQLiteStorage) ColumnFormat(ctx context.Context, bookID, sheet string, col int) (string, error) {
	var pattern string
	err := s.db.GetContext(ctx, &pattern,
		`SELECT pattern FROM ledger_formats WHERE book_id = ? AND sheet = ? AND col = ?`, bookID, sheet, col)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read column format: %w", err)
	}
	return pattern, nil
}
