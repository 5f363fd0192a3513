package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Backend implements ledger.Backend for Google Sheets spreadsheets.
type Backend struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewBackend creates a Sheets backend. Authentication comes from opts,
// normally option.WithHTTPClient with an authorized client.
func NewBackend(ctx context.Context, config Config, logger *slog.Logger, opts ...option.ClientOption) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &Backend{
		service: srv,
		logger:  logger,
		config:  config,
	}, nil
}

func (b *Backend) retry(ctx context.Context, operation func() error) error {
	return common.WithRetry(ctx, func() error {
		return classifyError(operation())
	}, common.NewRetryOptions(max(b.config.RetryAttempts, 1), b.config.RetryDelay, b.logger))
}

// classifyError marks API errors so that only rate limits and server
// errors are retried.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code == http.StatusNotFound:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrNotFound, err), Retryable: false}
	case apiErr.Code >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

// OpenBook implements ledger.Backend. It loads the sheet titles of the
// spreadsheet once; sheets created through the book are added to it.
func (b *Backend) OpenBook(ctx context.Context, id string) (ledger.Book, error) {
	var spreadsheet *sheets.Spreadsheet
	err := b.retry(ctx, func() error {
		var callErr error
		spreadsheet, callErr = b.service.Spreadsheets.Get(id).
			Fields("spreadsheetId", "sheets.properties(sheetId,title)").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", id, err)
	}

	book := &Book{
		backend: b,
		id:      id,
		sheets:  make(map[string]int64, len(spreadsheet.Sheets)),
	}
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil {
			book.sheets[s.Properties.Title] = s.Properties.SheetId
		}
	}

	b.logger.Debug("opened spreadsheet", "id", id, "sheets", len(book.sheets))
	return book, nil
}

// Book is an open spreadsheet.
type Book struct {
	backend *Backend
	sheets  map[string]int64
	id      string
	mu      sync.Mutex
}

// ID implements ledger.Book.
func (k *Book) ID() string { return k.id }

// Sheet implements ledger.Book.
func (k *Book) Sheet(_ context.Context, name string) (ledger.Sheet, error) {
	k.mu.Lock()
	sheetID, ok := k.sheets[name]
	k.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sheet %q in %s: %w", name, k.id, common.ErrNotFound)
	}
	return &Sheet{book: k, title: name, sheetID: sheetID}, nil
}

// CreateSheet implements ledger.Book.
func (k *Book) CreateSheet(ctx context.Context, name string) (ledger.Sheet, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}}},
		},
	}

	var resp *sheets.BatchUpdateSpreadsheetResponse
	err := k.backend.retry(ctx, func() error {
		var callErr error
		resp, callErr = k.backend.service.Spreadsheets.BatchUpdate(k.id, req).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("unable to add sheet %q: %w", name, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, fmt.Errorf("unable to add sheet %q: empty reply", name)
	}

	sheetID := resp.Replies[0].AddSheet.Properties.SheetId
	k.mu.Lock()
	k.sheets[name] = sheetID
	k.mu.Unlock()

	k.backend.logger.Info("created sheet", "spreadsheet_id", k.id, "sheet", name)
	return &Sheet{book: k, title: name, sheetID: sheetID}, nil
}

// Sheet is one tab of a spreadsheet.
type Sheet struct {
	book    *Book
	title   string
	sheetID int64
}

func (s *Sheet) api() *sheets.Service { return s.book.backend.service }

// Name implements ledger.Sheet.
func (s *Sheet) Name() string { return s.title }

// literalText reports whether text cells need protecting from number and
// formula parsing.
func (s *Sheet) literalText() bool {
	return s.book.backend.config.ValueInputOption == InputUserEntered
}

// Clear implements ledger.Sheet.
func (s *Sheet) Clear(ctx context.Context) error {
	err := s.book.backend.retry(ctx, func() error {
		_, callErr := s.api().Spreadsheets.Values.Clear(s.book.id, quoteTitle(s.title), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.title, err)
	}
	return nil
}

// AppendRows implements ledger.Sheet.
func (s *Sheet) AppendRows(ctx context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	vr := &sheets.ValueRange{Values: toValues(rows, 1, s.literalText())}
	err := s.book.backend.retry(ctx, func() error {
		_, callErr := s.api().Spreadsheets.Values.Append(s.book.id, cellRef(s.title, 1, 1), vr).
			ValueInputOption(s.book.backend.config.ValueInputOption).
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), s.title, err)
	}
	return nil
}

func (s *Sheet) get(ctx context.Context, ref string) ([][]any, error) {
	var vr *sheets.ValueRange
	err := s.book.backend.retry(ctx, func() error {
		var callErr error
		vr, callErr = s.api().Spreadsheets.Values.Get(s.book.id, ref).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return vr.Values, nil
}

// ReadRange implements ledger.Sheet. Dates come back as serial numbers.
func (s *Sheet) ReadRange(ctx context.Context, startRow, startCol, numRows, numCols int) ([]model.Row, error) {
	if err := ledger.CheckRange(startRow, startCol, numRows, numCols); err != nil {
		return nil, err
	}
	if numRows == 0 || numCols == 0 {
		return make([]model.Row, numRows), nil
	}

	values, err := s.get(ctx, rangeRef(s.title, startRow, startCol, numRows, numCols))
	if err != nil {
		return nil, err
	}

	got := toRows(values)
	out := make([]model.Row, numRows)
	for i := range out {
		var row model.Row
		if i < len(got) {
			row = got[i]
		}
		out[i] = ledger.Window(row, 1, numCols)
	}
	return out, nil
}

// WriteRange implements ledger.Sheet.
func (s *Sheet) WriteRange(ctx context.Context, startRow, startCol int, rows []model.Row) error {
	if err := ledger.CheckRange(startRow, startCol, len(rows), 0); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	vr := &sheets.ValueRange{Values: toValues(rows, startCol, s.literalText())}
	err := s.book.backend.retry(ctx, func() error {
		_, callErr := s.api().Spreadsheets.Values.Update(s.book.id, cellRef(s.title, startRow, startCol), vr).
			ValueInputOption(s.book.backend.config.ValueInputOption).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return fmt.Errorf("failed to write %d rows to %s at row %d: %w", len(rows), s.title, startRow, err)
	}

	s.book.backend.logger.Debug("wrote batch", "sheet", s.title, "start_row", startRow, "rows", len(rows))
	return nil
}

func (s *Sheet) batchUpdate(ctx context.Context, requests ...*sheets.Request) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	return s.book.backend.retry(ctx, func() error {
		_, callErr := s.api().Spreadsheets.BatchUpdate(s.book.id, req).Context(ctx).Do()
		return callErr
	})
}

// DeleteRow implements ledger.Sheet.
func (s *Sheet) DeleteRow(ctx context.Context, row int) error {
	if row < 1 {
		return fmt.Errorf("row must be 1 or later, got %d", row)
	}

	err := s.batchUpdate(ctx, &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    s.sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(row - 1),
				EndIndex:   int64(row),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete row %d of %s: %w", row, s.title, err)
	}
	return nil
}

// used returns the populated values of the whole sheet. The API trims
// trailing empty rows and cells.
func (s *Sheet) used(ctx context.Context) ([]model.Row, error) {
	values, err := s.get(ctx, quoteTitle(s.title))
	if err != nil {
		return nil, err
	}
	return toRows(values), nil
}

// LastRow implements ledger.Sheet.
func (s *Sheet) LastRow(ctx context.Context) (int, error) {
	rows, err := s.used(ctx)
	if err != nil {
		return 0, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if ledger.Width(rows[i]) > 0 {
			return i + 1, nil
		}
	}
	return 0, nil
}

// LastColumn implements ledger.Sheet.
func (s *Sheet) LastColumn(ctx context.Context) (int, error) {
	rows, err := s.used(ctx)
	if err != nil {
		return 0, err
	}
	last := 0
	for _, row := range rows {
		last = max(last, ledger.Width(row))
	}
	return last, nil
}

// SetColumnDateFormat implements ledger.Sheet. The header row keeps its
// own formatting.
func (s *Sheet) SetColumnDateFormat(ctx context.Context, col int, pattern string) error {
	if col < 1 {
		return fmt.Errorf("column must be 1 or later, got %d", col)
	}

	err := s.batchUpdate(ctx, &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          s.sheetID,
				StartRowIndex:    1,
				StartColumnIndex: int64(col - 1),
				EndColumnIndex:   int64(col),
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{
						Type:    "DATE",
						Pattern: pattern,
					},
				},
			},
			Fields: "userEnteredFormat.numberFormat",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to format column %d of %s: %w", col, s.title, err)
	}
	return nil
}
