package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/model"
)

// Operation names accepted by MemoryBackend.FailOn.
const (
	OpOpen   = "open"
	OpCreate = "create"
	OpClear  = "clear"
	OpAppend = "append"
	OpRead   = "read"
	OpWrite  = "write"
	OpDelete = "delete"
	OpFormat = "format"
)

// MemoryBackend is an in-process Backend for tests and dry runs.
type MemoryBackend struct {
	books  map[string]*MemoryBook
	faults map[string]error
	mu     sync.Mutex
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		books:  make(map[string]*MemoryBook),
		faults: make(map[string]error),
	}
}

// FailOn makes every subsequent call of op against sheet (or every sheet
// when sheet is "") return err. A nil err clears the fault.
func (b *MemoryBackend) FailOn(sheet, op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := sheet + "/" + op
	if err == nil {
		delete(b.faults, key)
		return
	}
	b.faults[key] = err
}

func (b *MemoryBackend) fault(sheet, op string) error {
	if err, ok := b.faults[sheet+"/"+op]; ok {
		return err
	}
	return b.faults["/"+op]
}

// OpenBook implements Backend. Books are created on first use.
func (b *MemoryBackend) OpenBook(_ context.Context, id string) (Book, error) {
	return b.Book(id)
}

// Book returns the concrete book for id, creating it when needed.
func (b *MemoryBackend) Book(id string) (*MemoryBook, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fault("", OpOpen); err != nil {
		return nil, err
	}

	book, ok := b.books[id]
	if !ok {
		book = &MemoryBook{id: id, backend: b, sheets: make(map[string]*MemorySheet)}
		b.books[id] = book
	}
	return book, nil
}

// MemoryBook is a Book held in memory.
type MemoryBook struct {
	backend *MemoryBackend
	sheets  map[string]*MemorySheet
	id      string
}

// ID implements Book.
func (b *MemoryBook) ID() string { return b.id }

// Sheet implements Book.
func (b *MemoryBook) Sheet(_ context.Context, name string) (Sheet, error) {
	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()

	s, ok := b.sheets[name]
	if !ok {
		return nil, fmt.Errorf("sheet %q: %w", name, common.ErrNotFound)
	}
	return s, nil
}

// CreateSheet implements Book.
func (b *MemoryBook) CreateSheet(_ context.Context, name string) (Sheet, error) {
	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()

	if err := b.backend.fault(name, OpCreate); err != nil {
		return nil, err
	}
	if _, ok := b.sheets[name]; ok {
		return nil, fmt.Errorf("sheet %q already exists", name)
	}

	s := &MemorySheet{book: b, name: name, formats: make(map[int]string)}
	b.sheets[name] = s
	return s, nil
}

// SheetNames lists the sheets of the book in name order.
func (b *MemoryBook) SheetNames() []string {
	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()

	names := make([]string, 0, len(b.sheets))
	for n := range b.sheets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Seed creates or replaces the named sheet with rows. Intended for tests.
func (b *MemoryBook) Seed(name string, rows ...model.Row) *MemorySheet {
	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()

	s := &MemorySheet{book: b, name: name, formats: make(map[int]string)}
	for _, r := range rows {
		s.rows = append(s.rows, r.Clone())
	}
	b.sheets[name] = s
	return s
}

// MemorySheet is a Sheet held in memory.
type MemorySheet struct {
	book    *MemoryBook
	formats map[int]string
	name    string
	rows    []model.Row
}

// Name implements Sheet.
func (s *MemorySheet) Name() string { return s.name }

func (s *MemorySheet) lock(op string) (func(), error) {
	mu := &s.book.backend.mu
	mu.Lock()
	if err := s.book.backend.fault(s.name, op); err != nil {
		mu.Unlock()
		return nil, err
	}
	return mu.Unlock, nil
}

// Clear implements Sheet.
func (s *MemorySheet) Clear(_ context.Context) error {
	unlock, err := s.lock(OpClear)
	if err != nil {
		return err
	}
	defer unlock()

	s.rows = nil
	return nil
}

// AppendRows implements Sheet.
func (s *MemorySheet) AppendRows(_ context.Context, rows []model.Row) error {
	unlock, err := s.lock(OpAppend)
	if err != nil {
		return err
	}
	defer unlock()

	for _, r := range rows {
		s.rows = append(s.rows, r.Clone())
	}
	return nil
}

// ReadRange implements Sheet.
func (s *MemorySheet) ReadRange(_ context.Context, startRow, startCol, numRows, numCols int) ([]model.Row, error) {
	if err := CheckRange(startRow, startCol, numRows, numCols); err != nil {
		return nil, err
	}

	unlock, err := s.lock(OpRead)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]model.Row, 0, numRows)
	for i := range numRows {
		var src model.Row
		if idx := startRow - 1 + i; idx < len(s.rows) {
			src = s.rows[idx]
		}
		out = append(out, Window(src, startCol, numCols))
	}
	return out, nil
}

// WriteRange implements Sheet.
func (s *MemorySheet) WriteRange(_ context.Context, startRow, startCol int, rows []model.Row) error {
	if err := CheckRange(startRow, startCol, len(rows), 0); err != nil {
		return err
	}

	unlock, err := s.lock(OpWrite)
	if err != nil {
		return err
	}
	defer unlock()

	for i, r := range rows {
		idx := startRow - 1 + i
		for len(s.rows) <= idx {
			s.rows = append(s.rows, nil)
		}
		s.rows[idx] = Overlay(s.rows[idx], startCol, r)
	}
	return nil
}

// DeleteRow implements Sheet.
func (s *MemorySheet) DeleteRow(_ context.Context, row int) error {
	unlock, err := s.lock(OpDelete)
	if err != nil {
		return err
	}
	defer unlock()

	if row < 1 || row > len(s.rows) {
		return fmt.Errorf("row %d out of range 1..%d", row, len(s.rows))
	}
	s.rows = append(s.rows[:row-1], s.rows[row:]...)
	return nil
}

// LastRow implements Sheet.
func (s *MemorySheet) LastRow(_ context.Context) (int, error) {
	unlock, err := s.lock(OpRead)
	if err != nil {
		return 0, err
	}
	defer unlock()

	for i := len(s.rows) - 1; i >= 0; i-- {
		if Width(s.rows[i]) > 0 {
			return i + 1, nil
		}
	}
	return 0, nil
}

// LastColumn implements Sheet.
func (s *MemorySheet) LastColumn(_ context.Context) (int, error) {
	unlock, err := s.lock(OpRead)
	if err != nil {
		return 0, err
	}
	defer unlock()

	last := 0
	for _, r := range s.rows {
		last = max(last, Width(r))
	}
	return last, nil
}

// SetColumnDateFormat implements Sheet.
func (s *MemorySheet) SetColumnDateFormat(_ context.Context, col int, pattern string) error {
	unlock, err := s.lock(OpFormat)
	if err != nil {
		return err
	}
	defer unlock()

	s.formats[col] = pattern
	return nil
}

// Rows returns a copy of every row in the sheet.
func (s *MemorySheet) Rows() []model.Row {
	s.book.backend.mu.Lock()
	defer s.book.backend.mu.Unlock()

	out := make([]model.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Clone())
	}
	return out
}

// DateFormat returns the date pattern applied to col, if any.
func (s *MemorySheet) DateFormat(col int) string {
	s.book.backend.mu.Lock()
	defer s.book.backend.mu.Unlock()

	return s.formats[col]
}
