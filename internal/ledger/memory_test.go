package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySheet_ReadRangePads(t *testing.T) {
	ctx := context.Background()
	book, err := NewMemoryBackend().Book("book")
	require.NoError(t, err)
	sheet := book.Seed("Data",
		model.Row{"a", "b", "c"},
		model.Row{"d"},
	)

	rows, err := sheet.ReadRange(ctx, 1, 2, 3, 2)
	require.NoError(t, err)

	assert.Equal(t, []model.Row{
		{"b", "c"},
		{"", ""},
		{"", ""},
	}, rows)
}

func TestMemorySheet_WriteRangeOverlays(t *testing.T) {
	ctx := context.Background()
	book, err := NewMemoryBackend().Book("book")
	require.NoError(t, err)
	sheet := book.Seed("Data", model.Row{"a", "b", "c"})

	require.NoError(t, sheet.WriteRange(ctx, 1, 2, []model.Row{{"X"}}))
	require.NoError(t, sheet.WriteRange(ctx, 3, 1, []model.Row{{"y", "z"}}))

	assert.Equal(t, []model.Row{
		{"a", "X", "c"},
		nil,
		{"y", "z"},
	}, sheet.Rows())

	last, err := sheet.LastRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, last)

	lastCol, err := sheet.LastColumn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, lastCol)
}

func TestMemorySheet_DeleteRowShifts(t *testing.T) {
	ctx := context.Background()
	book, err := NewMemoryBackend().Book("book")
	require.NoError(t, err)
	sheet := book.Seed("Data", model.Row{"1"}, model.Row{"2"}, model.Row{"3"})

	require.NoError(t, sheet.DeleteRow(ctx, 2))
	assert.Equal(t, []model.Row{{"1"}, {"3"}}, sheet.Rows())

	assert.Error(t, sheet.DeleteRow(ctx, 5))
}

func TestMemoryBook_SheetNotFound(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	book, err := backend.OpenBook(ctx, "book")
	require.NoError(t, err)

	_, err = book.Sheet(ctx, "Missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	sheet, err := OpenSheet(ctx, backend, "book", "Missing")
	require.NoError(t, err)
	assert.Equal(t, "Missing", sheet.Name())

	_, err = book.CreateSheet(ctx, "Missing")
	assert.Error(t, err)
}

func TestMemoryBackend_FailOn(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	book, err := backend.Book("book")
	require.NoError(t, err)
	sheet := book.Seed("Data", model.Row{"1"})

	boom := errors.New("boom")
	backend.FailOn("Data", OpRead, boom)

	_, err = sheet.LastRow(ctx)
	assert.ErrorIs(t, err, boom)

	other := book.Seed("Other", model.Row{"1"})
	_, err = other.LastRow(ctx)
	assert.NoError(t, err)

	backend.FailOn("Data", OpRead, nil)
	_, err = sheet.LastRow(ctx)
	assert.NoError(t, err)
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	book, err := NewMemoryBackend().Book("book")
	require.NoError(t, err)

	empty := book.Seed("Empty", model.Header())
	rows, err := ReadAll(ctx, empty, model.LedgerColumns)
	require.NoError(t, err)
	assert.Empty(t, rows)

	data := book.Seed("Data", model.Header(), model.Row{"HDFC", "2026-10-17 10:00:00", "10.00"})
	rows, err = ReadAll(ctx, data, model.LedgerColumns)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], model.LedgerColumns)
	assert.Equal(t, "HDFC", rows[0].Cell(model.ColBank))
}
