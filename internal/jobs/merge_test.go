package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/merge"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerRow(bank, date, amount, typ string) model.Row {
	return model.Row{bank, date, amount, "SHOP", typ, "Others", "1234", "October", "2026"}
}

func seedOwners(t *testing.T, backend *ledger.MemoryBackend) {
	t.Helper()
	surya, err := backend.Book("surya-book")
	require.NoError(t, err)
	surya.Seed("Sheet1",
		model.Header(),
		ledgerRow("HDFC", "2026-10-17 09:30:00", "300.00", "Debit"),
		ledgerRow("ICICI", "2026-10-17 10:00:00", "1,000.00", "Credit"),
	)

	wife, err := backend.Book("wife-book")
	require.NoError(t, err)
	wife.Seed("Sheet1",
		model.Header(),
		ledgerRow("SBI", "2026-10-17 00:00:00", "500.00", "Debit"),
		ledgerRow("Amex", "2026-10-03 00:00:00", "1000.00", "Debit"),
	)
}

func TestMerge_OwnersInOrder(t *testing.T) {
	f := newFixture(t)
	seedOwners(t, f.backend)

	result, err := f.runner.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []merge.SourceCount{{Label: "Surya", Rows: 2}, {Label: "Wife", Rows: 2}}, result.Sources)
	assert.Equal(t, 4, result.Total)

	rows := f.sheet(t, "master-book", "Master").Rows()
	require.Len(t, rows, 5)
	assert.Equal(t, "Surya", rows[1].Cell(model.ColSource))
	assert.Equal(t, "Wife", rows[4].Cell(model.ColSource))

	run := f.runs.started[0]
	assert.Equal(t, JobMerge, run.Job)
	assert.Equal(t, 4, f.runs.records[run.ID])
}

func TestMerge_MissingOwnerSheet(t *testing.T) {
	f := newFixture(t)

	result, err := f.runner.Merge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Equal(t, []model.Row{model.MasterHeader()}, f.sheet(t, "master-book", "Master").Rows())
}

func TestMerge_Failures(t *testing.T) {
	t.Run("destination cannot be cleared", func(t *testing.T) {
		f := newFixture(t)
		seedOwners(t, f.backend)
		f.backend.FailOn("Master", ledger.OpCreate, errors.New("permission denied"))

		_, err := f.runner.Merge(context.Background())
		assert.ErrorContains(t, err, "permission denied")
		assert.Error(t, f.runs.finished[f.runs.started[0].ID])
	})

	t.Run("master not configured", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Master.SpreadsheetID = ""

		_, err := f.runner.Merge(context.Background())
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}
