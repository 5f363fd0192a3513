package window

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func row(date string, amount string) model.Row {
	return model.Row{"ICICI", date, amount, "AMAZON", "Debit", "Shopping", "1234", "October", "2026"}
}

func seedSheet(t *testing.T, rows ...model.Row) (*ledger.MemoryBackend, *ledger.MemorySheet) {
	t.Helper()
	backend := ledger.NewMemoryBackend()
	book, err := backend.Book("book")
	require.NoError(t, err)
	return backend, book.Seed("Transactions", append([]model.Row{model.Header()}, rows...)...)
}

func TestAppendOnly(t *testing.T) {
	plan, err := AppendOnly{Location: time.UTC}.Prepare(context.Background(), nil, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), plan.SearchAfter)
	assert.True(t, plan.Cutoff.IsZero())
	assert.True(t, plan.Admits(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, plan.Seen("anything"))
}

func TestRolling_DeletesWindowAndRetainsOlder(t *testing.T) {
	_, sheet := seedSheet(t,
		row("2026-10-15 08:00:00", "10.00"),
		row("2026-10-16 13:00:00", "20.00"),
		row("2026-10-16 11:00:00", "30.00"),
		row("2026-10-17 09:00:00", "40.00"),
		row("2026-10-16 12:00:00", "50.00"),
	)

	strategy := Rolling{Location: time.UTC, Logger: common.DiscardLogger(), Window: 24 * time.Hour}
	plan, err := strategy.Prepare(context.Background(), sheet, now)
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Deleted)
	assert.Equal(t, now.Add(-24*time.Hour), plan.Cutoff)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), plan.SearchAfter)

	rows := sheet.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, model.Header(), rows[0])
	assert.Equal(t, "10.00", rows[1].Cell(model.ColAmount))
	assert.Equal(t, "30.00", rows[2].Cell(model.ColAmount))

	kept, err := model.RowKey(rows[2], time.UTC)
	require.NoError(t, err)
	assert.Contains(t, plan.Retained, kept)
	assert.Len(t, plan.Retained, 2)

	assert.False(t, plan.Admits(now.Add(-25*time.Hour)))
	assert.True(t, plan.Admits(now.Add(-24*time.Hour)))
}

func TestRolling_KeepsUnreadableDates(t *testing.T) {
	_, sheet := seedSheet(t,
		row("not a date", "10.00"),
		row("2026-10-17 11:00:00", "20.00"),
	)

	plan, err := Rolling{Location: time.UTC, Logger: common.DiscardLogger()}.Prepare(context.Background(), sheet, now)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Deleted)
	rows := sheet.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "not a date", rows[1].Cell(model.ColDate))
}

func TestRolling_DeleteFailureIsLogged(t *testing.T) {
	backend, sheet := seedSheet(t, row("2026-10-17 11:00:00", "20.00"))
	backend.FailOn("Transactions", ledger.OpDelete, errors.New("quota"))

	plan, err := Rolling{Location: time.UTC, Logger: common.DiscardLogger()}.Prepare(context.Background(), sheet, now)
	require.NoError(t, err)

	assert.Zero(t, plan.Deleted)
	assert.Len(t, sheet.Rows(), 2)
}

func TestRolling_ReadFailure(t *testing.T) {
	backend, sheet := seedSheet(t)
	backend.FailOn("Transactions", ledger.OpRead, errors.New("unavailable"))

	_, err := Rolling{Location: time.UTC, Logger: common.DiscardLogger()}.Prepare(context.Background(), sheet, now)
	assert.Error(t, err)
}

func TestBackfill(t *testing.T) {
	existing := row("2026-02-01 10:00:00", "99.00")
	_, sheet := seedSheet(t, existing)

	since := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	plan, err := Backfill{Since: since, Location: time.UTC}.Prepare(context.Background(), sheet, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), plan.SearchAfter)
	assert.False(t, plan.Admits(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, plan.Admits(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	key, err := model.RowKey(existing, time.UTC)
	require.NoError(t, err)
	assert.Contains(t, plan.Retained, key)
	assert.Len(t, sheet.Rows(), 2)
}

func mustKey(t *testing.T, r model.Row) string {
	t.Helper()
	key, err := model.RowKey(r, time.UTC)
	require.NoError(t, err)
	return key
}

func TestPlan_TrackAppendOnly(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	key := mustKey(t, row("2026-10-16 09:00:00", "10.00"))
	require.NoError(t, log.Record(ctx, "surya", WrittenMessage{MessageID: "old", RowKey: key, Received: now.AddDate(0, 0, -5)}))
	require.NoError(t, log.Record(ctx, "surya", WrittenMessage{MessageID: "m1", RowKey: key, Received: now.Add(-3 * time.Hour)}))
	require.NoError(t, log.Record(ctx, "wife", WrittenMessage{MessageID: "w1", RowKey: key, Received: now.Add(-time.Hour)}))

	plan, err := AppendOnly{Location: time.UTC}.Prepare(ctx, nil, now)
	require.NoError(t, err)
	require.NoError(t, plan.Track(ctx, log, "surya"))

	assert.True(t, plan.Seen("m1"))
	assert.False(t, plan.Seen("w1"), "other ledgers are separate")
	assert.False(t, plan.Seen("old"), "outside the search bound")
	assert.False(t, plan.Seen("m2"))

	require.NoError(t, plan.Remember(ctx, "m2", now, key))
	assert.True(t, plan.Seen("m2"))

	written, err := log.Written(ctx, "surya", time.Time{})
	require.NoError(t, err)
	assert.Len(t, written, 3)
}

func TestPlan_RollingSeesOnlyRetainedRows(t *testing.T) {
	ctx := context.Background()
	kept := row("2026-10-16 00:00:00", "250.00")
	recent := row("2026-10-17 09:00:00", "40.00")
	_, sheet := seedSheet(t, kept, recent)

	log := NewMemoryLog()
	require.NoError(t, log.Record(ctx, "wife", WrittenMessage{MessageID: "body-dated", RowKey: mustKey(t, kept), Received: now.Add(-2 * time.Hour)}))
	require.NoError(t, log.Record(ctx, "wife", WrittenMessage{MessageID: "recent", RowKey: mustKey(t, recent), Received: now.Add(-3 * time.Hour)}))

	plan, err := Rolling{Location: time.UTC, Logger: common.DiscardLogger()}.Prepare(ctx, sheet, now)
	require.NoError(t, err)
	require.NoError(t, plan.Track(ctx, log, "wife"))
	assert.Equal(t, 1, plan.Deleted)

	assert.True(t, plan.Seen("body-dated"), "its row is still in the ledger")
	assert.False(t, plan.Seen("recent"), "its row was deleted and must be written again")
	assert.False(t, plan.Seen("identical-repeat"), "an unseen message is never skipped")
}

func TestPlan_UntrackedRemembersNothing(t *testing.T) {
	plan := &Plan{}
	require.NoError(t, plan.Remember(context.Background(), "m1", now, "key"))
	assert.False(t, plan.Seen("m1"))
}

type failingLog struct{ MessageLog }

func (failingLog) Written(context.Context, string, time.Time) (map[string]string, error) {
	return nil, errors.New("database is locked")
}

func TestPlan_TrackFailure(t *testing.T) {
	plan := &Plan{}
	err := plan.Track(context.Background(), failingLog{}, "surya")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surya")
}
