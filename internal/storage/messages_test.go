package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spendmail/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStore_RecordAndList(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	ist := time.FixedZone("IST", 5*3600+1800)
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, ist)
	messages := store.Messages()

	require.NoError(t, messages.Record(ctx, "surya", window.WrittenMessage{MessageID: "old", RowKey: "k0", Received: day.Add(-time.Hour)}))
	require.NoError(t, messages.Record(ctx, "surya", window.WrittenMessage{MessageID: "m1", RowKey: "k1", Received: day.Add(8 * time.Hour)}))
	require.NoError(t, messages.Record(ctx, "surya", window.WrittenMessage{MessageID: "m2", RowKey: "k1", Received: day.Add(10 * time.Hour)}))
	require.NoError(t, messages.Record(ctx, "wife", window.WrittenMessage{MessageID: "w1", RowKey: "k9", Received: day.Add(time.Hour)}))

	written, err := messages.Written(ctx, "surya", day)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"m1": "k1", "m2": "k1"}, written)

	all, err := messages.Written(ctx, "surya", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Recording again replaces the row key.
	require.NoError(t, messages.Record(ctx, "surya", window.WrittenMessage{MessageID: "m1", RowKey: "k2", Received: day.Add(8 * time.Hour)}))
	written, err = messages.Written(ctx, "surya", day)
	require.NoError(t, err)
	assert.Equal(t, "k2", written["m1"])
}

func TestMessageStore_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	messages := store.Messages()

	tests := []struct {
		run  func() error
		name string
	}{
		{name: "empty ledger", run: func() error {
			_, err := messages.Written(ctx, "", time.Time{})
			return err
		}},
		{name: "empty message id", run: func() error {
			return messages.Record(ctx, "surya", window.WrittenMessage{Received: time.Now()})
		}},
		{name: "nil context", run: func() error {
			//nolint:staticcheck // testing nil context validation
			return messages.Record(nil, "surya", window.WrittenMessage{MessageID: "m1"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.run())
		})
	}
}

func TestMessageStore_TracksRollingWindow(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	plan := &window.Plan{}
	require.NoError(t, plan.Track(ctx, store.Messages(), "wife"))
	require.NoError(t, plan.Remember(ctx, "m1", time.Now(), "key"))

	next := &window.Plan{}
	require.NoError(t, next.Track(ctx, store.Messages(), "wife"))
	assert.True(t, next.Seen("m1"))
}
