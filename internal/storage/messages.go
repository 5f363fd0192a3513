package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spendmail/internal/window"
)

// MessageStore records which mail messages produced rows in each ledger.
type MessageStore struct {
	storage *SQLiteStorage
}

// Messages returns the written-message store.
func (s *SQLiteStorage) Messages() *MessageStore {
	return &MessageStore{storage: s}
}

var _ window.MessageLog = (*MessageStore)(nil)

type writtenMessage struct {
	MessageID string `db:"message_id"`
	RowKey    string `db:"row_key"`
}

// Written implements window.MessageLog.
func (m *MessageStore) Written(ctx context.Context, ledgerID string, since time.Time) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ledgerID, "ledgerID"); err != nil {
		return nil, err
	}

	var msgs []writtenMessage
	err := m.storage.db.SelectContext(ctx, &msgs, `
		SELECT message_id, row_key FROM written_messages
		WHERE ledger_id = ? AND received_at >= ?`, ledgerID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list written messages: %w", err)
	}

	out := make(map[string]string, len(msgs))
	for _, msg := range msgs {
		out[msg.MessageID] = msg.RowKey
	}
	return out, nil
}

// Record implements window.MessageLog. Recording a message again replaces
// its row key.
func (m *MessageStore) Record(ctx context.Context, ledgerID string, msg window.WrittenMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ledgerID, "ledgerID"); err != nil {
		return err
	}
	if err := validateString(msg.MessageID, "messageID"); err != nil {
		return err
	}

	_, err := m.storage.db.ExecContext(ctx, `
		INSERT INTO written_messages (ledger_id, message_id, row_key, received_at, recorded_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ledger_id, message_id) DO UPDATE SET
			row_key = excluded.row_key,
			received_at = excluded.received_at,
			recorded_at = CURRENT_TIMESTAMP`,
		ledgerID, msg.MessageID, msg.RowKey, msg.Received.UTC())
	if err != nil {
		return fmt.Errorf("failed to record message %s: %w", msg.MessageID, err)
	}
	return nil
}
