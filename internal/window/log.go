package window

import (
	"context"
	"sync"
	"time"
)

// WrittenMessage links a mail message to the ledger row it produced.
type WrittenMessage struct {
	Received  time.Time
	MessageID string
	RowKey    string
}

// MessageLog remembers which messages have been written to each ledger.
type MessageLog interface {
	// Written returns message id to row key for messages received at or
	// after since. A zero since returns every message.
	Written(ctx context.Context, ledgerID string, since time.Time) (map[string]string, error)
	Record(ctx context.Context, ledgerID string, msg WrittenMessage) error
}

// MemoryLog is a MessageLog held in memory.
type MemoryLog struct {
	ledgers map[string]map[string]WrittenMessage
	mu      sync.Mutex
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{ledgers: make(map[string]map[string]WrittenMessage)}
}

// Written implements MessageLog.
func (l *MemoryLog) Written(_ context.Context, ledgerID string, since time.Time) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]string)
	for id, msg := range l.ledgers[ledgerID] {
		if since.IsZero() || !msg.Received.Before(since) {
			out[id] = msg.RowKey
		}
	}
	return out, nil
}

// Record implements MessageLog.
func (l *MemoryLog) Record(_ context.Context, ledgerID string, msg WrittenMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ledgers[ledgerID] == nil {
		l.ledgers[ledgerID] = make(map[string]WrittenMessage)
	}
	l.ledgers[ledgerID][msg.MessageID] = msg
	return nil
}
