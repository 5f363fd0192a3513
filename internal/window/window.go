// Package window decides which mail a run may turn into new ledger rows, so
// repeated runs do not duplicate data.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/model"
)

// Plan is the outcome of preparing a ledger for one extraction run.
type Plan struct {
	// Cutoff drops messages received before it. Zero admits every message.
	Cutoff time.Time
	// SearchAfter bounds the mail query by calendar day. Zero means unbounded.
	SearchAfter time.Time
	// Retained holds the keys of rows the ledger still holds after Prepare.
	// Nil means the strategy never removes rows.
	Retained map[string]struct{}
	Deleted  int

	log      MessageLog
	ledgerID string
	written  map[string]string
}

// Admits reports whether a message received at t belongs to the run.
func (p *Plan) Admits(received time.Time) bool {
	return p.Cutoff.IsZero() || !received.Before(p.Cutoff)
}

// Track loads the messages already written to ledgerID since the search
// bound, so Seen can skip them. Remember records new ones in log.
func (p *Plan) Track(ctx context.Context, log MessageLog, ledgerID string) error {
	written, err := log.Written(ctx, ledgerID, p.SearchAfter)
	if err != nil {
		return fmt.Errorf("failed to load written messages for %s: %w", ledgerID, err)
	}
	p.log = log
	p.ledgerID = ledgerID
	p.written = written
	return nil
}

// Seen reports whether the message already produced a row that is still in
// the ledger. A message whose row was removed by Prepare is not seen.
func (p *Plan) Seen(messageID string) bool {
	key, ok := p.written[messageID]
	if !ok {
		return false
	}
	if p.Retained == nil {
		return true
	}
	_, kept := p.Retained[key]
	return kept
}

// Remember records that messageID produced the row identified by key. It is
// a no-op for an untracked plan.
func (p *Plan) Remember(ctx context.Context, messageID string, received time.Time, key string) error {
	if p.log == nil {
		return nil
	}
	if err := p.log.Record(ctx, p.ledgerID, WrittenMessage{MessageID: messageID, RowKey: key, Received: received}); err != nil {
		return err
	}
	if p.written == nil {
		p.written = make(map[string]string)
	}
	p.written[messageID] = key
	if p.Retained != nil {
		p.Retained[key] = struct{}{}
	}
	return nil
}

// Strategy prepares a ledger sheet for a run.
type Strategy interface {
	Name() string
	Prepare(ctx context.Context, sheet ledger.Sheet, now time.Time) (*Plan, error)
}

// AppendOnly searches from the start of yesterday and never rewrites the
// ledger. It relies on the schedule running once a day.
type AppendOnly struct {
	Location *time.Location
}

// Name implements Strategy.
func (AppendOnly) Name() string { return "daily" }

// Prepare implements Strategy.
func (s AppendOnly) Prepare(_ context.Context, _ ledger.Sheet, now time.Time) (*Plan, error) {
	return &Plan{
		SearchAfter: model.StartOfDay(now, s.Location).AddDate(0, 0, -1),
	}, nil
}

// Rolling deletes every row dated within the trailing window and re-extracts
// the same window, so the tail of the ledger is rewritten on every run.
type Rolling struct {
	Location *time.Location
	Logger   *slog.Logger
	Window   time.Duration
}

// DefaultRollingWindow is the trailing window used when none is configured.
const DefaultRollingWindow = 24 * time.Hour

// Name implements Strategy.
func (Rolling) Name() string { return "rolling" }

// Prepare implements Strategy.
func (s Rolling) Prepare(ctx context.Context, sheet ledger.Sheet, now time.Time) (*Plan, error) {
	window := s.Window
	if window <= 0 {
		window = DefaultRollingWindow
	}
	cutoff := now.Add(-window)

	plan := &Plan{
		Cutoff:      cutoff,
		SearchAfter: model.StartOfDay(cutoff, s.Location),
		Retained:    make(map[string]struct{}),
	}

	rows, err := ledger.ReadAll(ctx, sheet, model.LedgerColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet.Name(), err)
	}

	// Sheet row numbers of rows inside the window, ascending.
	var recent []int
	for i, row := range rows {
		rowNum := i + 2

		date, err := model.ParseDate(row.Cell(model.ColDate), s.Location)
		if err != nil {
			s.Logger.Debug("keeping row with unreadable date", "sheet", sheet.Name(), "row", rowNum, "error", err)
			continue
		}

		if !date.Before(cutoff) {
			recent = append(recent, rowNum)
			continue
		}

		if key, err := model.RowKey(row, s.Location); err == nil {
			plan.Retained[key] = struct{}{}
		}
	}

	for i := len(recent) - 1; i >= 0; i-- {
		if err := sheet.DeleteRow(ctx, recent[i]); err != nil {
			s.Logger.Error("failed to delete recent row", "sheet", sheet.Name(), "row", recent[i], "error", err)
			continue
		}
		plan.Deleted++
	}

	s.Logger.Info("cleared rolling window",
		"sheet", sheet.Name(),
		"cutoff", cutoff.In(s.Location).Format(model.StorageDateLayout),
		"deleted", plan.Deleted)

	return plan, nil
}

// Backfill extracts everything since a fixed day without removing any rows.
// Messages that already produced a row still in the ledger are skipped, so
// it can be rerun over an overlapping range.
type Backfill struct {
	Since    time.Time
	Location *time.Location
}

// Name implements Strategy.
func (Backfill) Name() string { return "backfill" }

// Prepare implements Strategy.
func (s Backfill) Prepare(ctx context.Context, sheet ledger.Sheet, _ time.Time) (*Plan, error) {
	rows, err := ledger.ReadAll(ctx, sheet, model.LedgerColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet.Name(), err)
	}

	start := model.StartOfDay(s.Since, s.Location)
	plan := &Plan{
		Cutoff:      start,
		SearchAfter: start.AddDate(0, 0, -1),
		Retained:    make(map[string]struct{}, len(rows)),
	}
	for _, row := range rows {
		if key, err := model.RowKey(row, s.Location); err == nil {
			plan.Retained[key] = struct{}{}
		}
	}
	return plan, nil
}
