// Package jobs drives the scheduled jobs: per-owner extraction, the Master
// merge and the daily digest. Each job records a run and contains failures
// at the level the job can survive.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spendmail/internal/config"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/mail"
	"github.com/Veraticus/spendmail/internal/storage"
	"github.com/Veraticus/spendmail/internal/window"
	"github.com/google/uuid"
)

// Job names recorded in run history.
const (
	JobExtract = "extract"
	JobMerge   = "merge"
	JobSummary = "summary"
)

// Notifier delivers the digest.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// RunRecorder persists run history.
type RunRecorder interface {
	StartRun(ctx context.Context, run *storage.Run) error
	FinishRun(ctx context.Context, id string, records int, runErr error, finishedAt time.Time) error
}

// Deps are the collaborators a Runner uses. Mail is only needed for
// extraction and Notifier only for the digest; Runs may be nil. Without
// Messages, written messages are only remembered for the Runner's lifetime.
type Deps struct {
	Ledger   ledger.Backend
	Mail     mail.Searcher
	Notifier Notifier
	Runs     RunRecorder
	Messages window.MessageLog
	Logger   *slog.Logger
	Now      func() time.Time
}

// Runner executes jobs against one configuration.
type Runner struct {
	cfg      *config.Config
	ledger   ledger.Backend
	mail     mail.Searcher
	notifier Notifier
	runs     RunRecorder
	messages window.MessageLog
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
	newID    func() string
}

// NewRunner creates a runner.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	messages := deps.Messages
	if messages == nil {
		messages = window.NewMemoryLog()
	}

	return &Runner{
		cfg:      cfg,
		ledger:   deps.Ledger,
		mail:     deps.Mail,
		notifier: deps.Notifier,
		runs:     deps.Runs,
		messages: messages,
		logger:   logger,
		loc:      cfg.Location(),
		now:      now,
		newID:    uuid.NewString,
	}
}

// track runs fn as one recorded job run. fn returns the number of records
// the job produced.
func (r *Runner) track(ctx context.Context, job, subject string, fn func(ctx context.Context, logger *slog.Logger) (int, error)) error {
	run := &storage.Run{
		ID:        r.newID(),
		Job:       job,
		Subject:   subject,
		StartedAt: r.now(),
	}
	logger := r.logger.With("run_id", run.ID, "job", job)

	if r.runs != nil {
		if err := r.runs.StartRun(ctx, run); err != nil {
			logger.Warn("failed to record run start", "error", err)
		}
	}

	logger.Info("job started", "subject", subject)
	records, err := fn(ctx, logger)
	if err != nil {
		logger.Error("job failed", "error", err)
	} else {
		logger.Info("job finished", "records", records, "duration", r.now().Sub(run.StartedAt))
	}

	if r.runs != nil {
		if ferr := r.runs.FinishRun(ctx, run.ID, records, err, r.now()); ferr != nil {
			logger.Warn("failed to record run finish", "error", ferr)
		}
	}

	return err
}

func requireCollaborator(ok bool, name string) error {
	if !ok {
		return fmt.Errorf("%s collaborator is not configured", name)
	}
	return nil
}
