package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one recorded job invocation.
type Run struct {
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
	ID         string       `db:"id"`
	Job        string       `db:"job"`
	Subject    string       `db:"subject"`
	Status     string       `db:"status"`
	Error      string       `db:"error"`
	Records    int          `db:"records"`
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Run) Duration() time.Duration {
	if !r.FinishedAt.Valid {
		return 0
	}
	return r.FinishedAt.Time.Sub(r.StartedAt)
}

// StartRun records the start of a job run.
func (s *SQLiteStorage) StartRun(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	if run.Status == "" {
		run.Status = RunRunning
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, job, subject, status, records, error, started_at)
		VALUES (:id, :job, :subject, :status, :records, :error, :started_at)`, run)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run started with StartRun.
func (s *SQLiteStorage) FinishRun(ctx context.Context, id string, records int, runErr error, finishedAt time.Time) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}

	status, message := RunSucceeded, ""
	if runErr != nil {
		status, message = RunFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, records = ?, error = ?, finished_at = ?
		WHERE id = ?`, status, records, message, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: unknown run %s", ErrInvalidRun, id)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, job, subject, status, records, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
