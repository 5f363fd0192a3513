package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/Veraticus/spendmail/internal/summary"
)

// SummaryOptions controls the digest job.
type SummaryOptions struct {
	// DryRun renders the digest without sending it.
	DryRun bool
}

// SummaryResult is the outcome of the digest job.
type SummaryResult struct {
	Summary *summary.Summary
	// DeliveryErr is set when sending failed. The job itself still succeeds.
	DeliveryErr error
	Text        string
	Sent        bool
}

// Summary computes today's and this month's spend from the Master ledger
// and sends the digest. Nothing is sent when both totals are zero.
func (r *Runner) Summary(ctx context.Context, opts SummaryOptions) (*SummaryResult, error) {
	var result *SummaryResult
	err := r.track(ctx, JobSummary, r.cfg.Master.SheetName, func(ctx context.Context, logger *slog.Logger) (int, error) {
		var err error
		result, err = r.summarize(ctx, logger, opts)
		if err != nil || !result.Sent {
			return 0, err
		}
		return 1, nil
	})
	return result, err
}

func (r *Runner) summarize(ctx context.Context, logger *slog.Logger, opts SummaryOptions) (*SummaryResult, error) {
	if err := requireCollaborator(r.ledger != nil, "ledger"); err != nil {
		return nil, err
	}
	if r.cfg.Master.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: master.spreadsheet_id", common.ErrMissingConfig)
	}

	book, err := r.ledger.OpenBook(ctx, r.cfg.Master.SpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to open master book: %w", err)
	}
	sheet, err := book.Sheet(ctx, r.cfg.Master.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open master sheet: %w", err)
	}

	rows, err := ledger.ReadAll(ctx, sheet, model.MasterColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to read master sheet: %w", err)
	}

	s := summary.Compute(rows, r.now(), r.loc, logger)
	result := &SummaryResult{Summary: s}

	logger.Info("computed summary",
		"today", s.Today.Total.StringFixed(2),
		"month_to_date", s.MonthToDate.Total.StringFixed(2),
		"skipped", s.Skipped)

	if s.Empty() {
		logger.Info("no spend to report")
		return result, nil
	}

	result.Text = summary.Render(s)
	if opts.DryRun {
		return result, nil
	}

	if err := requireCollaborator(r.notifier != nil, "notifier"); err != nil {
		return nil, err
	}

	if err := r.notifier.Send(ctx, result.Text); err != nil {
		logger.Error("failed to deliver summary", "error", err)
		result.DeliveryErr = err
		return result, nil
	}

	result.Sent = true
	logger.Info("summary delivered")
	return result, nil
}
