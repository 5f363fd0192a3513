package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/classify"
	"github.com/Veraticus/spendmail/internal/config"
	"github.com/Veraticus/spendmail/internal/extract"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/window"
)

// ExtractOptions narrows an extraction run.
type ExtractOptions struct {
	// Since switches to a backfill from the start of that day.
	Since time.Time
	// Progress observes each source, typically a terminal progress bar.
	Progress extract.Progress
	// Sources restricts the run to these source ids.
	Sources []string
}

// SourceResult is the outcome of one source.
type SourceResult struct {
	Err      error
	ID       string
	Appended int
}

// ExtractResult is the outcome of an extraction run for one owner.
type ExtractResult struct {
	Owner    string
	Strategy string
	Sources  []SourceResult
	Deleted  int
	Total    int
}

// Failed returns the sources that did not complete.
func (r *ExtractResult) Failed() []SourceResult {
	var failed []SourceResult
	for _, s := range r.Sources {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Extract pulls new transactions from mail into the owner's ledger. A failing
// source is logged and contributes nothing; failing to open or prepare the
// ledger fails the run.
func (r *Runner) Extract(ctx context.Context, ownerName string, opts ExtractOptions) (*ExtractResult, error) {
	var result *ExtractResult
	err := r.track(ctx, JobExtract, ownerName, func(ctx context.Context, logger *slog.Logger) (int, error) {
		var err error
		result, err = r.extract(ctx, logger, ownerName, opts)
		if result == nil {
			return 0, err
		}
		return result.Total, err
	})
	return result, err
}

func (r *Runner) extract(ctx context.Context, logger *slog.Logger, ownerName string, opts ExtractOptions) (*ExtractResult, error) {
	if err := requireCollaborator(r.mail != nil, "mail"); err != nil {
		return nil, err
	}
	if err := requireCollaborator(r.ledger != nil, "ledger"); err != nil {
		return nil, err
	}

	owner, err := r.cfg.Owner(ownerName)
	if err != nil {
		return nil, err
	}
	logger = logger.With("owner", owner.Name)

	sources, err := r.sources(owner, opts.Sources)
	if err != nil {
		return nil, err
	}

	classifier, err := classify.Load(owner.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories for %s: %w", owner.Name, err)
	}

	sheet, err := ledger.OpenSheet(ctx, r.ledger, owner.SpreadsheetID, owner.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for %s: %w", owner.Name, err)
	}

	writer := ledger.NewWriter(sheet, r.loc, r.cfg.Ledger.DateFormat, logger)
	if err := writer.EnsureHeader(ctx); err != nil {
		return nil, err
	}

	strategy := r.strategy(owner, opts.Since, logger)
	plan, err := strategy.Prepare(ctx, sheet, r.now())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s window: %w", strategy.Name(), err)
	}
	if err := plan.Track(ctx, r.messages, strings.ToLower(owner.Name)); err != nil {
		return nil, err
	}

	result := &ExtractResult{
		Owner:    owner.Name,
		Strategy: strategy.Name(),
		Deleted:  plan.Deleted,
	}

	extractor := extract.NewExtractor(r.mail, classifier, r.loc, logger).WithProgress(opts.Progress)
	for _, src := range sources {
		count, err := extractor.Run(ctx, src, plan, writer)
		if err != nil {
			logger.Error("source failed", "source", src.ID, "appended", count, "error", err)
		}
		result.Sources = append(result.Sources, SourceResult{ID: src.ID, Appended: count, Err: err})
		result.Total += count
	}

	if err := writer.FormatDates(ctx); err != nil {
		logger.Warn("failed to format ledger dates", "error", err)
	}

	logger.Info("extraction complete",
		"strategy", result.Strategy,
		"deleted", result.Deleted,
		"appended", result.Total,
		"failed_sources", len(result.Failed()))

	return result, nil
}

// sources resolves the owner's configured sources, optionally restricted to
// only. Requesting a source the owner does not have is an error.
func (r *Runner) sources(owner *config.Owner, only []string) ([]*extract.Source, error) {
	for _, id := range only {
		if !slices.ContainsFunc(owner.Sources, func(s config.SourceConfig) bool { return s.ID == id }) {
			return nil, fmt.Errorf("owner %s has no source %q", owner.Name, id)
		}
	}

	var out []*extract.Source
	for _, sc := range owner.Sources {
		if len(only) > 0 && !slices.Contains(only, sc.ID) {
			continue
		}

		until, err := sc.LegacyUntilTime(r.loc)
		if err != nil {
			return nil, err
		}
		src, err := extract.Lookup(sc.ID, extract.Options{
			Location:    r.loc,
			Limit:       sc.Limit,
			LegacyUntil: until,
		})
		if err != nil {
			return nil, fmt.Errorf("owner %s: %w", owner.Name, err)
		}
		out = append(out, src)
	}
	return out, nil
}

func (r *Runner) strategy(owner *config.Owner, since time.Time, logger *slog.Logger) window.Strategy {
	switch {
	case !since.IsZero():
		return window.Backfill{Since: since, Location: r.loc}
	case owner.Window == config.WindowRolling:
		return window.Rolling{Location: r.loc, Logger: logger, Window: owner.RollingWindow}
	default:
		return window.AppendOnly{Location: r.loc}
	}
}
