package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spendmail/internal/classify"
	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/mail"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/Veraticus/spendmail/internal/window"
)

// Sink receives each valid transaction as soon as it is parsed.
type Sink interface {
	Append(ctx context.Context, tx *model.Transaction) error
}

// Progress observes message processing for one source.
type Progress interface {
	Start(source string, total int)
	Advance()
	Finish()
}

type noProgress struct{}

func (noProgress) Start(string, int) {}
func (noProgress) Advance()          {}
func (noProgress) Finish()           {}

// Extractor runs sources against a mailbox.
type Extractor struct {
	mail       mail.Searcher
	classifier *classify.Classifier
	loc        *time.Location
	logger     *slog.Logger
	progress   Progress
}

// NewExtractor creates an extractor that categorizes with classifier and
// encodes dates in loc.
func NewExtractor(searcher mail.Searcher, classifier *classify.Classifier, loc *time.Location, logger *slog.Logger) *Extractor {
	return &Extractor{
		mail:       searcher,
		classifier: classifier,
		loc:        loc,
		logger:     logger,
		progress:   noProgress{},
	}
}

// WithProgress sets the progress observer.
func (e *Extractor) WithProgress(p Progress) *Extractor {
	if p == nil {
		p = noProgress{}
	}
	e.progress = p
	return e
}

// Run searches for src's messages within plan and appends every valid
// transaction to sink. It returns the number of transactions appended. A
// mail or sink failure aborts the source; rows appended before it remain.
func (e *Extractor) Run(ctx context.Context, src *Source, plan *window.Plan, sink Sink) (int, error) {
	logger := e.logger.With("source", src.ID)
	query := mail.WithAfter(src.Query, plan.SearchAfter, e.loc)

	threads, err := e.mail.Search(ctx, query, src.Limit)
	if err != nil {
		return 0, common.NewCollaboratorError(src.ID, fmt.Errorf("search: %w", err))
	}

	batches, err := e.mail.FetchMessages(ctx, threads)
	if err != nil {
		return 0, common.NewCollaboratorError(src.ID, fmt.Errorf("fetch: %w", err))
	}

	total := 0
	for _, msgs := range batches {
		total += len(msgs)
	}
	logger.Debug("fetched messages", "query", query, "threads", len(threads), "messages", total)

	e.progress.Start(src.ID, total)
	defer e.progress.Finish()

	count := 0
	for _, msgs := range batches {
		for i := range msgs {
			ok, err := e.process(ctx, logger, src, plan, &msgs[i], sink)
			e.progress.Advance()
			if err != nil {
				return count, common.NewCollaboratorError(src.ID, err)
			}
			if ok {
				count++
			}
		}
	}

	logger.Info("source extracted", "bank", src.Bank, "appended", count)
	return count, nil
}

// process handles one message. It reports whether a row was appended; only
// sink failures are returned as errors.
func (e *Extractor) process(ctx context.Context, logger *slog.Logger, src *Source, plan *window.Plan, msg *mail.Message, sink Sink) (bool, error) {
	if !plan.Admits(msg.Date) {
		return false, nil
	}
	if plan.Seen(msg.ID) {
		logger.Debug("message already in ledger", "message_id", msg.ID)
		return false, nil
	}

	tx, err := src.Parse(msg)
	if err != nil {
		if errors.Is(err, common.ErrParseMiss) {
			logger.Debug("message skipped", "message_id", msg.ID, "reason", err)
		} else {
			logger.Warn("failed to parse message", "message_id", msg.ID, "error", err)
		}
		return false, nil
	}

	tx.Category = e.classifier.Classify(tx.Description)
	tx.Normalize()
	if err := tx.Validate(); err != nil {
		logger.Warn("invalid transaction", "message_id", msg.ID, "error", err)
		return false, nil
	}

	if err := sink.Append(ctx, tx); err != nil {
		return false, fmt.Errorf("append: %w", err)
	}

	key, err := model.RowKey(tx.ToRow(e.loc), e.loc)
	if err != nil {
		logger.Warn("failed to key written row", "message_id", msg.ID, "error", err)
	}
	if err := plan.Remember(ctx, msg.ID, msg.Date, key); err != nil {
		logger.Warn("failed to remember written message", "message_id", msg.ID, "error", err)
	}
	return true, nil
}
