package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/merge"
)

// Merge rebuilds the Master ledger from every owner's ledger, in configured
// owner order.
func (r *Runner) Merge(ctx context.Context) (*merge.Result, error) {
	var result *merge.Result
	err := r.track(ctx, JobMerge, r.cfg.Master.SheetName, func(ctx context.Context, logger *slog.Logger) (int, error) {
		if err := requireCollaborator(r.ledger != nil, "ledger"); err != nil {
			return 0, err
		}
		if r.cfg.Master.SpreadsheetID == "" {
			return 0, fmt.Errorf("%w: master.spreadsheet_id", common.ErrMissingConfig)
		}

		sources := make([]merge.Source, 0, len(r.cfg.Owners))
		for i := range r.cfg.Owners {
			o := &r.cfg.Owners[i]
			sources = append(sources, merge.Source{
				BookID: o.SpreadsheetID,
				Sheet:  o.SheetName,
				Label:  o.DisplayLabel(),
			})
		}

		var err error
		result, err = merge.NewMerger(r.ledger, r.cfg.Ledger.DateFormat, logger).Merge(ctx, sources, merge.Destination{
			BookID: r.cfg.Master.SpreadsheetID,
			Sheet:  r.cfg.Master.SheetName,
		})
		if err != nil {
			return 0, err
		}
		return result.Total, nil
	})
	return result, err
}
