package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/Veraticus/spendmail/internal/storage"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent job runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withStorage(cmd, func(store *storage.SQLiteStorage) error {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No runs recorded yet"))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
					[]string{"Started", "Job", "Subject", "Status", "Records", "Took", "Error"},
					runRows(runs),
				))
				return nil
			})
		},
	}

	cmd.Flags().Int("limit", 20, "Number of runs to show")

	return cmd
}

func runRows(runs []storage.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for i := range runs {
		run := &runs[i]
		status := run.Status
		switch run.Status {
		case storage.RunSucceeded:
			status = cli.SuccessIcon + " " + status
		case storage.RunFailed:
			status = cli.ErrorIcon + " " + status
		}
		took := "-"
		if run.FinishedAt.Valid {
			took = run.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Job,
			run.Subject,
			status,
			fmt.Sprintf("%d", run.Records),
			took,
			run.Error,
		})
	}
	return rows
}
