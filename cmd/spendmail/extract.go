package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/Veraticus/spendmail/internal/jobs"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [owner...]",
		Short: "Append new card transactions from mail to owner ledgers",
		Long: `Search the mailbox for bank alert emails and append the parsed transactions
to each owner's ledger. With no arguments every configured owner is processed.

A failing bank source is reported and skipped; the other sources still run.
Use --since to backfill from a given day. Backfill only appends messages
that have not already produced a row; existing rows are never removed.`,
		RunE: runExtract,
	}

	cmd.Flags().StringSlice("source", nil, "Only run these source ids (e.g. icici,sbi)")
	cmd.Flags().String("since", "", "Backfill from this date (YYYY-MM-DD)")
	cmd.Flags().Bool("progress", false, "Show a progress bar per source")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	sources, _ := cmd.Flags().GetStringSlice("source")
	sinceFlag, _ := cmd.Flags().GetString("since")
	showProgress, _ := cmd.Flags().GetBool("progress")

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context(), "Extraction")
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	since, err := parseSince(sinceFlag, s.cfg.Location())
	if err != nil {
		return err
	}

	owners := args
	if len(owners) == 0 {
		for _, o := range s.cfg.Owners {
			owners = append(owners, o.Name)
		}
	}
	if len(sources) > 0 && len(owners) != 1 {
		return errors.New("--source requires exactly one owner")
	}

	runner, err := s.runner(ctx, runnerOptions{mail: true})
	if err != nil {
		return err
	}

	opts := jobs.ExtractOptions{Since: since, Sources: sources}
	if showProgress {
		opts.Progress = cli.NewProgress(cmd.ErrOrStderr())
	}

	out := cmd.OutOrStdout()
	var failed []string
	for _, owner := range owners {
		result, err := runner.Extract(ctx, owner, opts)
		if handler.WasInterrupted() {
			return ctx.Err()
		}
		if err != nil {
			fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", owner, err)))
			failed = append(failed, owner)
			continue
		}
		printExtractResult(cmd, result)
	}

	if len(failed) > 0 {
		return fmt.Errorf("extraction failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func printExtractResult(cmd *cobra.Command, result *jobs.ExtractResult) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		status := cli.SuccessIcon
		if src.Err != nil {
			status = cli.ErrorIcon + " " + src.Err.Error()
		}
		rows = append(rows, []string{src.ID, fmt.Sprintf("%d", src.Appended), status})
	}

	title := fmt.Sprintf("%s %s (%s)", cli.MailIcon, result.Owner, result.Strategy)
	fmt.Fprintln(out, cli.FormatTitle(title))
	fmt.Fprintln(out, cli.RenderTable([]string{"Source", "Appended", "Status"}, rows))

	msg := fmt.Sprintf("%d transactions appended", result.Total)
	if result.Deleted > 0 {
		msg += fmt.Sprintf(", %d stale rows removed", result.Deleted)
	}
	if len(result.Failed()) > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s, %d sources failed", msg, len(result.Failed()))))
		return
	}
	fmt.Fprintln(out, cli.FormatSuccess(msg))
}
