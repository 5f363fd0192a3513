package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/Veraticus/spendmail/internal/jobs"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Send today's and this month's spend to Telegram",
		Long: `Read the Master ledger, total today's and this month's debits per owner and
bank, and send the digest to the configured Telegram chat. Nothing is sent
when nothing was spent.`,
		Args: cobra.NoArgs,
		RunE: runSummary,
	}

	cmd.Flags().Bool("dry-run", false, "Print the digest instead of sending it")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	runner, err := s.runner(ctx, runnerOptions{notify: !dryRun})
	if err != nil {
		return err
	}

	result, err := runner.Summary(ctx, jobs.SummaryOptions{DryRun: dryRun})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case result.Summary.Empty():
		fmt.Fprintln(out, cli.FormatInfo("Nothing spent today or this month, no digest sent"))
	case dryRun:
		fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Spend digest", result.Text))
	case result.DeliveryErr != nil:
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Digest could not be delivered: %v", result.DeliveryErr)))
	default:
		fmt.Fprintln(out, cli.FormatSuccess("Digest sent"))
	}
	return nil
}
