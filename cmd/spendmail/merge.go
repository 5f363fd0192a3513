package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/spf13/cobra"
)

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Rebuild the Master ledger from every owner ledger",
		Long: `Clear the Master ledger and copy every owner's rows into it, tagging each
row with the owner's label. Owners are merged in configuration order.`,
		Args: cobra.NoArgs,
		RunE: runMerge,
	}
}

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	runner, err := s.runner(ctx, runnerOptions{})
	if err != nil {
		return err
	}

	result, err := runner.Merge(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		rows = append(rows, []string{src.Label, fmt.Sprintf("%d", src.Rows)})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(cli.LedgerIcon+" Master ledger"))
	fmt.Fprintln(out, cli.RenderTable([]string{"Owner", "Rows"}, rows))
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Merged %d rows", result.Total)))
	return nil
}
