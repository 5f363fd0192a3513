package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/Veraticus/spendmail/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply any pending database migrations to bring the schema up to date.`,
		RunE:  runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show migration status without applying")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	before, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	out := cmd.OutOrStdout()
	if status {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Database %s is at schema version %d", store.Path(), before)))
		return nil
	}

	slog.Info("Running migrations", "database", store.Path(), "version", before)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	after, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if after == before {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Schema already up to date (version %d)", after)))
		return nil
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Migrated schema from version %d to %d", before, after)))
	return nil
}
