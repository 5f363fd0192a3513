package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/storage"
	"github.com/spf13/cobra"
)

func propsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "props",
		Short: "Manage stored properties",
		Long: `Stored properties are configuration values kept in the local database,
such as the Telegram bot token. They apply beneath the config file and
environment variables, using the same keys (e.g. telegram.bot_token).`,
	}

	show := false
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd, func(store *storage.SQLiteStorage) error {
				all, err := store.Properties().All(cmd.Context())
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No stored properties"))
					return nil
				}

				keys := make([]string, 0, len(all))
				for k := range all {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					v := all[k]
					if !show {
						v = maskSecret(k, v)
					}
					rows = append(rows, []string{k, v})
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"Key", "Value"}, rows))
				return nil
			})
		},
	}
	list.Flags().BoolVar(&show, "show-secrets", false, "Print secret values unmasked")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, func(store *storage.SQLiteStorage) error {
				value, err := store.Properties().Get(cmd.Context(), args[0])
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("property %q is not set", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, func(store *storage.SQLiteStorage) error {
				if err := store.Properties().Set(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Stored "+args[0]))
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a stored property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, func(store *storage.SQLiteStorage) error {
				if err := store.Properties().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed "+args[0]))
				return nil
			})
		},
	}

	cmd.AddCommand(list, get, set, del)
	return cmd
}

// withStorage runs fn against the local database without loading the full
// configuration, so a broken config can still be repaired.
func withStorage(cmd *cobra.Command, fn func(store *storage.SQLiteStorage) error) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()
	return fn(store)
}
