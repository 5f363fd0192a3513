package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/config"
	"github.com/Veraticus/spendmail/internal/gauth"
	"github.com/Veraticus/spendmail/internal/jobs"
	"github.com/Veraticus/spendmail/internal/ledger"
	"github.com/Veraticus/spendmail/internal/mail"
	"github.com/Veraticus/spendmail/internal/notify"
	"github.com/Veraticus/spendmail/internal/sheets"
	"github.com/Veraticus/spendmail/internal/storage"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

const defaultDatabasePath = "~/.local/share/spendmail/spendmail.db"

// databasePath returns the configured database path with the tilde and
// environment variables expanded.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}
	return config.ExpandPath(dbPath)
}

// initStorage opens the local database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// session holds the collaborators shared by the job commands.
type session struct {
	cfg   *config.Config
	store *storage.SQLiteStorage
}

func openSession(ctx context.Context) (*session, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, viper.GetViper(), store.Properties())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &session{cfg: cfg, store: store}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func (s *session) ledgerBackend(ctx context.Context) (ledger.Backend, error) {
	if s.cfg.Ledger.Backend == config.BackendSQLite {
		return s.store.LedgerBackend(), nil
	}

	client, err := gauth.NewHTTPClient(ctx, s.cfg.Google.Credentials())
	if err != nil {
		return nil, fmt.Errorf("failed to authorize sheets: %w", err)
	}
	backend, err := sheets.NewBackend(ctx, s.cfg.Sheets.Backend(), slog.Default(), option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func (s *session) mailbox(ctx context.Context) (mail.Searcher, error) {
	client, err := gauth.NewHTTPClient(ctx, s.cfg.Google.Credentials())
	if err != nil {
		return nil, fmt.Errorf("failed to authorize gmail: %w", err)
	}
	gmail, err := mail.NewGmailClient(ctx, client, mail.GmailConfig{
		User:          s.cfg.Gmail.User,
		RetryAttempts: s.cfg.Sheets.RetryAttempts,
		RetryDelay:    s.cfg.Sheets.RetryDelay,
	}, slog.Default())
	if err != nil {
		return nil, err
	}
	return gmail, nil
}

// runnerOptions selects the optional collaborators a command needs.
type runnerOptions struct {
	mail   bool
	notify bool
}

func (s *session) runner(ctx context.Context, opts runnerOptions) (*jobs.Runner, error) {
	deps := jobs.Deps{
		Runs:     s.store,
		Messages: s.store.Messages(),
		Logger:   slog.Default(),
	}

	backend, err := s.ledgerBackend(ctx)
	if err != nil {
		return nil, err
	}
	deps.Ledger = backend

	if opts.mail {
		if deps.Mail, err = s.mailbox(ctx); err != nil {
			return nil, err
		}
	}

	if opts.notify {
		telegram, err := notify.NewTelegram(s.cfg.Telegram.Notify())
		if err != nil {
			return nil, err
		}
		deps.Notifier = telegram
	}

	return jobs.NewRunner(s.cfg, deps), nil
}

// parseSince reads a YYYY-MM-DD date in loc.
func parseSince(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// maskSecret hides values of keys that look like credentials.
func maskSecret(key, value string) string {
	lower := strings.ToLower(key)
	for _, marker := range []string{"token", "secret", "password"} {
		if strings.Contains(lower, marker) {
			if len(value) <= 4 {
				return "****"
			}
			return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
		}
	}
	return value
}
