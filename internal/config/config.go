// Package config loads the application configuration into an explicit value
// that is passed to every component.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/gauth"
	"github.com/Veraticus/spendmail/internal/notify"
	"github.com/Veraticus/spendmail/internal/sheets"
	"github.com/spf13/viper"
)

// Ledger backends.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

// Window strategies for an owner's ledger.
const (
	WindowDaily   = "daily"
	WindowRolling = "rolling"
)

// DefaultTimezone is the zone that dates are computed in.
const DefaultTimezone = "Asia/Kolkata"

// PropertySource supplies stored properties. They are the lowest-precedence
// configuration layer.
type PropertySource interface {
	All(ctx context.Context) (map[string]string, error)
}

// Config is the complete application configuration.
type Config struct {
	Timezone string         `mapstructure:"timezone"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Google   GoogleConfig   `mapstructure:"google"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Database DatabaseConfig `mapstructure:"database"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Master   MasterConfig   `mapstructure:"master"`
	Owners   []Owner        `mapstructure:"owners"`
}

// LedgerConfig selects where ledgers live.
type LedgerConfig struct {
	Backend    string `mapstructure:"backend"`
	DateFormat string `mapstructure:"date_format"`
}

// GoogleConfig holds Google API credentials.
type GoogleConfig struct {
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	RefreshToken       string `mapstructure:"refresh_token"`
	ServiceAccountPath string `mapstructure:"service_account_path"`
	Subject            string `mapstructure:"subject"`
	TokenFile          string `mapstructure:"token_file"`
}

// SheetsConfig tunes the Sheets backend.
type SheetsConfig struct {
	ValueInputOption string        `mapstructure:"value_input_option"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
}

// GmailConfig tunes the Gmail searcher.
type GmailConfig struct {
	User string `mapstructure:"user"`
}

// DatabaseConfig locates the local SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// TelegramConfig configures digest delivery.
type TelegramConfig struct {
	BotToken  string        `mapstructure:"bot_token"`
	ChatID    string        `mapstructure:"chat_id"`
	APIURL    string        `mapstructure:"api_url"`
	ParseMode string        `mapstructure:"parse_mode"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MasterConfig locates the Master ledger.
type MasterConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	SheetName     string `mapstructure:"sheet_name"`
}

// Owner is one household member with their own ledger.
type Owner struct {
	Name          string         `mapstructure:"name"`
	Label         string         `mapstructure:"label"`
	SpreadsheetID string         `mapstructure:"spreadsheet_id"`
	SheetName     string         `mapstructure:"sheet_name"`
	Window        string         `mapstructure:"window"`
	Categories    string         `mapstructure:"categories"`
	Sources       []SourceConfig `mapstructure:"sources"`
	RollingWindow time.Duration  `mapstructure:"rolling_window"`
}

// SourceConfig enables a built-in source for an owner.
type SourceConfig struct {
	Limit       *int   `mapstructure:"limit"`
	ID          string `mapstructure:"id"`
	LegacyUntil string `mapstructure:"legacy_until"`
}

// SetDefaults registers the default value of every scalar key, which also
// lets viper bind environment variables to them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("ledger.backend", BackendSheets)
	v.SetDefault("ledger.date_format", "MM/dd/yyyy")
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.refresh_token", "")
	v.SetDefault("google.service_account_path", "")
	v.SetDefault("google.subject", "")
	v.SetDefault("google.token_file", "~/.config/spendmail/token.json")
	v.SetDefault("sheets.value_input_option", sheets.InputUserEntered)
	v.SetDefault("sheets.retry_attempts", 3)
	v.SetDefault("sheets.retry_delay", time.Second)
	v.SetDefault("gmail.user", "me")
	v.SetDefault("database.path", "~/.local/share/spendmail/spendmail.db")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_url", notify.DefaultAPIURL)
	v.SetDefault("telegram.parse_mode", "Markdown")
	v.SetDefault("telegram.timeout", 30*time.Second)
	v.SetDefault("master.spreadsheet_id", "")
	v.SetDefault("master.sheet_name", "Master")
}

// Load builds a Config from v. Stored properties are applied beneath every
// other source; props may be nil.
func Load(ctx context.Context, v *viper.Viper, props PropertySource) (*Config, error) {
	SetDefaults(v)

	if props != nil {
		stored, err := props.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored properties: %w", err)
		}
		for key, value := range stored {
			v.SetDefault(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Google.ServiceAccountPath = ExpandPath(c.Google.ServiceAccountPath)
	c.Google.TokenFile = ExpandPath(c.Google.TokenFile)
	c.Database.Path = ExpandPath(c.Database.Path)

	for i := range c.Owners {
		o := &c.Owners[i]
		if o.SheetName == "" {
			o.SheetName = "Sheet1"
		}
		if o.Window == "" {
			o.Window = WindowDaily
		}
		if o.Categories == "" {
			o.Categories = "primary"
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %w", common.ErrInvalidConfig, c.Timezone, err)
	}

	switch c.Ledger.Backend {
	case BackendSheets, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown ledger backend %q", common.ErrInvalidConfig, c.Ledger.Backend)
	}

	seen := make(map[string]bool, len(c.Owners))
	for _, o := range c.Owners {
		name := strings.ToLower(strings.TrimSpace(o.Name))
		if name == "" {
			return fmt.Errorf("%w: owner without a name", common.ErrInvalidConfig)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate owner %q", common.ErrInvalidConfig, o.Name)
		}
		seen[name] = true

		if o.SpreadsheetID == "" {
			return fmt.Errorf("%w: owner %q has no spreadsheet_id", common.ErrInvalidConfig, o.Name)
		}
		if o.Window != WindowDaily && o.Window != WindowRolling {
			return fmt.Errorf("%w: owner %q has unknown window %q", common.ErrInvalidConfig, o.Name, o.Window)
		}
		if o.RollingWindow < 0 {
			return fmt.Errorf("%w: owner %q has a negative rolling_window", common.ErrInvalidConfig, o.Name)
		}
		for _, src := range o.Sources {
			if src.ID == "" {
				return fmt.Errorf("%w: owner %q has a source without an id", common.ErrInvalidConfig, o.Name)
			}
			if _, err := src.LegacyUntilTime(time.UTC); err != nil {
				return fmt.Errorf("%w: owner %q source %s: %w", common.ErrInvalidConfig, o.Name, src.ID, err)
			}
		}
	}

	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Owner returns the owner with the given name, ignoring case.
func (c *Config) Owner(name string) (*Owner, error) {
	for i := range c.Owners {
		if strings.EqualFold(c.Owners[i].Name, name) {
			return &c.Owners[i], nil
		}
	}
	return nil, fmt.Errorf("owner %q: %w", name, common.ErrNotFound)
}

// DisplayLabel returns the label written to the Master Source column.
func (o *Owner) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Name
}

// LegacyUntilTime parses LegacyUntil as midnight in loc. A zero time means
// the source default applies.
func (s SourceConfig) LegacyUntilTime(loc *time.Location) (time.Time, error) {
	if s.LegacyUntil == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s.LegacyUntil, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("legacy_until %q is not a YYYY-MM-DD date", s.LegacyUntil)
	}
	return t, nil
}

// Credentials returns the Google credentials for gauth.
func (g GoogleConfig) Credentials() gauth.Credentials {
	return gauth.Credentials{
		ClientID:           g.ClientID,
		ClientSecret:       g.ClientSecret,
		RefreshToken:       g.RefreshToken,
		ServiceAccountPath: g.ServiceAccountPath,
		Subject:            g.Subject,
		TokenFile:          g.TokenFile,
	}
}

// Backend returns the Sheets backend configuration.
func (s SheetsConfig) Backend() sheets.Config {
	return sheets.Config{
		ValueInputOption: s.ValueInputOption,
		RetryAttempts:    s.RetryAttempts,
		RetryDelay:       s.RetryDelay,
	}
}

// Notify returns the Telegram client configuration.
func (t TelegramConfig) Notify() notify.Config {
	return notify.Config{
		BotToken:  t.BotToken,
		ChatID:    t.ChatID,
		APIURL:    t.APIURL,
		ParseMode: t.ParseMode,
		Timeout:   t.Timeout,
	}
}
