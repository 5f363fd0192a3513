// Package sheets implements the ledger backend on top of Google Sheets.
package sheets

import (
	"fmt"
	"time"
)

// Value input options accepted by the Sheets API.
const (
	InputUserEntered = "USER_ENTERED"
	InputRaw         = "RAW"
)

// Config holds the configuration for the Google Sheets backend.
type Config struct {
	ValueInputOption string
	RetryAttempts    int
	RetryDelay       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ValueInputOption: InputUserEntered,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.ValueInputOption {
	case InputUserEntered, InputRaw:
	default:
		return fmt.Errorf("unsupported value input option %q", c.ValueInputOption)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}
