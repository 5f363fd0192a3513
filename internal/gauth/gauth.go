// Package gauth builds authorized HTTP clients for the Google APIs used by
// the ledger and mail collaborators.
package gauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Veraticus/spendmail/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested by every client: read-only mail plus spreadsheet access.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	sheets.SpreadsheetsScope,
}

// Credentials describes how to authenticate against Google.
type Credentials struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	// Subject is the mailbox a service account impersonates through
	// domain-wide delegation. Ignored for OAuth2 credentials.
	Subject   string
	TokenFile string
}

// Validate checks that exactly one authentication method is usable.
func (c Credentials) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: no google authentication method configured", common.ErrMissingConfig)
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: multiple google authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	}

	return nil
}

// OAuth2Config returns the OAuth2 client configuration for the credentials.
func (c Credentials) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// NewHTTPClient returns an HTTP client that attaches Google credentials to
// every request.
func NewHTTPClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	ts, err := TokenSource(ctx, creds)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// TokenSource resolves the credentials into an oauth2.TokenSource.
func TokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if creds.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(creds.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		jwtConfig.Subject = creds.Subject

		return jwtConfig.TokenSource(ctx), nil
	}

	token := &oauth2.Token{
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}

	if token.RefreshToken == "" {
		saved, err := LoadToken(creds.TokenFile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: no refresh token; run 'spendmail auth google' first", common.ErrMissingConfig)
			}
			return nil, fmt.Errorf("failed to load token: %w", err)
		}
		token = saved
	}

	return creds.OAuth2Config().TokenSource(ctx, token), nil
}
