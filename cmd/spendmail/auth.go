package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/Veraticus/spendmail/internal/cli"
	"github.com/Veraticus/spendmail/internal/gauth"
	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
		Long:  `Authenticate with the services spendmail reads from and writes to.`,
	}

	cmd.AddCommand(authGoogleCmd())

	return cmd
}

func authGoogleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Authorize Gmail and Google Sheets access",
		Long: `Run the OAuth2 consent flow for Gmail (read-only) and Google Sheets.

The refresh token is written to the token file and kept in the local property
store, so later runs need no browser. Service accounts need no authorization.`,
		Args: cobra.NoArgs,
		RunE: runAuthGoogle,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback", gauth.DefaultCallbackAddr, "Address the OAuth2 redirect listener binds to")
	cmd.Flags().Bool("no-browser", false, "Print the consent URL instead of opening a browser")

	return cmd
}

func runAuthGoogle(cmd *cobra.Command, _ []string) error {
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

	creds := s.cfg.Google.Credentials()
	if clientID, _ := cmd.Flags().GetString("client-id"); clientID != "" {
		creds.ClientID = clientID
	}
	if clientSecret, _ := cmd.Flags().GetString("client-secret"); clientSecret != "" {
		creds.ClientSecret = clientSecret
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return errors.New("google client_id and client_secret are required (set them in config or pass --client-id and --client-secret)")
	}
	// A fresh consent replaces whatever token was stored before.
	creds.RefreshToken = ""
	creds.ServiceAccountPath = ""

	callback, _ := cmd.Flags().GetString("callback")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	out := cmd.OutOrStdout()
	opts := gauth.FlowOptions{
		CallbackAddr: callback,
		OpenURL: func(url string) {
			fmt.Fprintln(out, cli.FormatInfo("Visit this URL to authorize spendmail:"))
			fmt.Fprintln(out, url)
			if noBrowser {
				return
			}
			if err := openBrowser(url); err != nil {
				slog.Warn("Failed to open browser", "error", err)
			}
		},
	}

	token, err := gauth.Authenticate(ctx, creds, opts, slog.Default())
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	values := map[string]string{
		"google.client_id":     creds.ClientID,
		"google.client_secret": creds.ClientSecret,
	}
	if token.RefreshToken != "" {
		values["google.refresh_token"] = token.RefreshToken
	}
	if err := s.store.Properties().SetMany(ctx, values); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Google access authorized"))
	if creds.TokenFile != "" {
		fmt.Fprintln(out, cli.FormatInfo("Token saved to "+creds.TokenFile))
	}
	return nil
}

// openBrowser opens the URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start()
}
