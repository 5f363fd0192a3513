package gauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// DefaultCallbackAddr is where the interactive flow listens for the redirect.
const DefaultCallbackAddr = "localhost:8080"

// FlowOptions configures the interactive authorization flow.
type FlowOptions struct {
	CallbackAddr string
	Timeout      time.Duration
	// OpenURL is called with the consent URL. Defaults to logging it.
	OpenURL func(url string)
}

// Authenticate runs the browser consent flow and returns a token carrying a
// refresh token. The token is saved to creds.TokenFile when set.
func Authenticate(ctx context.Context, creds Credentials, opts FlowOptions, logger *slog.Logger) (*oauth2.Token, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errors.New("client id and client secret are required for the OAuth2 flow")
	}
	if opts.CallbackAddr == "" {
		opts.CallbackAddr = DefaultCallbackAddr
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.OpenURL == nil {
		opts.OpenURL = func(url string) {
			logger.Info("Please visit this URL to authenticate", "url", url)
		}
	}

	oauthConfig := creds.OAuth2Config()
	oauthConfig.RedirectURL = "http://" + opts.CallbackAddr + "/callback"

	listener, err := net.Listen("tcp", opts.CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errorChan <- errors.New("no authorization code received")
			_, _ = fmt.Fprint(w, `<html><body>
				<h1>Authentication Failed</h1>
				<p>No authorization code received. Please try again.</p>
			</body></html>`)
			return
		}

		codeChan <- code
		_, _ = fmt.Fprint(w, `<html><body>
			<h1>Authentication Successful!</h1>
			<p>You can close this window and return to the terminal.</p>
		</body></html>`)
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChan <- fmt.Errorf("callback server failed: %w", err)
		}
	}()
	defer func() {
		if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Error shutting down callback server", "error", err)
		}
	}()

	opts.OpenURL(oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	logger.Info("Waiting for authentication...")

	var authCode string
	select {
	case authCode = <-codeChan:
		logger.Debug("Received authorization code")
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(opts.Timeout):
		return nil, fmt.Errorf("authentication timeout - no response received within %s", opts.Timeout)
	}

	token, err := oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if creds.TokenFile != "" {
		if err := SaveToken(creds.TokenFile, token); err != nil {
			logger.Warn("Failed to save token to file", "error", err, "file", creds.TokenFile)
		} else {
			logger.Info("Token saved", "file", creds.TokenFile)
		}
	}

	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, nil
}

// SaveToken writes a token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}
