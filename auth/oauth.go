// ABOUTME: OAuth configuration and token management for Google APIs
// ABOUTME: Handles interactive and silent token mint, storage at XDG paths, and revoke
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoCredential is returned by silent token requests when no cached
// credential exists. Silent mode must fail fast, never prompt.
var ErrNoCredential = errors.New("no cached credential")

// Google does not report an exact access-token TTL, so refresh is scheduled
// conservatively below the usual hour.
const TokenRefreshInterval = 55 * time.Minute

const revokeURL = "https://oauth2.googleapis.com/revoke"

// NewOAuthConfig creates OAuth2 config for Google APIs.
func NewOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// TokenPath returns XDG-compliant path for storing OAuth tokens.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, "skiff", "google-credentials.json")
}

// SaveToken saves OAuth token to XDG data directory.
func SaveToken(token *oauth2.Token) error {
	path := TokenPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// LoadToken loads OAuth token from XDG data directory.
func LoadToken() (*oauth2.Token, error) {
	path := TokenPath()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

// ClearToken removes the cached token file.
func ClearToken() error {
	err := os.Remove(TokenPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// SilentToken returns a valid token from the local cache, refreshing it if
// expired. It never prompts: with no cached credential it fails immediately
// with ErrNoCredential.
func SilentToken(ctx context.Context) (*oauth2.Token, error) {
	cached, err := LoadToken()
	if err != nil {
		return nil, err
	}

	config := NewOAuthConfig()
	fresh, err := config.TokenSource(ctx, cached).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	// Persist if the refresh rotated the access token
	if fresh.AccessToken != cached.AccessToken {
		if err := SaveToken(fresh); err != nil {
			return nil, err
		}
	}

	return fresh, nil
}

// InteractiveToken runs the full browser OAuth flow with a local callback
// server. It may block on user input indefinitely; that is acceptable for
// interactive auth.
func InteractiveToken(ctx context.Context) (*oauth2.Token, error) {
	config := NewOAuthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}

	callbackChan := make(chan *oauth2.Token)
	errChan := make(chan error)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	fmt.Println("Opening browser for Google OAuth...")
	fmt.Printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)
		if err := SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
		return token, nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return nil, fmt.Errorf("OAuth flow failed: %w", err)

	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return nil, ctx.Err()
	}
}

// Revoke invalidates the token with Google and clears the local cache.
// The local clear happens even when the provider call fails.
func Revoke(ctx context.Context, token *oauth2.Token) error {
	var revokeErr error
	if token != nil && token.AccessToken != "" {
		form := url.Values{"token": {token.AccessToken}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			revokeErr = err
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				revokeErr = err
			} else {
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					revokeErr = fmt.Errorf("revoke returned status %d", resp.StatusCode)
				}
			}
		}
	}

	if err := ClearToken(); err != nil {
		return err
	}
	if revokeErr != nil {
		return fmt.Errorf("failed to revoke token with provider: %w", revokeErr)
	}
	return nil
}

// KeepFresh refreshes the cached token on a fixed interval until the context
// is cancelled. Refresh failures are non-fatal and retried next tick.
func KeepFresh(ctx context.Context) {
	ticker := time.NewTicker(TokenRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := SilentToken(ctx); err != nil {
				fmt.Printf("  ✗ Token refresh failed: %v\n", err)
			}
		}
	}
}
