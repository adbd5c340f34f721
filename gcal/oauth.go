// ABOUTME: OAuth configuration and token management for Google Calendar
// ABOUTME: Token lives under the data directory; the client refreshes it automatically
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/incial/crm/config"
)

// CallbackAddr is where the local OAuth redirect listener binds.
const CallbackAddr = "localhost:8080"

// NewOAuthConfig creates the OAuth2 config for read-only calendar access.
func NewOAuthConfig(g config.GoogleConfig) (*oauth2.Config, error) {
	if g.ClientID == "" || g.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  "http://" + CallbackAddr + "/oauth/callback",
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// TokenPath returns where the OAuth token is stored.
func TokenPath(dataDir string) string {
	return filepath.Join(dataDir, "google-credentials.json")
}

// SaveToken writes token with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
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

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// NewCalendarClient creates a Calendar API service from an OAuth token.
func NewCalendarClient(ctx context.Context, oc *oauth2.Config, token *oauth2.Token) (*calendar.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(oc.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}
