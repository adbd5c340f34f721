// ABOUTME: Sync CLI commands: charm mirror management and Google Calendar import
// ABOUTME: Handles the OAuth browser flow and incremental meeting imports
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/incial/crm/app"
	"github.com/incial/crm/charm"
	"github.com/incial/crm/config"
	"github.com/incial/crm/db"
	"github.com/incial/crm/gcal"
)

const oauthTimeout = 5 * time.Minute

// SyncCommand dispatches `sync link|status|now|auto|reset` for the charm mirror.
func SyncCommand(cfg *config.Config, args []string) error {
	return charm.Commands{
		Open:   charm.Open,
		Out:    out,
		Mirror: cfg.Mirror,
	}.Run(args)
}

// GcalInitCommand runs the OAuth flow and stores the calendar token.
func GcalInitCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("gcal init", flag.ContinueOnError)
	noBrowser := fs.Bool("no-browser", false, "Print the URL instead of opening a browser")
	if err := fs.Parse(args); err != nil {
		return err
	}

	oc, err := gcal.NewOAuthConfig(cfg.Google)
	if err != nil {
		return fmt.Errorf("failed to get OAuth config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), oauthTimeout)
	defer cancel()

	state := uuid.NewString()
	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("state mismatch in OAuth callback")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := oc.Exchange(ctx, code)
		if err != nil {
			http.Error(w, "exchange failed", http.StatusBadGateway)
			errCh <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		tokenCh <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: gcal.CallbackAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline)
	_, _ = fmt.Fprintln(out, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	if !*noBrowser {
		_ = openBrowser(authURL)
	}

	select {
	case token := <-tokenCh:
		path := gcal.TokenPath(cfg.DataDir)
		if err := gcal.SaveToken(path, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		_, _ = fmt.Fprintf(out, "\n✓ Authenticated successfully\n")
		_, _ = fmt.Fprintf(out, "✓ Token saved to %s\n\n", path)
		_, _ = fmt.Fprintln(out, "Ready to import! Run 'incial gcal import --initial' to pull meetings.")
		return nil
	case err := <-errCh:
		return fmt.Errorf("OAuth flow failed: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("OAuth flow timed out after %s", oauthTimeout)
	}
}

// GcalImportCommand imports calendar events as meetings.
func GcalImportCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("gcal import", flag.ContinueOnError)
	initial := fs.Bool("initial", false, "Full import of the last 6 months, ignoring the sync token")
	calendarID := fs.String("calendar", a.Config.Google.CalendarID, "Calendar ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()

	oc, err := gcal.NewOAuthConfig(a.Config.Google)
	if err != nil {
		return err
	}
	token, err := gcal.LoadToken(gcal.TokenPath(a.Config.DataDir))
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'incial gcal init' first: %w", err)
	}
	service, err := gcal.NewCalendarClient(ctx, oc, token)
	if err != nil {
		return err
	}

	state, err := db.OpenDatabase(filepath.Join(a.Config.DataDir, "gcal.db"))
	if err != nil {
		return fmt.Errorf("failed to open sync state: %w", err)
	}
	defer func() { _ = state.Close() }()

	importer := gcal.NewImporter(service, a.Meetings, state, *calendarID,
		gcal.WithClock(a.Now),
		gcal.WithLogger(a.Logger.Named("gcal")),
		gcal.WithAssignee(a.Actor()),
	)

	_, _ = fmt.Fprintln(out, "Syncing Google Calendar...")
	res, err := importer.Import(ctx, *initial)
	if err != nil {
		return fmt.Errorf("calendar sync failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "  → Fetched %d events\n", res.Fetched)
	_, _ = fmt.Fprintf(out, "  ✓ Imported %d meetings\n", res.Imported)
	_, _ = fmt.Fprintf(out, "  ✓ %d already present\n", res.Duplicates)
	if skipped := res.SkippedTotal(); skipped > 0 {
		_, _ = fmt.Fprintf(out, "  - Skipped %d events\n", skipped)
		for reason, n := range res.Skipped {
			_, _ = fmt.Fprintf(out, "      %s: %d\n", reason, n)
		}
	}
	if res.Failed > 0 {
		_, _ = fmt.Fprintf(out, "  ⚠ %d events failed to import (see log)\n", res.Failed)
	}
	return nil
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
