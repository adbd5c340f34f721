// ABOUTME: Credential commands: `token issue` for the server and `remote login` for clients
// ABOUTME: Login reads the token without echo and verifies it before saving
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/incial/crm/config"
	"github.com/incial/crm/models"
	"github.com/incial/crm/remote"
	"github.com/incial/crm/web"
)

// TokenIssueCommand signs a bearer token for a configured user.
func TokenIssueCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token issue", flag.ContinueOnError)
	email := fs.String("email", "", "User email (required)")
	ttl := fs.Duration("ttl", cfg.Server.TokenTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	var user *models.User
	for i := range cfg.Users {
		if strings.EqualFold(cfg.Users[i].Email, *email) {
			user = &cfg.Users[i]
			break
		}
	}
	if user == nil {
		return fmt.Errorf("no configured user with email %s", *email)
	}

	token, err := web.IssueToken([]byte(cfg.Server.JWTSecret), *user, *ttl, now())
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	_, _ = fmt.Fprintln(out, token)
	return nil
}

// readSecret reads a line from in without echo when in is a terminal.
var readSecret = func(in *os.File) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		b, err := term.ReadPassword(int(in.Fd()))
		_, _ = fmt.Fprintln(out)
		return string(b), err
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// RemoteLoginCommand verifies a token against a server and saves it.
func RemoteLoginCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("remote login", flag.ContinueOnError)
	baseURL := fs.String("url", cfg.Remote.BaseURL, "Server API URL, e.g. http://localhost:8080/api/v1")
	token := fs.String("token", "", "Bearer token (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *baseURL == "" {
		return fmt.Errorf("--url is required")
	}

	secret := *token
	if secret == "" {
		_, _ = fmt.Fprint(out, "Token: ")
		var err error
		secret, err = readSecret(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("token is empty")
	}

	client := remote.New(*baseURL, secret)
	users, err := client.Users(context.Background())
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := config.SaveCredentials(cfg.DataDir, config.Credentials{BaseURL: *baseURL, Token: secret}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Logged in to %s (%d users visible)\n", *baseURL, len(users))
	_, _ = fmt.Fprintf(out, "✓ Credentials saved to %s\n", config.CredentialsPath(cfg.DataDir))
	return nil
}

// RemoteLogoutCommand removes saved credentials.
func RemoteLogoutCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("remote logout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := config.CredentialsPath(cfg.DataDir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	_, _ = fmt.Fprintln(out, "✓ Logged out")
	return nil
}
