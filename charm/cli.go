// ABOUTME: CLI commands for the charm mirror: link, status, now, auto, reset
// ABOUTME: SSH key auth is handled by charm itself, so there is no login step

package charm

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/incial/crm/config"
)

// Opener returns a client for sync commands. Tests pass a local client.
type Opener func(cfg *Config) (*Client, error)

// Commands runs the `sync` subcommands against clients from open.
type Commands struct {
	Open   Opener
	Out    io.Writer
	Mirror config.MirrorConfig

	// Load overrides where settings come from. Defaults to LoadMirrorConfig.
	Load func() (*Config, error)
}

// Run dispatches a sync subcommand.
func (s Commands) Run(args []string) error {
	if len(args) == 0 {
		return s.Status(nil)
	}
	switch args[0] {
	case "link":
		return s.Link(args[1:])
	case "status":
		return s.Status(args[1:])
	case "now":
		return s.Now(args[1:])
	case "auto":
		return s.Auto(args[1:])
	case "reset":
		return s.Reset(args[1:])
	default:
		return fmt.Errorf("unknown sync command: %s", args[0])
	}
}

func (s Commands) settings() (*Config, error) {
	if s.Load != nil {
		return s.Load()
	}
	return LoadMirrorConfig(s.Mirror)
}

func (s Commands) client() (*Config, *Client, error) {
	cfg, err := s.settings()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	c, err := s.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return cfg, c, nil
}

// Link checks the connection by syncing once and prints the account id.
func (s Commands) Link(args []string) error {
	fs := flag.NewFlagSet("sync link", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, c, err := s.client()
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(s.Out, "Linking to Charm (%s)...\n", cfg.Host)
	if err := c.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}
	if err := c.Config().Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if id, err := c.ID(); err != nil {
		fmt.Fprintln(s.Out, "✓ Device linked (ID unavailable)")
	} else {
		fmt.Fprintf(s.Out, "✓ Linked to account: %s\n", id)
	}
	fmt.Fprintf(s.Out, "✓ Auto-sync: %v\n", cfg.AutoSync)
	return nil
}

// Status prints the server, auto-sync setting and mirrored collections.
func (s Commands) Status(args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, c, err := s.client()
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintln(s.Out, "Charm Mirror Status")
	fmt.Fprintln(s.Out, "───────────────────")
	fmt.Fprintf(s.Out, "Server:    %s\n", cfg.Host)
	fmt.Fprintf(s.Out, "Database:  %s\n", cfg.Database())
	fmt.Fprintf(s.Out, "Auto-sync: %v\n", cfg.AutoSync)
	if cfg.LastSync.IsZero() {
		fmt.Fprintln(s.Out, "Last sync: never")
	} else {
		fmt.Fprintf(s.Out, "Last sync: %s\n", cfg.LastSync.Local().Format(time.DateTime))
	}
	if cfg.Stale(time.Now()) {
		fmt.Fprintln(s.Out, "Data:      stale, run 'incial sync now'")
	}

	if id, err := c.ID(); err == nil {
		fmt.Fprintf(s.Out, "ID:        %s\n", id)
	} else {
		fmt.Fprintln(s.Out, "Status:    not connected")
	}

	keys, err := c.KeysWithPrefix(cfg.KeyPrefix())
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	fmt.Fprintf(s.Out, "Collections: %d\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(s.Out, "  %s\n", k)
	}
	return nil
}

// Now performs an immediate sync.
func (s Commands) Now(args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, c, err := s.client()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if err := c.Config().Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintln(s.Out, "✓ Synced")
	return nil
}

// Auto enables or disables auto-sync.
func (s Commands) Auto(args []string) error {
	fs := flag.NewFlagSet("sync auto", flag.ContinueOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *enable == *disable {
		return fmt.Errorf("usage: incial sync auto --enable|--disable")
	}

	cfg, err := s.settings()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.AutoSync = *enable
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if *enable {
		fmt.Fprintln(s.Out, "✓ Auto-sync enabled")
	} else {
		fmt.Fprintln(s.Out, "✓ Auto-sync disabled")
	}
	return nil
}

// Reset deletes all mirrored data. Requires --confirm.
func (s Commands) Reset(args []string) error {
	fs := flag.NewFlagSet("sync reset", flag.ContinueOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		fmt.Fprintln(s.Out, "WARNING: This will delete ALL mirrored data!")
		fmt.Fprintln(s.Out, "To confirm, run:")
		fmt.Fprintln(s.Out, "  incial sync reset --confirm")
		return nil
	}

	_, c, err := s.client()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}
	fmt.Fprintln(s.Out, "✓ All mirrored data wiped")
	return nil
}
