// ABOUTME: Charm KV client used as a mirror backend
// ABOUTME: Wraps charm kv or a local badger store behind one interface with optional auto-sync

package charm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// backing is the part of charm kv the client relies on.
type backing interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

var _ backing = (*kv.KV)(nil)

// Client wraps a charm KV database with config and sync helpers.
type Client struct {
	mu     sync.RWMutex
	db     backing
	config *Config
	remote bool
}

// Open connects to the charm KV database named by the config's prefix.
func Open(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{db: db, config: cfg, remote: true}

	// Pull remote changes before the first read when local data is stale
	if cfg.AutoSync && cfg.Stale(time.Now()) {
		if err := db.Sync(); err == nil {
			cfg.MarkSynced(time.Now())
		}
	}
	return c, nil
}

// Config returns the client's config.
func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "local", nil
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// Sync pushes and pulls with the charm server and records the time.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.Sync(); err != nil {
		return err
	}
	c.config.MarkSynced(time.Now())
	return nil
}

// Get retrieves a value by key. A missing key returns ErrNotFound.
func (c *Client) Get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, err := c.db.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Set stores a value and syncs when auto-sync is on.
func (c *Client) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Set([]byte(key), value); err != nil {
		return err
	}
	// Sync under the lock so a concurrent Set cannot interleave
	if c.config.AutoSync {
		_ = c.db.Sync()
	}
	return nil
}

// Delete removes a key and syncs when auto-sync is on.
func (c *Client) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Delete([]byte(key)); err != nil {
		return err
	}
	if c.config.AutoSync {
		_ = c.db.Sync()
	}
	return nil
}

// KeysWithPrefix returns all keys starting with prefix.
func (c *Client) KeysWithPrefix(prefix string) ([]string, error) {
	c.mu.RLock()
	keys, err := c.db.Keys()
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, k := range keys {
		if strings.HasPrefix(string(k), prefix) {
			matched = append(matched, string(k))
		}
	}
	return matched, nil
}

// Reset wipes all local data.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Reset()
}

// Close releases the local database. charm kv keeps its handle for the life
// of the process, so only local stores are closed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if closer, ok := c.db.(interface{ Close() error }); ok && !c.remote {
		return closer.Close()
	}
	return nil
}
