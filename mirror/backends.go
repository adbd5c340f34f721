// ABOUTME: Mirror KV backends: memory, sqlite, badger, redis and charm
// ABOUTME: Each maps its own not-found signal onto ErrMissing
package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-redis/redis/v8"

	"github.com/incial/crm/charm"
	"github.com/incial/crm/config"
	"github.com/incial/crm/db"
)

// Memory keeps values in process. Used for tests and `mirror.backend: memory`.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrMissing
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error { return nil }

// SQLite stores values in the kv table of a WAL-mode database.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	conn, err := db.OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: conn}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := db.GetValue(ctx, s.db, key)
	if errors.Is(err, db.ErrNoValue) {
		return nil, ErrMissing
	}
	return v, err
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	return db.SetValue(ctx, s.db, key, value)
}

func (s *SQLite) Close() error { return s.db.Close() }

// Badger stores values in a local badger directory.
type Badger struct {
	db *badger.DB
}

func OpenBadger(path string) (*Badger, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	bdb, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &Badger{db: bdb}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMissing
	}
	return value, err
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Close() error { return b.db.Close() }

// Redis stores values as plain string keys.
type Redis struct {
	client *redis.Client
}

// OpenRedis parses url, connects and pings.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedis(ctx, redis.NewClient(opt))
}

// NewRedis wraps an existing client after checking it answers.
func NewRedis(ctx context.Context, client *redis.Client) (*Redis, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMissing
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Close() error { return r.client.Close() }

// Charm stores values in charm KV, which syncs to the charm server.
type Charm struct {
	client *charm.Client
}

// OpenCharm connects to the charm database named by the mirror's key prefix.
func OpenCharm(m config.MirrorConfig) (*Charm, error) {
	cfg, err := charm.LoadMirrorConfig(m)
	if err != nil {
		return nil, err
	}
	c, err := charm.Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewCharm(c), nil
}

func NewCharm(c *charm.Client) *Charm {
	return &Charm{client: c}
}

func (c *Charm) Get(_ context.Context, key string) ([]byte, error) {
	v, err := c.client.Get(key)
	if errors.Is(err, charm.ErrNotFound) {
		return nil, ErrMissing
	}
	return v, err
}

func (c *Charm) Set(_ context.Context, key string, value []byte) error {
	return c.client.Set(key, value)
}

func (c *Charm) Sync() error { return c.client.Sync() }

func (c *Charm) Close() error { return c.client.Close() }
