// ABOUTME: Local badger-backed charm client for tests and offline use
// ABOUTME: Same key/value surface as charm kv without a server connection

package charm

import (
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// localKV stores keys in a plain badger database. Sync is a no-op.
type localKV struct {
	db *badger.DB
}

func (l *localKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (l *localKV) Set(key, value []byte) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (l *localKV) Delete(key []byte) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (l *localKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (l *localKV) Sync() error { return nil }

func (l *localKV) Reset() error { return l.db.DropAll() }

func (l *localKV) Close() error { return l.db.Close() }

// OpenLocal opens a client over a badger database in dir, with no server sync.
func OpenLocal(dir string) (*Client, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open local kv: %w", err)
	}
	return &Client{
		db:     &localKV{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
	}, nil
}

// NewTestClient creates a local client in a temp directory that is closed
// when the test ends.
func NewTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := OpenLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test client: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("warning: failed to close test client: %v", err)
		}
	})
	return c
}
