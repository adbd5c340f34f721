// ABOUTME: Mirrors store collections into a key/value backend as JSON arrays
// ABOUTME: Seeds the store at startup and rewrites a collection after each mutation
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/incial/crm/config"
	"github.com/incial/crm/metrics"
	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

// ErrMissing is returned by KV.Get when the key has never been written.
var ErrMissing = errors.New("mirror: key not found")

// KV is the storage a mirror writes through.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// syncer is implemented by backends that replicate elsewhere (charm).
type syncer interface {
	Sync() error
}

// Collections lists the mirrored collections in load order.
var Collections = []string{models.CollectionDeals, models.CollectionTasks, models.CollectionMeetings}

// Key returns the key holding collection under prefix.
func Key(prefix, collection string) string {
	return prefix + "/" + collection
}

type Option func(*Mirror)

func WithPrefix(prefix string) Option {
	return func(m *Mirror) { m.prefix = prefix }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Mirror) { m.metrics = mt }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Mirror) { m.logger = logger }
}

// Mirror writes store snapshots to a KV backend. A nil *Mirror is a disabled
// mirror: loads return an empty seed and writes do nothing.
type Mirror struct {
	kv      KV
	backend string
	prefix  string
	metrics *metrics.Metrics
	logger  *zap.Logger

	// Serializes snapshot-then-write so an older snapshot never lands last.
	mu sync.Mutex
}

// New wraps kv. backend names it in logs and metrics.
func New(kv KV, backend string, opts ...Option) *Mirror {
	m := &Mirror{
		kv:      kv,
		backend: backend,
		prefix:  config.AppName,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open builds the backend named in cfg. MirrorNone returns a nil Mirror.
func Open(ctx context.Context, cfg config.MirrorConfig, opts ...Option) (*Mirror, error) {
	var (
		kv  KV
		err error
	)
	switch cfg.Backend {
	case config.MirrorNone, "":
		return nil, nil
	case config.MirrorMemory:
		kv = NewMemory()
	case config.MirrorSQLite:
		kv, err = OpenSQLite(cfg.Path)
	case config.MirrorBadger:
		kv, err = OpenBadger(cfg.Path)
	case config.MirrorRedis:
		kv, err = OpenRedis(ctx, cfg.RedisURL)
	case config.MirrorCharm:
		kv, err = OpenCharm(cfg)
	default:
		return nil, fmt.Errorf("unknown mirror backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s mirror: %w", cfg.Backend, err)
	}

	if cfg.KeyPrefix != "" {
		opts = append([]Option{WithPrefix(cfg.KeyPrefix)}, opts...)
	}
	return New(kv, cfg.Backend, opts...), nil
}

// Backend names the underlying KV.
func (m *Mirror) Backend() string {
	if m == nil {
		return config.MirrorNone
	}
	return m.backend
}

// Load reads every collection. Missing keys load as empty collections.
// Users are not mirrored; they come from configuration.
func (m *Mirror) Load(ctx context.Context) (store.Seed, error) {
	var seed store.Seed
	if m == nil {
		return seed, nil
	}
	if err := m.load(ctx, models.CollectionDeals, &seed.Deals); err != nil {
		return seed, err
	}
	if err := m.load(ctx, models.CollectionTasks, &seed.Tasks); err != nil {
		return seed, err
	}
	if err := m.load(ctx, models.CollectionMeetings, &seed.Meetings); err != nil {
		return seed, err
	}

	m.logger.Info("Mirror loaded",
		zap.String("backend", m.backend),
		zap.Int("deals", len(seed.Deals)),
		zap.Int("tasks", len(seed.Tasks)),
		zap.Int("meetings", len(seed.Meetings)),
	)
	return seed, nil
}

func (m *Mirror) load(ctx context.Context, collection string, dst any) error {
	data, err := m.kv.Get(ctx, Key(m.prefix, collection))
	if errors.Is(err, ErrMissing) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

// Attach registers the mirror as a store observer. Write failures are logged
// and counted, never returned to the mutation.
func (m *Mirror) Attach(s *store.Store) {
	if m == nil {
		return
	}
	s.Observe(func(ctx context.Context, collection string) {
		if err := m.Write(context.WithoutCancel(ctx), s, collection); err != nil {
			m.logger.Warn("Mirror write failed",
				zap.String("backend", m.backend),
				zap.String("collection", collection),
				zap.Error(err),
			)
		}
	})
}

// Write stores the current contents of one collection.
func (m *Mirror) Write(ctx context.Context, s *store.Store, collection string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := encode(s, collection)
	if err == nil {
		err = m.kv.Set(ctx, Key(m.prefix, collection), data)
	}
	m.metrics.RecordMirrorWrite(m.backend, err)
	return err
}

// Sync rewrites every collection and, for replicating backends, pushes them.
func (m *Mirror) Sync(ctx context.Context, s *store.Store) error {
	if m == nil {
		return nil
	}
	for _, collection := range Collections {
		if err := m.Write(ctx, s, collection); err != nil {
			return fmt.Errorf("failed to write %s: %w", collection, err)
		}
	}
	if sy, ok := m.kv.(syncer); ok {
		if err := sy.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s mirror: %w", m.backend, err)
		}
	}
	m.logger.Debug("Mirror synced", zap.String("backend", m.backend))
	return nil
}

// Close releases the backend.
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.kv.Close()
}

func encode(s *store.Store, collection string) ([]byte, error) {
	switch collection {
	case models.CollectionDeals:
		return marshalList(s.Deals().Snapshot())
	case models.CollectionTasks:
		return marshalList(s.Tasks().Snapshot())
	case models.CollectionMeetings:
		return marshalList(s.Meetings().Snapshot())
	default:
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
}

// marshalList writes an empty collection as [] rather than null.
func marshalList[E any](items []E) ([]byte, error) {
	if items == nil {
		items = []E{}
	}
	return json.Marshal(items)
}
