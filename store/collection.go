// ABOUTME: Generic in-memory collection with id assignment, latency and observers
// ABOUTME: Deals, tasks and meetings share it through per-kind behaviour hooks
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/incial/crm/metrics"
	"github.com/incial/crm/models"
)

// Latency is the simulated delay for reads and writes on one collection.
type Latency struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
}

// Observer is told the collection name after every successful mutation.
type Observer func(ctx context.Context, collection string)

// behaviour is what differs between entity kinds.
type behaviour[E models.Record, P any] struct {
	validate      func(E) error
	validatePatch func(P) error
	// create prepares a draft for insertion under id.
	create func(draft E, id int64, now time.Time) E
	// update merges a patch into the stored entity.
	update func(cur E, p P, now time.Time) E
	clone  func(E) E
}

// Collection holds one entity type. It is safe for concurrent use.
type Collection[E models.Record, P any] struct {
	name    string
	kind    behaviour[E, P]
	latency Latency
	clock   func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu        sync.RWMutex
	items     []E
	lastID    int64
	observers []Observer
}

func newCollection[E models.Record, P any](name string, kind behaviour[E, P], seed []E, o *options) *Collection[E, P] {
	c := &Collection[E, P]{
		name:      name,
		kind:      kind,
		latency:   o.latency[name],
		clock:     o.clock,
		metrics:   o.metrics,
		logger:    o.logger.With(zap.String("collection", name)),
		observers: o.observers,
	}
	c.items = make([]E, 0, len(seed))
	for _, e := range seed {
		c.items = append(c.items, kind.clone(e))
		if e.Key() > c.lastID {
			c.lastID = e.Key()
		}
	}
	c.metrics.SetEntities(name, len(c.items))
	return c
}

// Name returns the collection name.
func (c *Collection[E, P]) Name() string {
	return c.name
}

// GetAll returns a copy of the collection, newest first.
func (c *Collection[E, P]) GetAll(ctx context.Context) ([]E, error) {
	start := time.Now()
	if err := waitCtx(ctx, c.latency.Read); err != nil {
		c.record("get_all", start, err)
		return nil, err
	}
	out := c.Snapshot()
	c.record("get_all", start, nil)
	return out, nil
}

// Get returns the entity with id.
func (c *Collection[E, P]) Get(ctx context.Context, id int64) (E, error) {
	start := time.Now()
	var zero E
	if err := waitCtx(ctx, c.latency.Read); err != nil {
		c.record("get", start, err)
		return zero, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		c.record("get", start, nil)
		return c.kind.clone(c.items[i]), nil
	}
	err := models.NotFound(c.name, id)
	c.record("get", start, err)
	return zero, err
}

// Snapshot returns a copy of the collection without simulated latency.
func (c *Collection[E, P]) Snapshot() []E {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]E, len(c.items))
	for i, e := range c.items {
		out[i] = c.kind.clone(e)
	}
	return out
}

// Create stores draft under a fresh id and returns the stored entity. Any id,
// createdAt or revision on the draft is ignored.
func (c *Collection[E, P]) Create(ctx context.Context, draft E) (E, error) {
	start := time.Now()
	var zero E
	if err := c.kind.validate(draft); err != nil {
		c.record("create", start, err)
		return zero, err
	}
	wait(c.latency.Write)

	c.mu.Lock()
	now := c.clock()
	id := c.nextID(now)
	stored := c.kind.create(c.kind.clone(draft), id, now)
	c.items = append([]E{stored}, c.items...)
	size := len(c.items)
	c.mu.Unlock()

	c.logger.Debug("Created entity", zap.Int64("id", id))
	c.afterMutation(ctx, size)
	c.record("create", start, nil)
	return c.kind.clone(stored), nil
}

// Update merges patch into the entity with id.
func (c *Collection[E, P]) Update(ctx context.Context, id int64, patch P) (E, error) {
	start := time.Now()
	var zero E
	if err := c.kind.validatePatch(patch); err != nil {
		c.record("update", start, err)
		return zero, err
	}
	wait(c.latency.Write)

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		err := models.NotFound(c.name, id)
		c.record("update", start, err)
		return zero, err
	}
	merged := c.kind.update(c.items[i], patch, c.clock())
	c.items[i] = merged
	size := len(c.items)
	c.mu.Unlock()

	c.logger.Debug("Updated entity", zap.Int64("id", id))
	c.afterMutation(ctx, size)
	c.record("update", start, nil)
	return c.kind.clone(merged), nil
}

// Delete removes the entity with id. Deleting a missing id is not an error.
func (c *Collection[E, P]) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	wait(c.latency.Write)

	c.mu.Lock()
	i := c.indexOf(id)
	if i >= 0 {
		c.items = append(c.items[:i:i], c.items[i+1:]...)
	}
	size := len(c.items)
	c.mu.Unlock()

	if i >= 0 {
		c.logger.Debug("Deleted entity", zap.Int64("id", id))
		c.afterMutation(ctx, size)
	}
	c.record("delete", start, nil)
	return nil
}

// Observe registers fn for every later successful mutation.
func (c *Collection[E, P]) Observe(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// nextID never reuses an id, even after deletes. Caller holds mu.
func (c *Collection[E, P]) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}

// indexOf expects mu to be held.
func (c *Collection[E, P]) indexOf(id int64) int {
	for i, e := range c.items {
		if e.Key() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[E, P]) afterMutation(ctx context.Context, size int) {
	c.metrics.SetEntities(c.name, size)

	c.mu.RLock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.RUnlock()

	for _, fn := range observers {
		fn(ctx, c.name)
	}
}

func (c *Collection[E, P]) record(op string, start time.Time, err error) {
	kind := ""
	if err != nil {
		kind = models.KindOf(err).String()
		c.logger.Debug("Store operation failed", zap.String("op", op), zap.Error(err))
	}
	c.metrics.RecordStoreOp(c.name, op, time.Since(start), kind)
}

// waitCtx sleeps for d unless ctx is cancelled first.
func waitCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// wait sleeps for d. Mutations are not cancellable once issued.
func wait(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
