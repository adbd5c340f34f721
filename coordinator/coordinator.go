// ABOUTME: Optimistic mutation coordinator over a CRUD backend
// ABOUTME: Overlays in-flight changes, commits newest responses, rolls back and refetches on failure
package coordinator

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/incial/crm/audit"
	"github.com/incial/crm/metrics"
	"github.com/incial/crm/models"
)

// Backend is the authoritative CRUD surface for one collection.
type Backend[E models.Record, P any] interface {
	GetAll(ctx context.Context) ([]E, error)
	Create(ctx context.Context, draft E) (E, error)
	Update(ctx context.Context, id int64, patch P) (E, error)
	Delete(ctx context.Context, id int64) error
}

// State is where a mutation is in its lifecycle.
type State int

const (
	Idle State = iota
	Pending
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}
	return "idle"
}

// Op names a mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Outcome is the final result of one mutation.
type Outcome[E any] struct {
	Token  string
	Op     Op
	State  State
	Entity E
	// Stale is set when the backend accepted the mutation but a newer
	// response for the same id had already been applied locally.
	Stale bool
	// Superseded is set when a later mutation on the same id was issued
	// while this one was in flight.
	Superseded bool
	Kind       models.Kind
	Err        error
}

// Kind adapts the coordinator to one entity type.
type Kind[E models.Record, P any] struct {
	Validate      func(E) error
	ValidatePatch func(P) error
	Apply         func(E, P) E
	StampDraft    func(audit.Stamper, E) E
	StampPatch    func(audit.Stamper, P) P
	// Provisional shapes a draft for local display before the backend assigns an id.
	Provisional func(draft E, id int64, now time.Time) E
	Revision    func(E) int64
	Clone       func(E) E
}

type config struct {
	stamper   audit.Stamper
	notifiers []Notifier
	clock     func() time.Time
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Coordinator.
type Option func(*config)

// WithStamper sets the actor every mutation is stamped with.
func WithStamper(s audit.Stamper) Option {
	return func(c *config) { c.stamper = s }
}

// WithNotifier adds a receiver for state transitions.
func WithNotifier(n Notifier) Option {
	return func(c *config) { c.notifiers = append(c.notifiers, n) }
}

func WithClock(clock func() time.Time) Option {
	return func(c *config) { c.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) { c.logger = logger }
}

type mutation[E models.Record, P any] struct {
	token ulid.ULID
	op    Op
	id    int64
	draft E
	patch P
}

// Coordinator keeps a local view of one collection consistent with its backend.
type Coordinator[E models.Record, P any] struct {
	name     string
	backend  Backend[E, P]
	kind     Kind[E, P]
	stamper  audit.Stamper
	notifier Notifier
	clock    func() time.Time
	metrics  *metrics.Metrics
	logger   *zap.Logger

	tokenMu sync.Mutex
	entropy io.Reader

	mu        sync.Mutex
	base      []E
	pending   []*mutation[E, P]
	issued    map[int64]ulid.ULID
	committed map[int64]ulid.ULID
	deleted   map[int64]bool
	localID   int64

	// epoch counts commits; committedAt records the epoch of each id's last one.
	epoch       uint64
	committedAt map[int64]uint64
}

// New builds a coordinator for the named collection. Call Refresh to load it.
func New[E models.Record, P any](name string, backend Backend[E, P], kind Kind[E, P], opts ...Option) *Coordinator[E, P] {
	cfg := &config{
		stamper: audit.New(""),
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.stamper.Clock == nil {
		cfg.stamper.Clock = cfg.clock
	}

	return &Coordinator[E, P]{
		name:      name,
		backend:   backend,
		kind:      kind,
		stamper:   cfg.stamper,
		notifier:  Notifiers(cfg.notifiers),
		clock:     cfg.clock,
		metrics:   cfg.metrics,
		logger:    cfg.logger.With(zap.String("collection", name)),
		entropy:   ulid.Monotonic(rand.Reader, 0),
		issued:    make(map[int64]ulid.ULID),
		committed: make(map[int64]ulid.ULID),
		deleted:   make(map[int64]bool),

		committedAt: make(map[int64]uint64),
	}
}

// Name returns the collection name.
func (c *Coordinator[E, P]) Name() string {
	return c.name
}

// Actor returns the identity mutations are stamped with.
func (c *Coordinator[E, P]) Actor() string {
	return c.stamper.Stamp().LastUpdatedBy
}

// Refresh replaces the authoritative base with a fresh fetch. Entities
// committed while the fetch was in flight are not rolled back by it.
func (c *Coordinator[E, P]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	since := c.epoch
	c.mu.Unlock()

	items, err := c.backend.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", c.name, err)
	}
	c.mu.Lock()
	c.replaceBase(items, since)
	c.mu.Unlock()
	return nil
}

// Snapshot returns the visible collection: the base with every in-flight
// mutation applied in issue order.
func (c *Coordinator[E, P]) Snapshot() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

// Get returns the visible entity with id.
func (c *Coordinator[E, P]) Get(id int64) (E, bool) {
	for _, e := range c.Snapshot() {
		if e.Key() == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Create adds draft optimistically under a provisional negative id, then
// swaps in the stored entity once the backend confirms.
func (c *Coordinator[E, P]) Create(ctx context.Context, draft E) (Outcome[E], error) {
	if err := c.kind.Validate(draft); err != nil {
		return c.rejected(OpCreate, err)
	}
	draft = c.kind.StampDraft(c.stamper, draft)
	actor := c.Actor()

	c.mu.Lock()
	c.localID--
	m := &mutation[E, P]{token: c.newToken(), op: OpCreate, id: c.localID}
	m.draft = c.kind.Provisional(c.kind.Clone(draft), m.id, c.clock())
	c.pending = append(c.pending, m)
	c.mu.Unlock()
	c.emit(m, Pending, actor, m.id, nil)

	stored, err := c.backend.Create(ctx, draft)
	if err != nil {
		return c.fail(ctx, m, actor, err)
	}

	c.mu.Lock()
	c.drop(m)
	stale := !c.accept(stored, m.token)
	c.mu.Unlock()
	c.emit(m, Committed, actor, stored.Key(), nil)
	return Outcome[E]{Token: m.token.String(), Op: OpCreate, State: Committed, Entity: stored, Stale: stale}, nil
}

// Update overlays patch on id, then reconciles with the backend's merged entity.
func (c *Coordinator[E, P]) Update(ctx context.Context, id int64, patch P) (Outcome[E], error) {
	if id < 0 {
		return c.rejected(OpUpdate, models.Validationf("%s %d is still being created", c.name, id))
	}
	if err := c.kind.ValidatePatch(patch); err != nil {
		return c.rejected(OpUpdate, err)
	}
	patch = c.kind.StampPatch(c.stamper, patch)
	actor := c.Actor()

	c.mu.Lock()
	m := &mutation[E, P]{token: c.newToken(), op: OpUpdate, id: id, patch: patch}
	c.issued[id] = m.token
	c.pending = append(c.pending, m)
	c.mu.Unlock()
	c.emit(m, Pending, actor, id, nil)

	merged, err := c.backend.Update(ctx, id, patch)
	if err != nil {
		return c.fail(ctx, m, actor, err)
	}

	c.mu.Lock()
	c.drop(m)
	stale := !c.accept(merged, m.token)
	superseded := c.issued[id] != m.token
	c.mu.Unlock()
	if stale {
		c.logger.Debug("Discarded stale update response",
			zap.Int64("id", id),
			zap.String("token", m.token.String()),
		)
	}
	c.emit(m, Committed, actor, id, nil)
	return Outcome[E]{Token: m.token.String(), Op: OpUpdate, State: Committed, Entity: merged, Stale: stale, Superseded: superseded}, nil
}

// Delete hides id immediately and removes it for good once the backend confirms.
func (c *Coordinator[E, P]) Delete(ctx context.Context, id int64) (Outcome[E], error) {
	if id < 0 {
		return c.rejected(OpDelete, models.Validationf("%s %d is still being created", c.name, id))
	}
	actor := c.Actor()

	c.mu.Lock()
	m := &mutation[E, P]{token: c.newToken(), op: OpDelete, id: id}
	c.issued[id] = m.token
	c.pending = append(c.pending, m)
	c.mu.Unlock()
	c.emit(m, Pending, actor, id, nil)

	if err := c.backend.Delete(ctx, id); err != nil {
		return c.fail(ctx, m, actor, err)
	}

	c.mu.Lock()
	c.drop(m)
	c.deleted[id] = true
	c.committed[id] = m.token
	c.markCommitted(id)
	if i := c.indexOf(id); i >= 0 {
		c.base = append(c.base[:i:i], c.base[i+1:]...)
	}
	c.mu.Unlock()
	c.emit(m, Committed, actor, id, nil)
	return Outcome[E]{Token: m.token.String(), Op: OpDelete, State: Committed}, nil
}

// InFlight reports how many mutations are awaiting the backend.
func (c *Coordinator[E, P]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// fail drops the overlay and resolves local state to either the pre-mutation
// base or a fresh authoritative fetch.
func (c *Coordinator[E, P]) fail(ctx context.Context, m *mutation[E, P], actor string, err error) (Outcome[E], error) {
	kind := models.KindOf(err)
	if kind == models.KindUnknown {
		kind = models.KindTransport
		err = models.Transport(fmt.Sprintf("%s %s", m.op, c.name), err)
	}

	c.mu.Lock()
	c.drop(m)
	c.mu.Unlock()

	switch kind {
	case models.KindTransport, models.KindNotFound:
		if rerr := c.Refresh(ctx); rerr != nil {
			c.logger.Warn("Refetch after failed mutation failed, keeping previous state",
				zap.String("op", string(m.op)),
				zap.Error(rerr),
			)
		}
	}

	c.logger.Info("Mutation rolled back",
		zap.String("op", string(m.op)),
		zap.Int64("id", m.id),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	c.emit(m, RolledBack, actor, m.id, err)
	return Outcome[E]{Token: m.token.String(), Op: m.op, State: RolledBack, Kind: kind, Err: err}, err
}

func (c *Coordinator[E, P]) rejected(op Op, err error) (Outcome[E], error) {
	c.metrics.RecordMutation(c.name, string(op), "rejected")
	return Outcome[E]{Op: op, State: Idle, Kind: models.KindOf(err), Err: err}, err
}

// accept folds a backend response into the base. It reports false when the
// response is older than what the base already holds. Caller holds mu.
func (c *Coordinator[E, P]) accept(e E, token ulid.ULID) bool {
	id := e.Key()
	if c.deleted[id] {
		return false
	}
	i := c.indexOf(id)
	if i < 0 {
		c.base = append([]E{c.kind.Clone(e)}, c.base...)
		c.committed[id] = token
		c.markCommitted(id)
		return true
	}

	newer := false
	incoming, current := c.kind.Revision(e), c.kind.Revision(c.base[i])
	if incoming > 0 && current > 0 {
		newer = incoming > current
	} else {
		last, ok := c.committed[id]
		newer = !ok || token.Compare(last) > 0
	}
	if !newer {
		return false
	}
	c.base[i] = c.kind.Clone(e)
	c.committed[id] = token
	c.markCommitted(id)
	return true
}

// markCommitted stamps id with the next commit epoch. Caller holds mu.
func (c *Coordinator[E, P]) markCommitted(id int64) {
	c.epoch++
	c.committedAt[id] = c.epoch
}

// replaceBase swaps in a collection fetched after epoch since. A fetched
// entity loses to the base copy when the base holds a higher revision or,
// without revisions, when the base copy was committed after the fetch began.
// Base entities committed after since and missing from the fetch stay at the
// head. Caller holds mu.
func (c *Coordinator[E, P]) replaceBase(items []E, since uint64) {
	fetched := make(map[int64]bool, len(items))
	base := make([]E, 0, len(items))
	for _, e := range items {
		id := e.Key()
		fetched[id] = true
		if c.deleted[id] {
			continue
		}
		if i := c.indexOf(id); i >= 0 && c.newerThanFetch(c.base[i], e, since) {
			base = append(base, c.base[i])
			continue
		}
		base = append(base, c.kind.Clone(e))
	}

	var fresh []E
	for _, e := range c.base {
		if id := e.Key(); !fetched[id] && c.committedAt[id] > since {
			fresh = append(fresh, e)
		}
	}
	c.base = append(fresh, base...)
}

// newerThanFetch expects mu to be held.
func (c *Coordinator[E, P]) newerThanFetch(current, fetched E, since uint64) bool {
	have, got := c.kind.Revision(current), c.kind.Revision(fetched)
	if have > 0 && got > 0 {
		return have > got
	}
	return c.committedAt[current.Key()] > since
}

// view applies pending overlays in issue order. Caller holds mu.
func (c *Coordinator[E, P]) view() []E {
	out := make([]E, len(c.base))
	for i, e := range c.base {
		out[i] = c.kind.Clone(e)
	}
	for _, m := range c.pending {
		switch m.op {
		case OpCreate:
			out = append([]E{c.kind.Clone(m.draft)}, out...)
		case OpUpdate:
			for i, e := range out {
				if e.Key() == m.id {
					out[i] = c.kind.Apply(e, m.patch)
					break
				}
			}
		case OpDelete:
			for i, e := range out {
				if e.Key() == m.id {
					out = append(out[:i:i], out[i+1:]...)
					break
				}
			}
		}
	}
	return out
}

// drop removes m from the pending list. Caller holds mu.
func (c *Coordinator[E, P]) drop(m *mutation[E, P]) {
	for i, p := range c.pending {
		if p == m {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			return
		}
	}
}

// indexOf expects mu to be held.
func (c *Coordinator[E, P]) indexOf(id int64) int {
	for i, e := range c.base {
		if e.Key() == id {
			return i
		}
	}
	return -1
}

func (c *Coordinator[E, P]) newToken() ulid.ULID {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(c.clock()), c.entropy)
}

func (c *Coordinator[E, P]) emit(m *mutation[E, P], state State, actor string, id int64, err error) {
	if state != Pending {
		c.metrics.RecordMutation(c.name, string(m.op), state.String())
	}
	c.notifier.Notify(Event{
		Collection: c.name,
		Op:         m.op,
		State:      state,
		Token:      m.token.String(),
		ID:         id,
		Actor:      actor,
		Kind:       models.KindOf(err),
		Err:        err,
		At:         c.clock(),
	})
}
