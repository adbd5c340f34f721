// ABOUTME: Explicitly constructed entity store holding deals, tasks, meetings and users
// ABOUTME: Applies ids, defaults, revisions, audit fallback and deal reference ids
package store

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/incial/crm/audit"
	"github.com/incial/crm/metrics"
	"github.com/incial/crm/models"
)

// Seed is the initial content of a store.
type Seed struct {
	Deals    []models.Deal
	Tasks    []models.Task
	Meetings []models.Meeting
	Users    []models.User
}

// DefaultLatency returns the per-collection delays a hosted backend showed.
func DefaultLatency() map[string]Latency {
	return map[string]Latency{
		models.CollectionDeals:    {Read: 400 * time.Millisecond, Write: 300 * time.Millisecond},
		models.CollectionTasks:    {Read: 300 * time.Millisecond, Write: 200 * time.Millisecond},
		models.CollectionMeetings: {Read: 300 * time.Millisecond, Write: 200 * time.Millisecond},
	}
}

type options struct {
	seed      Seed
	latency   map[string]Latency
	clock     func() time.Time
	rng       *rand.Rand
	observers []Observer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*options)

// WithSeed sets the initial content.
func WithSeed(seed Seed) Option {
	return func(o *options) { o.seed = seed }
}

// WithLatency overrides simulated latency. A nil map disables it.
func WithLatency(latency map[string]Latency) Option {
	return func(o *options) { o.latency = latency }
}

// WithoutLatency disables simulated latency.
func WithoutLatency() Option {
	return WithLatency(nil)
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithRand sets the source used for deal reference numbers.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithObserver registers fn on every collection.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Store owns the three entity collections and the user directory.
type Store struct {
	deals    *Collection[models.Deal, models.DealPatch]
	tasks    *Collection[models.Task, models.TaskPatch]
	meetings *Collection[models.Meeting, models.MeetingPatch]
	users    *Directory

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New builds a store. With no options it is empty and uses the default latency.
func New(opts ...Option) *Store {
	o := &options{
		latency: DefaultLatency(),
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))
	}

	s := &Store{rng: o.rng}
	s.deals = newCollection(models.CollectionDeals, s.dealBehaviour(), o.seed.Deals, o)
	s.tasks = newCollection(models.CollectionTasks, taskBehaviour(), o.seed.Tasks, o)
	s.meetings = newCollection(models.CollectionMeetings, meetingBehaviour(), o.seed.Meetings, o)
	s.users = newDirectory(o.seed.Users)

	o.logger.Info("Store initialized",
		zap.Int("deals", len(o.seed.Deals)),
		zap.Int("tasks", len(o.seed.Tasks)),
		zap.Int("meetings", len(o.seed.Meetings)),
		zap.Int("users", len(o.seed.Users)),
	)
	return s
}

func (s *Store) Deals() *Collection[models.Deal, models.DealPatch]          { return s.deals }
func (s *Store) Tasks() *Collection[models.Task, models.TaskPatch]          { return s.tasks }
func (s *Store) Meetings() *Collection[models.Meeting, models.MeetingPatch] { return s.meetings }
func (s *Store) Users() *Directory                                          { return s.users }

// Snapshot copies every collection without latency.
func (s *Store) Snapshot() Seed {
	return Seed{
		Deals:    s.deals.Snapshot(),
		Tasks:    s.tasks.Snapshot(),
		Meetings: s.meetings.Snapshot(),
		Users:    s.users.all(),
	}
}

// Observe registers fn on every collection.
func (s *Store) Observe(fn Observer) {
	s.deals.Observe(fn)
	s.tasks.Observe(fn)
	s.meetings.Observe(fn)
}

// referenceStatuses are the deal states that carry a reference number.
var referenceStatuses = []string{models.DealOnboarded, models.DealOnProgress}

// ReferenceID formats a deal reference number.
func ReferenceID(year, n int) string {
	return fmt.Sprintf("REF-%d-%04d", year, n)
}

func (s *Store) newReference(now time.Time) string {
	s.rngMu.Lock()
	n := s.rng.IntN(10000)
	s.rngMu.Unlock()
	return ReferenceID(now.Year(), n)
}

func (s *Store) assignReference(d *models.Deal, now time.Time) {
	if d.ReferenceID == "" && models.Contains(referenceStatuses, d.Status) {
		d.ReferenceID = s.newReference(now)
	}
}

// stamped falls back to the unknown actor so nothing is stored unstamped.
func stamped(a models.Audit, now time.Time) models.Audit {
	if a.Stamped() {
		return a
	}
	fallback := audit.Stamp(a.LastUpdatedBy, now)
	if a.LastUpdatedAt != nil {
		fallback.LastUpdatedAt = a.LastUpdatedAt
	}
	return fallback
}

func (s *Store) dealBehaviour() behaviour[models.Deal, models.DealPatch] {
	return behaviour[models.Deal, models.DealPatch]{
		validate:      models.ValidateDeal,
		validatePatch: models.ValidateDealPatch,
		create: func(d models.Deal, id int64, now time.Time) models.Deal {
			d.ID = id
			d.CreatedAt = now
			d.Revision = 1
			d.ApplyDefaults()
			d.Audit = stamped(d.Audit, now)
			s.assignReference(&d, now)
			return d
		},
		update: func(cur models.Deal, p models.DealPatch, now time.Time) models.Deal {
			p.Audit = stamped(p.Audit, now)
			next := p.Apply(cur)
			next.Revision = cur.Revision + 1
			s.assignReference(&next, now)
			return next
		},
		clone: models.Deal.Clone,
	}
}

func taskBehaviour() behaviour[models.Task, models.TaskPatch] {
	return behaviour[models.Task, models.TaskPatch]{
		validate:      models.ValidateTask,
		validatePatch: models.ValidateTaskPatch,
		create: func(t models.Task, id int64, now time.Time) models.Task {
			t.ID = id
			t.CreatedAt = now
			t.Revision = 1
			t.ApplyDefaults()
			t.Audit = stamped(t.Audit, now)
			return t
		},
		update: func(cur models.Task, p models.TaskPatch, now time.Time) models.Task {
			p.Audit = stamped(p.Audit, now)
			next := p.Apply(cur)
			next.Revision = cur.Revision + 1
			return next
		},
		clone: models.Task.Clone,
	}
}

func meetingBehaviour() behaviour[models.Meeting, models.MeetingPatch] {
	return behaviour[models.Meeting, models.MeetingPatch]{
		validate:      models.ValidateMeeting,
		validatePatch: models.ValidateMeetingPatch,
		create: func(m models.Meeting, id int64, now time.Time) models.Meeting {
			m.ID = id
			m.CreatedAt = now
			m.Revision = 1
			m.ApplyDefaults()
			m.Audit = stamped(m.Audit, now)
			return m
		},
		update: func(cur models.Meeting, p models.MeetingPatch, now time.Time) models.Meeting {
			p.Audit = stamped(p.Audit, now)
			next := p.Apply(cur)
			next.Revision = cur.Revision + 1
			return next
		},
		clone: models.Meeting.Clone,
	}
}
