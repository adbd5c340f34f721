// ABOUTME: Tests for the optimistic mutation coordinator
// ABOUTME: Rollback, stale response rejection, tombstones and the concurrent merge scenario
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/audit"
	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type taskCollection = store.Collection[models.Task, models.TaskPatch]

func seedTasks() []models.Task {
	return []models.Task{
		{ID: 3, Title: "Reel cut", Status: models.TaskInProgress, Priority: models.PriorityLow, Revision: 1},
		{ID: 2, Title: "Story plan", Status: models.TaskNotStarted, Priority: models.PriorityMedium, Revision: 1},
		{ID: 1, Title: "Invoice", Status: models.TaskDone, Priority: models.PriorityHigh, Revision: 1},
	}
}

func newTaskStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(
		store.WithoutLatency(),
		store.WithClock(func() time.Time { return testNow }),
		store.WithSeed(store.Seed{Tasks: seedTasks()}),
	)
}

func newTasks(t *testing.T, b Backend[models.Task, models.TaskPatch], opts ...Option) *Tasks {
	t.Helper()
	base := []Option{
		WithStamper(audit.Stamper{Actor: "Asha", Clock: func() time.Time { return testNow }}),
		WithClock(func() time.Time { return testNow }),
	}
	c := NewTasks(b, append(base, opts...)...)
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

// countingBackend records calls and can fail every mutation.
type countingBackend struct {
	Backend[models.Task, models.TaskPatch]
	fail      error
	applyToo  bool
	getAll    atomic.Int32
	mutations atomic.Int32
}

func (b *countingBackend) GetAll(ctx context.Context) ([]models.Task, error) {
	b.getAll.Add(1)
	return b.Backend.GetAll(ctx)
}

func (b *countingBackend) Create(ctx context.Context, draft models.Task) (models.Task, error) {
	b.mutations.Add(1)
	if b.fail != nil {
		if b.applyToo {
			_, _ = b.Backend.Create(ctx, draft)
		}
		return models.Task{}, b.fail
	}
	return b.Backend.Create(ctx, draft)
}

func (b *countingBackend) Update(ctx context.Context, id int64, p models.TaskPatch) (models.Task, error) {
	b.mutations.Add(1)
	if b.fail != nil {
		if b.applyToo {
			_, _ = b.Backend.Update(ctx, id, p)
		}
		return models.Task{}, b.fail
	}
	return b.Backend.Update(ctx, id, p)
}

func (b *countingBackend) Delete(ctx context.Context, id int64) error {
	b.mutations.Add(1)
	if b.fail != nil {
		return b.fail
	}
	return b.Backend.Delete(ctx, id)
}

// gatedBackend applies each update immediately but holds the response until released.
type gatedBackend struct {
	inner   *taskCollection
	arrived chan chan struct{}
}

func newGated(c *taskCollection) *gatedBackend {
	return &gatedBackend{inner: c, arrived: make(chan chan struct{})}
}

func (g *gatedBackend) GetAll(ctx context.Context) ([]models.Task, error) {
	return g.inner.GetAll(ctx)
}

func (g *gatedBackend) Update(ctx context.Context, id int64, p models.TaskPatch) (models.Task, error) {
	t, err := g.inner.Update(ctx, id, p)
	release := make(chan struct{})
	g.arrived <- release
	<-release
	return t, err
}

func (g *gatedBackend) Create(ctx context.Context, draft models.Task) (models.Task, error) {
	release := make(chan struct{})
	g.arrived <- release
	<-release
	return g.inner.Create(ctx, draft)
}

func (g *gatedBackend) Delete(ctx context.Context, id int64) error {
	release := make(chan struct{})
	g.arrived <- release
	<-release
	return g.inner.Delete(ctx, id)
}

func find(items []models.Task, id int64) (models.Task, bool) {
	for _, t := range items {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func TestCreateShowsProvisionalThenStored(t *testing.T) {
	s := newTaskStore(t)
	g := newGated(s.Tasks())
	c := newTasks(t, g)

	done := make(chan Outcome[models.Task])
	go func() {
		out, err := c.Create(context.Background(), models.Task{Title: "Carousel for launch"})
		assert.NoError(t, err)
		done <- out
	}()
	release := <-g.arrived

	view := c.Snapshot()
	require.Len(t, view, 4)
	assert.Less(t, view[0].ID, int64(0), "provisional id is negative")
	assert.Equal(t, "Carousel for launch", view[0].Title)
	assert.Equal(t, models.TaskNotStarted, view[0].Status)
	assert.Equal(t, 1, c.InFlight())

	close(release)
	out := <-done
	assert.Equal(t, Committed, out.State)
	assert.Greater(t, out.Entity.ID, int64(0))
	assert.Equal(t, "Asha", out.Entity.LastUpdatedBy)

	view = c.Snapshot()
	require.Len(t, view, 4)
	assert.Equal(t, out.Entity.ID, view[0].ID)
	assert.Zero(t, c.InFlight())
}

func TestValidationNeverReachesBackend(t *testing.T) {
	b := &countingBackend{Backend: newTaskStore(t).Tasks()}
	var events []Event
	c := newTasks(t, b, WithNotifier(NotifierFunc(func(e Event) { events = append(events, e) })))

	out, err := c.Create(context.Background(), models.Task{Title: ""})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, Idle, out.State)

	_, err = c.Update(context.Background(), 3, models.TaskPatch{Priority: models.Ptr("Urgent")})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = c.Update(context.Background(), -1, models.TaskPatch{Title: models.Ptr("x")})
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Zero(t, b.mutations.Load())
	assert.Empty(t, events, "no pending state is ever entered")
	assert.Equal(t, seedTasks(), c.Snapshot())
}

func TestUpdateIsStampedAndCommitted(t *testing.T) {
	s := newTaskStore(t)
	var states []string
	c := newTasks(t, s.Tasks(), WithNotifier(NotifierFunc(func(e Event) { states = append(states, e.StateName) })))

	out, err := c.Update(context.Background(), 2, models.TaskPatch{Status: models.Ptr(models.TaskInProgress)})
	require.NoError(t, err)
	assert.Equal(t, Committed, out.State)
	assert.NotEmpty(t, out.Token)

	got, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, models.TaskInProgress, got.Status)
	assert.Equal(t, "Asha", got.LastUpdatedBy)
	require.NotNil(t, got.LastUpdatedAt)
	assert.Equal(t, testNow, *got.LastUpdatedAt)
	assert.Equal(t, []string{"pending", "committed"}, states)
}

func TestTransportFailureRollsBackToAuthoritativeState(t *testing.T) {
	b := &countingBackend{Backend: newTaskStore(t).Tasks(), fail: errors.New("connection reset")}
	var last Event
	c := newTasks(t, b, WithNotifier(NotifierFunc(func(e Event) { last = e })))
	before := b.getAll.Load()

	out, err := c.Update(context.Background(), 3, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransport)
	assert.Equal(t, RolledBack, out.State)
	assert.Equal(t, models.KindTransport, out.Kind)

	assert.Equal(t, before+1, b.getAll.Load(), "failure triggers one wholesale refetch")
	assert.Equal(t, seedTasks(), c.Snapshot())
	assert.Equal(t, "rolled_back", last.StateName)
	assert.Contains(t, last.Message, "connection reset")
}

func TestUnauthorizedKeepsBaseWithoutRefetch(t *testing.T) {
	b := &countingBackend{Backend: newTaskStore(t).Tasks(), fail: models.Unauthorized("token expired")}
	c := newTasks(t, b)
	before := b.getAll.Load()

	_, err := c.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, before, b.getAll.Load())
	assert.Equal(t, seedTasks(), c.Snapshot())
}

func TestNotFoundResyncs(t *testing.T) {
	s := newTaskStore(t)
	c := newTasks(t, s.Tasks())

	// Someone else removes the task behind our back.
	require.NoError(t, s.Tasks().Delete(context.Background(), 2))
	_, ok := c.Get(2)
	require.True(t, ok)

	out, err := c.Update(context.Background(), 2, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, models.KindNotFound, out.Kind)
	_, ok = c.Get(2)
	assert.False(t, ok, "refetch dropped the missing task")
}

func TestConcurrentSameIDUpdatesMerge(t *testing.T) {
	for _, order := range []string{"B after A", "A after B"} {
		t.Run(order, func(t *testing.T) {
			s := newTaskStore(t)
			g := newGated(s.Tasks())
			c := newTasks(t, g)
			ctx := context.Background()

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := c.Update(ctx, 3, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
				assert.NoError(t, err)
			}()
			releaseA := <-g.arrived
			go func() {
				defer wg.Done()
				_, err := c.Update(ctx, 3, models.TaskPatch{Priority: models.Ptr(models.PriorityHigh)})
				assert.NoError(t, err)
			}()
			releaseB := <-g.arrived

			optimistic, _ := c.Get(3)
			assert.Equal(t, models.TaskDone, optimistic.Status)
			assert.Equal(t, models.PriorityHigh, optimistic.Priority)

			if order == "B after A" {
				close(releaseA)
				time.Sleep(10 * time.Millisecond)
				close(releaseB)
			} else {
				close(releaseB)
				time.Sleep(10 * time.Millisecond)
				close(releaseA)
			}
			wg.Wait()

			got, ok := c.Get(3)
			require.True(t, ok)
			assert.Equal(t, models.TaskDone, got.Status)
			assert.Equal(t, models.PriorityHigh, got.Priority)
			assert.Equal(t, int64(3), got.Revision)
		})
	}
}

// scriptedBackend returns canned update responses without revisions.
type scriptedBackend struct {
	items   []models.Task
	arrived chan chan struct{}
}

func (b *scriptedBackend) GetAll(context.Context) ([]models.Task, error) { return b.items, nil }
func (b *scriptedBackend) Create(_ context.Context, d models.Task) (models.Task, error) {
	return d, nil
}
func (b *scriptedBackend) Delete(context.Context, int64) error { return nil }

func (b *scriptedBackend) Update(_ context.Context, id int64, p models.TaskPatch) (models.Task, error) {
	release := make(chan struct{})
	b.arrived <- release
	<-release
	cur, _ := find(b.items, id)
	return p.Apply(cur), nil
}

func TestStaleResponseIsDiscardedWithoutRevisions(t *testing.T) {
	b := &scriptedBackend{
		items:   []models.Task{{ID: 9, Title: "Post", Status: models.TaskNotStarted}},
		arrived: make(chan chan struct{}),
	}
	c := newTasks(t, b)
	ctx := context.Background()

	outs := make(chan Outcome[models.Task], 2)
	go func() {
		out, _ := c.Update(ctx, 9, models.TaskPatch{Title: models.Ptr("first")})
		outs <- out
	}()
	releaseFirst := <-b.arrived
	go func() {
		out, _ := c.Update(ctx, 9, models.TaskPatch{Title: models.Ptr("second")})
		outs <- out
	}()
	releaseSecond := <-b.arrived

	close(releaseSecond)
	second := <-outs
	close(releaseFirst)
	first := <-outs

	assert.False(t, second.Stale)
	assert.True(t, first.Stale, "the older token lost")
	assert.True(t, first.Superseded)
	got, _ := c.Get(9)
	assert.Equal(t, "second", got.Title)
}

func TestDeleteTombstonePreventsResurrection(t *testing.T) {
	s := newTaskStore(t)
	g := newGated(s.Tasks())
	c := newTasks(t, g)
	ctx := context.Background()

	updated := make(chan Outcome[models.Task])
	go func() {
		out, _ := c.Update(ctx, 2, models.TaskPatch{Title: models.Ptr("renamed")})
		updated <- out
	}()
	releaseUpdate := <-g.arrived

	deleted := make(chan error)
	go func() {
		_, err := c.Delete(ctx, 2)
		deleted <- err
	}()
	releaseDelete := <-g.arrived
	_, visible := c.Get(2)
	assert.False(t, visible, "delete overlay hides the task")

	close(releaseDelete)
	require.NoError(t, <-deleted)
	close(releaseUpdate)
	out := <-updated
	assert.True(t, out.Stale)

	_, visible = c.Get(2)
	assert.False(t, visible)
	assert.Len(t, c.Snapshot(), 2)
}

// fetchGatedBackend takes its GetAll snapshot, then holds it until released.
// Mutations pass straight through. stripRevisions hides store revisions.
type fetchGatedBackend struct {
	inner          *taskCollection
	stripRevisions bool
	gate           atomic.Bool
	fetched        chan chan struct{}
}

func newFetchGated(c *taskCollection, stripRevisions bool) *fetchGatedBackend {
	return &fetchGatedBackend{inner: c, stripRevisions: stripRevisions, fetched: make(chan chan struct{})}
}

func (g *fetchGatedBackend) strip(t models.Task) models.Task {
	if g.stripRevisions {
		t.Revision = 0
	}
	return t
}

func (g *fetchGatedBackend) GetAll(ctx context.Context) ([]models.Task, error) {
	items, err := g.inner.GetAll(ctx)
	for i := range items {
		items[i] = g.strip(items[i])
	}
	if g.gate.Load() {
		release := make(chan struct{})
		g.fetched <- release
		<-release
	}
	return items, err
}

func (g *fetchGatedBackend) Create(ctx context.Context, draft models.Task) (models.Task, error) {
	t, err := g.inner.Create(ctx, draft)
	return g.strip(t), err
}

func (g *fetchGatedBackend) Update(ctx context.Context, id int64, p models.TaskPatch) (models.Task, error) {
	t, err := g.inner.Update(ctx, id, p)
	return g.strip(t), err
}

func (g *fetchGatedBackend) Delete(ctx context.Context, id int64) error {
	return g.inner.Delete(ctx, id)
}

func TestRefreshDoesNotRollBackCommitsMadeDuringFetch(t *testing.T) {
	for _, tc := range []struct {
		name           string
		stripRevisions bool
	}{
		{"with revisions", false},
		{"without revisions", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTaskStore(t)
			g := newFetchGated(s.Tasks(), tc.stripRevisions)
			c := newTasks(t, g)
			ctx := context.Background()

			g.gate.Store(true)
			refreshed := make(chan error)
			go func() { refreshed <- c.Refresh(ctx) }()
			release := <-g.fetched

			out, err := c.Update(ctx, 2, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
			require.NoError(t, err)
			require.Equal(t, Committed, out.State)
			created, err := c.Create(ctx, models.Task{Title: "Carousel draft"})
			require.NoError(t, err)

			close(release)
			require.NoError(t, <-refreshed)

			got, ok := c.Get(2)
			require.True(t, ok)
			assert.Equal(t, models.TaskDone, got.Status, "late fetch must not undo the committed update")
			_, ok = c.Get(created.Entity.ID)
			assert.True(t, ok, "entity created during the fetch stays visible")
			assert.Len(t, c.Snapshot(), 4)

			g.gate.Store(false)
			require.NoError(t, c.Refresh(ctx))
			got, _ = c.Get(2)
			assert.Equal(t, models.TaskDone, got.Status)
			assert.Len(t, c.Snapshot(), 4)
		})
	}
}

func TestRefreshDropsEntitiesRemovedElsewhere(t *testing.T) {
	s := newTaskStore(t)
	c := newTasks(t, s.Tasks())
	ctx := context.Background()

	require.NoError(t, s.Tasks().Delete(ctx, 3))
	require.NoError(t, c.Refresh(ctx))

	_, ok := c.Get(3)
	assert.False(t, ok)
	assert.Len(t, c.Snapshot(), 2)
}

func TestProperty_FailedMutationsResolveToAuthoritativeState(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("snapshot after failure equals a fresh fetch", prop.ForAll(
		func(idx int, status string, applied bool, op int) bool {
			s := store.New(store.WithoutLatency(), store.WithSeed(store.Seed{Tasks: seedTasks()}))
			b := &countingBackend{Backend: s.Tasks(), fail: errors.New("timeout"), applyToo: applied}
			c := NewTasks(b, WithStamper(audit.New("Vik")))
			if err := c.Refresh(context.Background()); err != nil {
				return false
			}
			id := seedTasks()[idx].ID

			var err error
			switch op {
			case 0:
				_, err = c.Update(context.Background(), id, models.TaskPatch{Status: models.Ptr(status)})
			case 1:
				_, err = c.Create(context.Background(), models.Task{Title: "new", Status: status})
			default:
				_, err = c.Delete(context.Background(), id)
			}
			if !errors.Is(err, models.ErrTransport) {
				return false
			}

			fresh, _ := s.Tasks().GetAll(context.Background())
			got := c.Snapshot()
			if len(got) != len(fresh) {
				return false
			}
			for i := range got {
				if got[i].ID != fresh[i].ID || got[i].Status != fresh[i].Status || got[i].Revision != fresh[i].Revision {
					return false
				}
			}
			return c.InFlight() == 0
		},
		gen.IntRange(0, 2),
		gen.OneConstOf(models.TaskNotStarted, models.TaskInProgress, models.TaskDone, models.TaskPosted),
		gen.Bool(),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
