// ABOUTME: Tests for the entity store
// ABOUTME: Round trip, idempotent delete, reference ids, id assignment and observers
package store

import (
	"context"
	"math/rand/v2"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/audit"
	"github.com/incial/crm/metrics"
	"github.com/incial/crm/models"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithoutLatency(),
		WithClock(func() time.Time { return fixedNow }),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}
	return New(append(base, opts...)...)
}

func TestCreateRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	draft := audit.Stamp("Asha", fixedNow)
	created, err := s.Tasks().Create(ctx, models.Task{
		ID:         999,
		Title:      "Draft reel script",
		AssignedTo: "Asha",
		DueDate:    "2024-05-12",
		Audit:      draft,
	})
	require.NoError(t, err)
	assert.NotEqual(t, int64(999), created.ID, "incoming id is ignored")
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.Equal(t, int64(1), created.Revision)
	assert.Equal(t, models.TaskNotStarted, created.Status)
	assert.Equal(t, models.PriorityMedium, created.Priority)

	all, err := s.Tasks().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created, all[0])
	assert.Equal(t, "Draft reel script", all[0].Title)
	assert.Equal(t, "Asha", all[0].LastUpdatedBy)
}

func TestCreateInsertsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.Meetings().Create(ctx, models.Meeting{Title: "Kickoff"})
	require.NoError(t, err)
	second, err := s.Meetings().Create(ctx, models.Meeting{Title: "Review"})
	require.NoError(t, err)

	all, err := s.Meetings().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID, first.ID}, []int64{all[0].ID, all[1].ID})
	assert.Greater(t, second.ID, first.ID, "ids increase even within one millisecond")
}

func TestIDsAreNeverReused(t *testing.T) {
	seedID := fixedNow.UnixMilli() + 50
	s := setupTestStore(t, WithSeed(Seed{Tasks: []models.Task{{ID: seedID, Title: "Seeded"}}}))
	ctx := context.Background()

	a, err := s.Tasks().Create(ctx, models.Task{Title: "A"})
	require.NoError(t, err)
	assert.Greater(t, a.ID, seedID)

	require.NoError(t, s.Tasks().Delete(ctx, a.ID))
	b, err := s.Tasks().Create(ctx, models.Task{Title: "B"})
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	keep, err := s.Deals().Create(ctx, models.Deal{Company: "Keep"})
	require.NoError(t, err)
	gone, err := s.Deals().Create(ctx, models.Deal{Company: "Gone"})
	require.NoError(t, err)

	require.NoError(t, s.Deals().Delete(ctx, gone.ID))
	after, err := s.Deals().GetAll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Deals().Delete(ctx, gone.ID))
	again, err := s.Deals().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, again)
	require.Len(t, again, 1)
	assert.Equal(t, keep.ID, again[0].ID)
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Tasks().Update(context.Background(), 42, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.Tasks().Get(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateMergesAndBumpsRevision(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	task, err := s.Tasks().Create(ctx, models.Task{Title: "Post", Priority: models.PriorityLow, AssignedTo: "Vik"})
	require.NoError(t, err)

	updated, err := s.Tasks().Update(ctx, task.ID, models.TaskPatch{Priority: models.Ptr(models.PriorityHigh)})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, "Vik", updated.AssignedTo)
	assert.Equal(t, "Post", updated.Title)
	assert.Equal(t, int64(2), updated.Revision)
	assert.Equal(t, audit.UnknownActor, updated.LastUpdatedBy, "unstamped patches are stamped with the unknown actor")
}

func TestValidationRejectsBeforeStoring(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Tasks().Create(ctx, models.Task{Title: "  "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = s.Deals().Create(ctx, models.Deal{Company: "Acme", Status: "won"})
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Empty(t, s.Tasks().Snapshot())
	assert.Empty(t, s.Deals().Snapshot())
}

var referencePattern = regexp.MustCompile(`^REF-\d{4}-\d{4}$`)

func TestDealReferenceID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	deal, err := s.Deals().Create(ctx, models.Deal{Company: "Acme", Status: models.DealOnProgress})
	require.NoError(t, err)
	assert.Regexp(t, referencePattern, deal.ReferenceID)
	assert.Contains(t, deal.ReferenceID, "REF-2024-")

	updated, err := s.Deals().Update(ctx, deal.ID, models.DealPatch{Phone: models.Ptr("+91 98450 00000")})
	require.NoError(t, err)
	assert.Equal(t, deal.ReferenceID, updated.ReferenceID)

	cleared, err := s.Deals().Update(ctx, deal.ID, models.DealPatch{ReferenceID: models.Ptr("")})
	require.NoError(t, err)
	assert.Equal(t, deal.ReferenceID, cleared.ReferenceID)

	lead, err := s.Deals().Create(ctx, models.Deal{Company: "Lead Co"})
	require.NoError(t, err)
	assert.Empty(t, lead.ReferenceID)
	assert.Equal(t, models.DealLead, lead.Status)

	onboarded, err := s.Deals().Update(ctx, lead.ID, models.DealPatch{Status: models.Ptr(models.DealOnboarded)})
	require.NoError(t, err)
	assert.Regexp(t, referencePattern, onboarded.ReferenceID)

	explicit, err := s.Deals().Create(ctx, models.Deal{Company: "Own", Status: models.DealOnboarded, ReferenceID: "PO-17"})
	require.NoError(t, err)
	assert.Equal(t, "PO-17", explicit.ReferenceID)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := setupTestStore(t, WithSeed(Seed{Deals: []models.Deal{{ID: 1, Company: "Acme", Tags: []string{"hot"}}}}))

	snap := s.Deals().Snapshot()
	snap[0].Tags[0] = "cold"
	snap[0].Company = "Changed"

	again := s.Deals().Snapshot()
	assert.Equal(t, "hot", again[0].Tags[0])
	assert.Equal(t, "Acme", again[0].Company)
}

func TestObserversSeeSuccessfulMutations(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	s := setupTestStore(t, WithObserver(func(_ context.Context, collection string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, collection)
	}))
	ctx := context.Background()

	task, err := s.Tasks().Create(ctx, models.Task{Title: "A"})
	require.NoError(t, err)
	_, err = s.Tasks().Update(ctx, task.ID, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	require.NoError(t, err)
	_, err = s.Tasks().Update(ctx, 12345, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	require.Error(t, err)
	require.NoError(t, s.Tasks().Delete(ctx, task.ID))
	require.NoError(t, s.Tasks().Delete(ctx, task.ID))
	_, err = s.Deals().Create(ctx, models.Deal{Company: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, []string{"tasks", "tasks", "tasks", "deals"}, seen)
}

func TestReadsHonourCancellation(t *testing.T) {
	s := New(WithLatency(map[string]Latency{models.CollectionTasks: {Read: time.Hour}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Tasks().GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentUpdatesMergeFields(t *testing.T) {
	s := setupTestStore(t, WithSeed(Seed{Tasks: []models.Task{{ID: 7, Title: "Carousel", Status: models.TaskInProgress, Priority: models.PriorityLow, Revision: 1}}}))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.Tasks().Update(ctx, 7, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.Tasks().Update(ctx, 7, models.TaskPatch{Priority: models.Ptr(models.PriorityHigh)})
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := s.Tasks().Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.TaskDone, got.Status)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, int64(3), got.Revision)
}

func TestMetricsAreRecorded(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), nil)
	s := setupTestStore(t, WithMetrics(m))
	ctx := context.Background()

	_, err := s.Tasks().Create(ctx, models.Task{Title: "A"})
	require.NoError(t, err)
	_, err = s.Tasks().Update(ctx, 1, models.TaskPatch{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntitiesTotal.WithLabelValues("tasks")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpErrors.WithLabelValues("tasks", "update", "not_found")))
}

func TestUserDirectory(t *testing.T) {
	s := setupTestStore(t, WithSeed(Seed{Users: []models.User{
		{ID: 1, Name: "Asha", Role: models.RoleAdmin},
		{ID: 2, Name: "Vik", Role: models.RoleEmployee},
		{ID: 3, Name: "Asha", Role: models.RoleEmployee},
	}}))

	users, err := s.Users().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Len(t, s.Users().Named("Asha"), 2)
	assert.Empty(t, s.Users().Named("asha"))
	assert.Equal(t, []string{"Asha"}, s.Users().DuplicateNames())
}
