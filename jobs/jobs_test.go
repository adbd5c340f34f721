// ABOUTME: Tests for scheduled jobs
// ABOUTME: Covers reminder selection, mirror sync and scheduler validation
package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/incial/crm/config"
	"github.com/incial/crm/mirror"
	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

var now = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func TestDue(t *testing.T) {
	deals := []models.Deal{
		{ID: 1, Company: "Acme", Status: models.DealLead, NextFollowUp: "2024-05-08"},
		{ID: 2, Company: "Beta", Status: models.DealOnProgress, NextFollowUp: "2024-05-10"},
		{ID: 3, Company: "Gamma", Status: models.DealDrop, NextFollowUp: "2024-05-01"},
		{ID: 4, Company: "Delta", Status: models.DealLead, NextFollowUp: "2024-06-01"},
		{ID: 5, Company: "Eps", Status: models.DealLead},
	}
	tasks := []models.Task{
		{ID: 10, Title: "Reel", Status: models.TaskInProgress, DueDate: "2024-05-09"},
		{ID: 11, Title: "Post", Status: models.TaskDone, DueDate: "2024-05-01"},
		{ID: 12, Title: "Story", Status: models.TaskNotStarted, DueDate: "2024-05-10T15:00"},
		{ID: 13, Title: "Carousel", Status: models.TaskCompleted, DueDate: "2024-05-10"},
	}

	got := Due(deals, tasks, now)
	ids := make([]int64, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 10, 2, 12}, ids)
	assert.Equal(t, models.FollowUpOverdue, got[0].Status)
	assert.Equal(t, models.FollowUpToday, got[3].Status)
}

func TestReminderJobRun(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.WithoutLatency())
	_, err := s.Deals().Create(ctx, models.Deal{Company: "Acme", NextFollowUp: "2024-05-01"})
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	var sunk []Reminder
	NewReminderJob(s, zap.New(core)).
		WithClock(func() time.Time { return now }).
		WithSink(func(r Reminder) { sunk = append(sunk, r) }).
		Run()

	require.Len(t, sunk, 1)
	assert.Equal(t, "Acme", sunk[0].Title)
	assert.Equal(t, 1, logs.FilterMessage("Follow-up due").Len())
}

func TestMirrorSyncJob(t *testing.T) {
	ctx := context.Background()
	kv := mirror.NewMemory()
	m := mirror.New(kv, config.MirrorMemory)
	s := store.New(store.WithoutLatency())
	_, err := s.Tasks().Create(ctx, models.Task{Title: "Reel"})
	require.NoError(t, err)

	NewMirrorSyncJob(m, s, zap.NewNop()).Run()

	seed, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, seed.Tasks, 1)
	for _, collection := range mirror.Collections {
		_, err := kv.Get(ctx, mirror.Key(config.AppName, collection))
		assert.NoError(t, err, collection)
	}
}

func TestSchedulerAdd(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	job := NewReminderJob(store.New(store.WithoutLatency()), zap.NewNop())

	require.NoError(t, s.Add("reminders", "0 9 * * *", job))
	require.NoError(t, s.Add("disabled", "", job))
	assert.Error(t, s.Add("broken", "every tuesday", job))
	assert.Equal(t, 1, s.Len())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
