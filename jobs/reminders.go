// ABOUTME: Daily reminder job for overdue and due-today follow-ups
// ABOUTME: Scans deal follow-ups and task due dates and logs each reminder per assignee
package jobs

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

// Reminder is one record needing attention today.
type Reminder struct {
	Collection string
	ID         int64
	Title      string
	Assignee   string
	Date       models.Date
	Status     models.FollowUp
}

// Due returns overdue and due-today reminders, overdue first, then by date.
func Due(deals []models.Deal, tasks []models.Task, now time.Time) []Reminder {
	var out []Reminder
	for _, d := range deals {
		status := d.FollowUpStatus(now)
		if status != models.FollowUpOverdue && status != models.FollowUpToday {
			continue
		}
		out = append(out, Reminder{
			Collection: models.CollectionDeals,
			ID:         d.ID,
			Title:      d.Company,
			Assignee:   d.AssignedTo,
			Date:       d.NextFollowUp,
			Status:     status,
		})
	}
	for _, t := range tasks {
		var status models.FollowUp
		switch {
		case t.IsOverdue(now):
			status = models.FollowUpOverdue
		case t.IsDueToday(now) && !isClosedTask(t):
			status = models.FollowUpToday
		default:
			continue
		}
		out = append(out, Reminder{
			Collection: models.CollectionTasks,
			ID:         t.ID,
			Title:      t.Title,
			Assignee:   t.AssignedTo,
			Date:       t.DueDate,
			Status:     status,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status == models.FollowUpOverdue
		}
		return out[i].Date.String() < out[j].Date.String()
	})
	return out
}

func isClosedTask(t models.Task) bool {
	switch t.Status {
	case models.TaskCompleted, models.TaskDone, models.TaskPosted, models.TaskDropped:
		return true
	}
	return false
}

// ReminderJob logs reminders and hands them to an optional sink.
type ReminderJob struct {
	store  *store.Store
	clock  func() time.Time
	logger *zap.Logger
	sink   func(Reminder)
}

func NewReminderJob(s *store.Store, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{store: s, clock: time.Now, logger: logger}
}

// WithSink sets a receiver for every reminder produced by Run.
func (j *ReminderJob) WithSink(fn func(Reminder)) *ReminderJob {
	j.sink = fn
	return j
}

// WithClock overrides the current time.
func (j *ReminderJob) WithClock(clock func() time.Time) *ReminderJob {
	j.clock = clock
	return j
}

func (j *ReminderJob) Run() {
	j.logger.Info("Starting follow-up reminder job")

	reminders := Due(j.store.Deals().Snapshot(), j.store.Tasks().Snapshot(), j.clock())
	if len(reminders) == 0 {
		j.logger.Info("No follow-ups due")
		return
	}

	for _, r := range reminders {
		j.logger.Info("Follow-up due",
			zap.String("collection", r.Collection),
			zap.Int64("id", r.ID),
			zap.String("title", r.Title),
			zap.String("assignee", r.Assignee),
			zap.String("date", r.Date.String()),
			zap.String("status", string(r.Status)),
		)
		if j.sink != nil {
			j.sink(r)
		}
	}
	j.logger.Info("Follow-up reminder job completed", zap.Int("count", len(reminders)))
}
