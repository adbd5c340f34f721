// ABOUTME: Derived statistics for dashboards, client pages and team performance
// ABOUTME: Pure functions over snapshots so every surface reports the same numbers
package views

import (
	"sort"
	"time"

	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
)

// deliveredStatuses count as finished work in progress figures. Posted is
// included here even though it is not terminal for list partitioning.
var deliveredStatuses = []string{models.TaskCompleted, models.TaskDone, models.TaskPosted}

// Progress summarises a set of tasks.
type Progress struct {
	Total      int `json:"total"`
	Done       int `json:"done"`
	InProgress int `json:"inProgress"`
	Percent    int `json:"percent"`
}

// TaskProgress counts delivered and in-flight tasks.
func TaskProgress(tasks []models.Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		switch {
		case models.Contains(deliveredStatuses, t.Status):
			p.Done++
		case t.Status == models.TaskInProgress:
			p.InProgress++
		}
	}
	p.Percent = percent(p.Done, p.Total)
	return p
}

// ClientView is everything shown for one company.
type ClientView struct {
	Deal     models.Deal      `json:"deal"`
	Tasks    []models.Task    `json:"tasks"`
	Meetings []models.Meeting `json:"meetings"`
	Progress Progress         `json:"progress"`
}

// Client assembles the company-scoped view for dealID.
func Client(deals []models.Deal, tasks []models.Task, meetings []models.Meeting, dealID int64) (ClientView, error) {
	for _, d := range deals {
		if d.ID == dealID {
			scoped := ForCompany(tasks, dealID)
			return ClientView{
				Deal:     d,
				Tasks:    scoped,
				Meetings: MeetingsForCompany(meetings, dealID),
				Progress: TaskProgress(scoped),
			}, nil
		}
	}
	return ClientView{}, models.NotFound(models.CollectionDeals, dealID)
}

// Companies splits onboarded clients into tabs.
type Companies struct {
	Active  []models.Deal `json:"active"`
	Dropped []models.Deal `json:"dropped"`
	Past    []models.Deal `json:"past"`
}

// CompanyTabs filters deals with spec, drops leads, and sorts each tab by id descending.
func CompanyTabs(deals []models.Deal, spec filter.Spec) Companies {
	c := Companies{Active: []models.Deal{}, Dropped: []models.Deal{}, Past: []models.Deal{}}
	for _, d := range filter.Apply(deals, spec) {
		switch d.Status {
		case models.DealOnboarded, models.DealOnProgress, models.DealQuoteSent:
			c.Active = append(c.Active, d)
		case models.DealDrop:
			c.Dropped = append(c.Dropped, d)
		case models.DealCompleted:
			c.Past = append(c.Past, d)
		}
	}
	for _, tab := range [][]models.Deal{c.Active, c.Dropped, c.Past} {
		sort.SliceStable(tab, func(i, j int) bool { return tab[i].ID > tab[j].ID })
	}
	return c
}

// Dashboard is a personal summary for one actor.
type Dashboard struct {
	Actor         string           `json:"actor"`
	ActiveTasks   []models.Task    `json:"activeTasks"`
	PriorityTasks []models.Task    `json:"priorityTasks"`
	Upcoming      []models.Meeting `json:"upcomingMeetings"`
	Efficiency    int              `json:"efficiency"`
}

// PriorityLimit caps the focus list on the personal dashboard.
const PriorityLimit = 5

var priorityWeight = map[string]int{
	models.PriorityHigh:   3,
	models.PriorityMedium: 2,
	models.PriorityLow:    1,
}

// MyDashboard derives the actor's open work, focus list and upcoming meetings.
func MyDashboard(tasks []models.Task, meetings []models.Meeting, actor string, now time.Time) Dashboard {
	mine := Mine(tasks, actor)
	d := Dashboard{Actor: actor, ActiveTasks: []models.Task{}, Upcoming: []models.Meeting{}}

	finished := 0
	for _, t := range mine {
		switch t.Status {
		case models.TaskCompleted, models.TaskDone:
			finished++
		case models.TaskDropped:
		default:
			d.ActiveTasks = append(d.ActiveTasks, t)
		}
	}
	d.Efficiency = percent(finished, len(mine))

	focus := make([]models.Task, len(d.ActiveTasks))
	copy(focus, d.ActiveTasks)
	sort.SliceStable(focus, func(i, j int) bool {
		a, b := focus[i], focus[j]
		if at, bt := a.IsDueToday(now), b.IsDueToday(now); at != bt {
			return at
		}
		if wa, wb := priorityWeight[a.Priority], priorityWeight[b.Priority]; wa != wb {
			return wa > wb
		}
		ta, aok := a.DueDate.Time()
		tb, bok := b.DueDate.Time()
		switch {
		case aok && bok:
			return ta.Before(tb)
		case aok:
			return true
		}
		return false
	})
	if len(focus) > PriorityLimit {
		focus = focus[:PriorityLimit]
	}
	d.PriorityTasks = focus

	for _, m := range Mine(meetings, actor) {
		if m.Status == models.MeetingCancelled {
			continue
		}
		if at, ok := m.DateTime.Time(); ok && at.After(now) {
			d.Upcoming = append(d.Upcoming, m)
		}
	}
	SortBySchedule(d.Upcoming)
	return d
}

// UnassignedName groups tasks with no assignee.
const UnassignedName = "Unassigned"

// MemberStats is one row of the team performance table.
type MemberStats struct {
	Name           string `json:"name"`
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	InProgress     int    `json:"inProgress"`
	Pending        int    `json:"pending"`
	CompletionRate int    `json:"completionRate"`
}

// TeamPerformance aggregates tasks per assignee, most completed first.
func TeamPerformance(tasks []models.Task) []MemberStats {
	byName := make(map[string]*MemberStats)
	var order []string
	for _, t := range tasks {
		name := t.AssignedTo
		if name == "" {
			name = UnassignedName
		}
		s, ok := byName[name]
		if !ok {
			s = &MemberStats{Name: name}
			byName[name] = s
			order = append(order, name)
		}
		s.Total++
		switch t.Status {
		case models.TaskCompleted, models.TaskDone:
			s.Completed++
		case models.TaskInProgress:
			s.InProgress++
		case models.TaskNotStarted:
			s.Pending++
		}
	}
	out := make([]MemberStats, 0, len(order))
	for _, name := range order {
		s := byName[name]
		s.CompletionRate = percent(s.Completed, s.Total)
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return out[i].Completed > out[j].Completed
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// StageStats is the count and value of deals in one status.
type StageStats struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Value  float64 `json:"value"`
}

// Pipeline totals deals per status in pipeline order, unknown statuses last.
func Pipeline(deals []models.Deal) []StageStats {
	cols := Kanban(deals, models.DealStatuses)
	out := make([]StageStats, 0, len(cols))
	for _, c := range cols {
		s := StageStats{Status: c.Status, Count: len(c.Items)}
		for _, d := range c.Items {
			s.Value += d.DealValue
		}
		out = append(out, s)
	}
	return out
}

// FollowUps groups open deals by follow-up state.
func FollowUps(deals []models.Deal, now time.Time) map[models.FollowUp][]models.Deal {
	out := make(map[models.FollowUp][]models.Deal)
	for _, d := range deals {
		state := d.FollowUpStatus(now)
		if state == models.FollowUpNone {
			continue
		}
		out[state] = append(out[state], d)
	}
	for _, list := range out {
		SortBySchedule(list)
	}
	return out
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}
