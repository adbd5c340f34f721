// ABOUTME: View projections over filtered collections
// ABOUTME: List partition, kanban columns, calendar days, "mine" and board scopes
package views

import (
	"sort"
	"time"

	"github.com/incial/crm/models"
)

// Terminals holds the statuses that count as finished, per entity type.
type Terminals struct {
	Deals    []string `yaml:"deals"`
	Tasks    []string `yaml:"tasks"`
	Meetings []string `yaml:"meetings"`
}

// DefaultTerminals returns the finished-status sets used when none are configured.
// Posted is deliberately absent from the task set.
func DefaultTerminals() Terminals {
	return Terminals{
		Deals:    []string{models.DealCompleted, models.DealDrop},
		Tasks:    []string{models.TaskCompleted, models.TaskDone},
		Meetings: []string{models.MeetingCompleted, models.MeetingCancelled},
	}
}

// Partition splits a list into open and finished records.
type Partition[E models.Record] struct {
	Active    []E `json:"active"`
	Completed []E `json:"completed"`
}

// List partitions items by terminal status. Active is ordered by schedule date
// ascending with undated records last; Completed by last touch, newest first.
func List[E models.Record](items []E, terminal []string) Partition[E] {
	p := Partition[E]{Active: []E{}, Completed: []E{}}
	for _, item := range items {
		if models.Contains(terminal, item.CurrentStatus()) {
			p.Completed = append(p.Completed, item)
		} else {
			p.Active = append(p.Active, item)
		}
	}
	SortBySchedule(p.Active)
	sort.SliceStable(p.Completed, func(i, j int) bool {
		return p.Completed[i].Touched().After(p.Completed[j].Touched())
	})
	return p
}

// SortBySchedule orders items by schedule date ascending, undated last, stable.
func SortBySchedule[E models.Record](items []E) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := items[i].ScheduledOn().Time()
		b, bok := items[j].ScheduledOn().Time()
		switch {
		case aok && bok:
			return a.Before(b)
		case aok:
			return true
		}
		return false
	})
}

// Column is one kanban lane.
type Column[E models.Record] struct {
	Status string `json:"status"`
	Items  []E    `json:"items"`
}

// Kanban groups items strictly by status. Every status in columns appears, even
// when empty; statuses outside it follow in order of first appearance.
func Kanban[E models.Record](items []E, columns []string) []Column[E] {
	out := make([]Column[E], 0, len(columns))
	index := make(map[string]int, len(columns))
	for _, status := range columns {
		if _, dup := index[status]; dup {
			continue
		}
		index[status] = len(out)
		out = append(out, Column[E]{Status: status, Items: []E{}})
	}
	for _, item := range items {
		status := item.CurrentStatus()
		i, ok := index[status]
		if !ok {
			i = len(out)
			index[status] = i
			out = append(out, Column[E]{Status: status, Items: []E{}})
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out
}

// Day is one calendar bucket keyed by YYYY-MM-DD.
type Day[E models.Record] struct {
	Date  string `json:"date"`
	Items []E    `json:"items"`
}

// Calendar groups items by the calendar day of their schedule date, ascending.
// Records with a missing or invalid date are left out.
func Calendar[E models.Record](items []E) []Day[E] {
	buckets := make(map[string][]E)
	var keys []string
	for _, item := range items {
		day, ok := item.ScheduledOn().Day()
		if !ok {
			continue
		}
		if _, seen := buckets[day]; !seen {
			keys = append(keys, day)
		}
		buckets[day] = append(buckets[day], item)
	}
	sort.Strings(keys)
	out := make([]Day[E], 0, len(keys))
	for _, k := range keys {
		out = append(out, Day[E]{Date: k, Items: buckets[k]})
	}
	return out
}

// Month keeps only the calendar days falling in year/month.
func Month[E models.Record](items []E, year int, month time.Month) []Day[E] {
	prefix := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	var out []Day[E]
	for _, d := range Calendar(items) {
		if d.Date[:7] == prefix {
			out = append(out, d)
		}
	}
	return out
}

// Mine keeps records assigned to actor by exact display-name match.
func Mine[E models.Record](items []E, actor string) []E {
	out := make([]E, 0, len(items))
	if actor == "" {
		return out
	}
	for _, item := range items {
		if item.Assignee() == actor {
			out = append(out, item)
		}
	}
	return out
}

// MainBoard keeps tasks that belong on the unscoped board.
func MainBoard(tasks []models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.VisibleOnMainBoard() {
			out = append(out, t)
		}
	}
	return out
}

// ForCompany keeps tasks scoped to one deal, whatever their board visibility.
func ForCompany(tasks []models.Task, companyID int64) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.CompanyID != nil && *t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	return out
}

// MeetingsForCompany keeps meetings scoped to one deal.
func MeetingsForCompany(meetings []models.Meeting, companyID int64) []models.Meeting {
	out := make([]models.Meeting, 0)
	for _, m := range meetings {
		if m.CompanyID != nil && *m.CompanyID == companyID {
			out = append(out, m)
		}
	}
	return out
}
