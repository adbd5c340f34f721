// ABOUTME: Read-only accessor surface shared by deals, tasks and meetings
// ABOUTME: Lets filtering and projection code stay independent of entity type
package models

import (
	"time"
)

// Record is what filters and views need to know about an entity.
type Record interface {
	Key() int64
	CurrentStatus() string
	CurrentPriority() string
	Assignee() string
	// ScheduledOn is the date a record is planned around: a task's due date,
	// a deal's next follow-up, a meeting's start.
	ScheduledOn() Date
	SearchText() []string
	Labels() []string
	// Touched is lastUpdatedAt, falling back to createdAt.
	Touched() time.Time
}

var (
	_ Record = Deal{}
	_ Record = Task{}
	_ Record = Meeting{}
)

func touched(a Audit, created time.Time) time.Time {
	if a.LastUpdatedAt != nil {
		return *a.LastUpdatedAt
	}
	return created
}

func (d Deal) Key() int64              { return d.ID }
func (d Deal) CurrentStatus() string   { return d.Status }
func (d Deal) CurrentPriority() string { return "" }
func (d Deal) Assignee() string        { return d.AssignedTo }
func (d Deal) ScheduledOn() Date       { return d.NextFollowUp }
func (d Deal) Labels() []string        { return d.Work }
func (d Deal) Touched() time.Time      { return touched(d.Audit, d.CreatedAt) }

func (d Deal) SearchText() []string {
	return []string{d.Company, d.ContactName, d.ReferenceID}
}

func (t Task) Key() int64              { return t.ID }
func (t Task) CurrentStatus() string   { return t.Status }
func (t Task) CurrentPriority() string { return t.Priority }
func (t Task) Assignee() string        { return t.AssignedTo }
func (t Task) ScheduledOn() Date       { return t.DueDate }
func (t Task) SearchText() []string    { return []string{t.Title} }
func (t Task) Touched() time.Time      { return touched(t.Audit, t.CreatedAt) }

func (t Task) Labels() []string {
	if t.TaskType == "" {
		return nil
	}
	return []string{t.TaskType}
}

func (m Meeting) Key() int64              { return m.ID }
func (m Meeting) CurrentStatus() string   { return m.Status }
func (m Meeting) CurrentPriority() string { return "" }
func (m Meeting) Assignee() string        { return m.AssignedTo }
func (m Meeting) ScheduledOn() Date       { return m.DateTime }
func (m Meeting) SearchText() []string    { return []string{m.Title} }
func (m Meeting) Labels() []string        { return nil }
func (m Meeting) Touched() time.Time      { return touched(m.Audit, m.CreatedAt) }
