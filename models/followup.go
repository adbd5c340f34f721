// ABOUTME: Follow-up and due-date state derived from entity dates
// ABOUTME: Classifies deals and tasks as overdue, due today or upcoming
package models

import (
	"time"
)

// FollowUp describes where a date sits relative to today.
type FollowUp string

const (
	FollowUpNone     FollowUp = "none"
	FollowUpOverdue  FollowUp = "overdue"
	FollowUpToday    FollowUp = "today"
	FollowUpUpcoming FollowUp = "upcoming"
)

// ClassifyDate compares the calendar day of d with the day of now.
func ClassifyDate(d Date, now time.Time) FollowUp {
	day, ok := d.Day()
	if !ok {
		return FollowUpNone
	}
	today := now.Format(DayLayout)
	switch {
	case day < today:
		return FollowUpOverdue
	case day == today:
		return FollowUpToday
	}
	return FollowUpUpcoming
}

// FollowUpStatus classifies a deal's next follow-up. Closed deals never need one.
func (d Deal) FollowUpStatus(now time.Time) FollowUp {
	if d.Status == DealCompleted || d.Status == DealDrop {
		return FollowUpNone
	}
	return ClassifyDate(d.NextFollowUp, now)
}

// IsOverdue reports whether an open task has passed its due day.
func (t Task) IsOverdue(now time.Time) bool {
	switch t.Status {
	case TaskCompleted, TaskDone, TaskPosted, TaskDropped:
		return false
	}
	return ClassifyDate(t.DueDate, now) == FollowUpOverdue
}

// IsDueToday reports whether the task falls due on now's calendar day.
func (t Task) IsDueToday(now time.Time) bool {
	return ClassifyDate(t.DueDate, now) == FollowUpToday
}
