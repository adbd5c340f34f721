// ABOUTME: Coordinator adapters for deals, tasks and meetings
// ABOUTME: Wire validation, stamping, patch merging and provisional shaping per entity
package coordinator

import (
	"time"

	"github.com/incial/crm/audit"
	"github.com/incial/crm/models"
)

type (
	Deals    = Coordinator[models.Deal, models.DealPatch]
	Tasks    = Coordinator[models.Task, models.TaskPatch]
	Meetings = Coordinator[models.Meeting, models.MeetingPatch]
)

// DealKind adapts the coordinator to deals.
var DealKind = Kind[models.Deal, models.DealPatch]{
	Validate:      models.ValidateDeal,
	ValidatePatch: models.ValidateDealPatch,
	Apply:         func(d models.Deal, p models.DealPatch) models.Deal { return p.Apply(d) },
	StampDraft:    audit.Stamper.Deal,
	StampPatch:    audit.Stamper.DealPatch,
	Provisional: func(d models.Deal, id int64, now time.Time) models.Deal {
		d.ID = id
		d.CreatedAt = now
		d.Revision = 0
		d.ApplyDefaults()
		return d
	},
	Revision: func(d models.Deal) int64 { return d.Revision },
	Clone:    models.Deal.Clone,
}

// TaskKind adapts the coordinator to tasks.
var TaskKind = Kind[models.Task, models.TaskPatch]{
	Validate:      models.ValidateTask,
	ValidatePatch: models.ValidateTaskPatch,
	Apply:         func(t models.Task, p models.TaskPatch) models.Task { return p.Apply(t) },
	StampDraft:    audit.Stamper.Task,
	StampPatch:    audit.Stamper.TaskPatch,
	Provisional: func(t models.Task, id int64, now time.Time) models.Task {
		t.ID = id
		t.CreatedAt = now
		t.Revision = 0
		t.ApplyDefaults()
		return t
	},
	Revision: func(t models.Task) int64 { return t.Revision },
	Clone:    models.Task.Clone,
}

// MeetingKind adapts the coordinator to meetings.
var MeetingKind = Kind[models.Meeting, models.MeetingPatch]{
	Validate:      models.ValidateMeeting,
	ValidatePatch: models.ValidateMeetingPatch,
	Apply:         func(m models.Meeting, p models.MeetingPatch) models.Meeting { return p.Apply(m) },
	StampDraft:    audit.Stamper.Meeting,
	StampPatch:    audit.Stamper.MeetingPatch,
	Provisional: func(m models.Meeting, id int64, now time.Time) models.Meeting {
		m.ID = id
		m.CreatedAt = now
		m.Revision = 0
		m.ApplyDefaults()
		return m
	},
	Revision: func(m models.Meeting) int64 { return m.Revision },
	Clone:    models.Meeting.Clone,
}

// NewDeals coordinates mutations on the deals collection.
func NewDeals(b Backend[models.Deal, models.DealPatch], opts ...Option) *Deals {
	return New(models.CollectionDeals, b, DealKind, opts...)
}

// NewTasks coordinates mutations on the tasks collection.
func NewTasks(b Backend[models.Task, models.TaskPatch], opts ...Option) *Tasks {
	return New(models.CollectionTasks, b, TaskKind, opts...)
}

// NewMeetings coordinates mutations on the meetings collection.
func NewMeetings(b Backend[models.Meeting, models.MeetingPatch], opts ...Option) *Meetings {
	return New(models.CollectionMeetings, b, MeetingKind, opts...)
}
