// ABOUTME: Audit stamping for every mutating call
// ABOUTME: Produces lastUpdatedBy/lastUpdatedAt and merges them into drafts and patches
package audit

import (
	"time"

	"github.com/incial/crm/models"
)

// UnknownActor is recorded when a mutation arrives with no identity.
const UnknownActor = "Unknown"

// Stamp returns the audit fields for actor at now.
func Stamp(actor string, now time.Time) models.Audit {
	if actor == "" {
		actor = UnknownActor
	}
	at := now
	return models.Audit{LastUpdatedBy: actor, LastUpdatedAt: &at}
}

// Stamper binds an actor to a clock.
type Stamper struct {
	Actor string
	Clock func() time.Time
}

// New returns a Stamper for actor using the wall clock.
func New(actor string) Stamper {
	return Stamper{Actor: actor, Clock: time.Now}
}

func (s Stamper) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

// Stamp returns the audit fields for the current moment.
func (s Stamper) Stamp() models.Audit {
	return Stamp(s.Actor, s.now())
}

func (s Stamper) Deal(d models.Deal) models.Deal {
	d.Audit = s.Stamp()
	return d
}

func (s Stamper) DealPatch(p models.DealPatch) models.DealPatch {
	p.Audit = s.Stamp()
	return p
}

func (s Stamper) Task(t models.Task) models.Task {
	t.Audit = s.Stamp()
	return t
}

func (s Stamper) TaskPatch(p models.TaskPatch) models.TaskPatch {
	p.Audit = s.Stamp()
	return p
}

func (s Stamper) Meeting(m models.Meeting) models.Meeting {
	m.Audit = s.Stamp()
	return m
}

func (s Stamper) MeetingPatch(p models.MeetingPatch) models.MeetingPatch {
	p.Audit = s.Stamp()
	return p
}
