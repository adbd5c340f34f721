// ABOUTME: Tests for audit stamping
// ABOUTME: Checks actor fallback, clock use and patch merging
package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/models"
)

func TestStamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	a := Stamp("Asha", now)
	assert.Equal(t, "Asha", a.LastUpdatedBy)
	require.NotNil(t, a.LastUpdatedAt)
	assert.True(t, a.LastUpdatedAt.Equal(now))

	anon := Stamp("", now)
	assert.Equal(t, UnknownActor, anon.LastUpdatedBy)
}

func TestStamperUsesClock(t *testing.T) {
	fixed := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	s := Stamper{Actor: "Ravi", Clock: func() time.Time { return fixed }}

	p := s.TaskPatch(models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	assert.Equal(t, "Ravi", p.LastUpdatedBy)
	assert.True(t, p.LastUpdatedAt.Equal(fixed))
	assert.Equal(t, models.TaskDone, *p.Status)

	d := s.Deal(models.Deal{Company: "Acme"})
	assert.True(t, d.Stamped())

	m := s.MeetingPatch(models.MeetingPatch{})
	assert.True(t, m.Stamped())
}

func TestStampsAreIndependent(t *testing.T) {
	s := New("Meera")
	a := s.Stamp()
	b := s.Stamp()
	*a.LastUpdatedAt = time.Time{}
	assert.False(t, b.LastUpdatedAt.IsZero())
}
