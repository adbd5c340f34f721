// ABOUTME: Stateless filter engine shared by every view
// ABOUTME: All non-empty fields must match; empty fields impose no constraint
package filter

import (
	"fmt"
	"strings"

	"github.com/incial/crm/models"
)

// Spec is a set of predicates combined with logical AND.
type Spec struct {
	Search     string      `json:"search,omitempty"`
	Status     string      `json:"status,omitempty"`
	Priority   string      `json:"priority,omitempty"`
	AssignedTo string      `json:"assignedTo,omitempty"`
	DateFrom   models.Date `json:"dateRangeStart,omitempty"`
	DateTo     models.Date `json:"dateRangeEnd,omitempty"`
	WorkType   string      `json:"workType,omitempty"`
}

// IsOpen reports whether the spec lets every record through.
func (s Spec) IsOpen() bool {
	return len(s.Active()) == 0
}

// Active lists the constrained fields as name=value pairs, for display.
func (s Spec) Active() []string {
	var out []string
	add := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			out = append(out, fmt.Sprintf("%s=%s", name, value))
		}
	}
	add("search", s.Search)
	add("status", s.Status)
	add("priority", s.Priority)
	add("assignedTo", s.AssignedTo)
	add("from", string(s.DateFrom))
	add("to", string(s.DateTo))
	add("workType", s.WorkType)
	return out
}

// Validate rejects unparseable or inverted date bounds.
func (s Spec) Validate() error {
	from, fromOK := s.DateFrom.Day()
	if !s.DateFrom.IsZero() && !fromOK {
		return models.Validationf("invalid start date: %s", s.DateFrom)
	}
	to, toOK := s.DateTo.Day()
	if !s.DateTo.IsZero() && !toOK {
		return models.Validationf("invalid end date: %s", s.DateTo)
	}
	if fromOK && toOK && from > to {
		return models.Validationf("start date %s is after end date %s", from, to)
	}
	return nil
}

// Match reports whether r passes every non-empty field of s.
func Match[E models.Record](r E, s Spec) bool {
	if q := strings.TrimSpace(s.Search); q != "" && !matchesSearch(r.SearchText(), q) {
		return false
	}
	if s.Status != "" && r.CurrentStatus() != s.Status {
		return false
	}
	if s.Priority != "" && r.CurrentPriority() != s.Priority {
		return false
	}
	if s.AssignedTo != "" && r.Assignee() != s.AssignedTo {
		return false
	}
	if s.WorkType != "" && !models.Contains(r.Labels(), s.WorkType) {
		return false
	}
	return inRange(r.ScheduledOn(), s.DateFrom, s.DateTo)
}

// Apply returns the records of items that match s, in input order. The input
// slice is never modified.
func Apply[E models.Record](items []E, s Spec) []E {
	out := make([]E, 0, len(items))
	for _, item := range items {
		if Match(item, s) {
			out = append(out, item)
		}
	}
	return out
}

func matchesSearch(fields []string, query string) bool {
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// inRange is inclusive on both ends. Unparseable bounds are ignored; a record
// without a valid date fails any active bound.
func inRange(d models.Date, from, to models.Date) bool {
	lo, hasLo := from.Day()
	hi, hasHi := to.Day()
	if !hasLo && !hasHi {
		return true
	}
	day, ok := d.Day()
	if !ok {
		return false
	}
	if hasLo && day < lo {
		return false
	}
	if hasHi && day > hi {
		return false
	}
	return true
}
