// ABOUTME: Single entry point that runs mine, filter and projection in order
// ABOUTME: Every surface calls Project instead of re-implementing the pipeline
package views

import (
	"fmt"

	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
)

// Mode selects a projection.
type Mode string

const (
	ModeList     Mode = "list"
	ModeKanban   Mode = "kanban"
	ModeCalendar Mode = "calendar"
)

// ParseMode accepts a mode name; empty means list.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeList:
		return ModeList, nil
	case ModeKanban:
		return ModeKanban, nil
	case ModeCalendar:
		return ModeCalendar, nil
	}
	return "", models.Validationf("unknown view: %s (valid: list, kanban, calendar)", s)
}

// Options carry a surface's view state.
type Options struct {
	Filter   filter.Spec
	MineOnly bool
	Actor    string
	Terminal []string
	Columns  []string
}

// Projection is the result of one pipeline run. Only the field matching Mode is set.
type Projection[E models.Record] struct {
	Mode     Mode          `json:"mode"`
	Total    int           `json:"total"`
	List     *Partition[E] `json:"list,omitempty"`
	Kanban   []Column[E]   `json:"kanban,omitempty"`
	Calendar []Day[E]      `json:"calendar,omitempty"`
}

// Project applies the "mine" pre-filter, then the filter spec, then the projection.
func Project[E models.Record](mode Mode, items []E, opts Options) (Projection[E], error) {
	if err := opts.Filter.Validate(); err != nil {
		return Projection[E]{}, err
	}
	if opts.MineOnly {
		items = Mine(items, opts.Actor)
	}
	filtered := filter.Apply(items, opts.Filter)

	p := Projection[E]{Mode: mode, Total: len(filtered)}
	switch mode {
	case ModeList, "":
		p.Mode = ModeList
		part := List(filtered, opts.Terminal)
		p.List = &part
	case ModeKanban:
		p.Kanban = Kanban(filtered, opts.Columns)
	case ModeCalendar:
		p.Calendar = Calendar(filtered)
	default:
		return Projection[E]{}, fmt.Errorf("unsupported view mode %q", mode)
	}
	return p, nil
}
