// ABOUTME: Mutation lifecycle events and their receivers
// ABOUTME: The activity log, the websocket feed and surfaces subscribe through Notifier
package coordinator

import (
	"time"

	"github.com/incial/crm/models"
)

// Event is one state transition of one mutation.
type Event struct {
	Collection string      `json:"collection"`
	Op         Op          `json:"op"`
	State      State       `json:"-"`
	StateName  string      `json:"state"`
	Token      string      `json:"token"`
	ID         int64       `json:"id"`
	Actor      string      `json:"actor"`
	Kind       models.Kind `json:"-"`
	Err        error       `json:"-"`
	Message    string      `json:"message,omitempty"`
	At         time.Time   `json:"at"`
}

// Notifier receives mutation events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Notifiers fans an event out to every receiver in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(e Event) {
	e.StateName = e.State.String()
	if e.Err != nil && e.Message == "" {
		e.Message = e.Err.Error()
	}
	for _, n := range ns {
		if n != nil {
			n.Notify(e)
		}
	}
}
