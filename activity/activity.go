// ABOUTME: Activity log of finished mutations for timelines and live feeds
// ABOUTME: Records coordinator events in a bounded ring and fans them out to subscribers
package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/incial/crm/coordinator"
)

// Verb represents the action performed on a record.
type Verb string

const (
	VerbCreated Verb = "created"
	VerbUpdated Verb = "updated"
	VerbDeleted Verb = "deleted"
)

// Result is how a mutation ended.
type Result string

const (
	ResultCommitted  Result = "committed"
	ResultRolledBack Result = "rolled_back"
)

// DefaultCapacity is how many entries a Log keeps when none is given.
const DefaultCapacity = 500

// Entry is one line of the timeline.
type Entry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Verb       Verb      `json:"verb"`
	Collection string    `json:"collection"`
	ObjectID   int64     `json:"objectId"`
	Result     Result    `json:"result"`
	Error      string    `json:"error,omitempty"`
	Token      string    `json:"token"`
	At         time.Time `json:"at"`
}

// Succeeded reports whether the mutation reached the backend and stuck.
func (e Entry) Succeeded() bool {
	return e.Result == ResultCommitted
}

// Log keeps the most recent entries in memory.
type Log struct {
	mu          sync.RWMutex
	entries     []Entry
	next        int
	full        bool
	subscribers map[int]func(Entry)
	nextSub     int
}

// NewLog creates a log holding at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:     make([]Entry, capacity),
		subscribers: make(map[int]func(Entry)),
	}
}

// Notify records finished mutations. Pending transitions are ignored.
func (l *Log) Notify(e coordinator.Event) {
	var result Result
	switch e.State {
	case coordinator.Committed:
		result = ResultCommitted
	case coordinator.RolledBack:
		result = ResultRolledBack
	default:
		return
	}

	entry := Entry{
		ID:         uuid.New().String(),
		Actor:      e.Actor,
		Verb:       verbFor(e.Op),
		Collection: e.Collection,
		ObjectID:   e.ID,
		Result:     result,
		Token:      e.Token,
		At:         e.At,
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}
	l.Record(entry)
}

// Record appends entry and hands it to every subscriber.
func (l *Log) Record(entry Entry) {
	l.mu.Lock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	subs := make([]func(Entry), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
}

// Recent returns up to limit entries, newest first. A limit of zero returns all.
func (l *Log) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (l.next - 1 - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}

// ByActor returns the recent entries made by actor, newest first.
func (l *Log) ByActor(actor string, limit int) []Entry {
	var out []Entry
	for _, e := range l.Recent(0) {
		if e.Actor != actor {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Subscribe registers fn for every later entry. The returned func unsubscribes.
func (l *Log) Subscribe(fn func(Entry)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subscribers, id)
	}
}

func verbFor(op coordinator.Op) Verb {
	switch op {
	case coordinator.OpCreate:
		return VerbCreated
	case coordinator.OpDelete:
		return VerbDeleted
	}
	return VerbUpdated
}
