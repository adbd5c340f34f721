// ABOUTME: Imports Google Calendar events as meetings through the coordinator
// ABOUTME: Handles pagination, sync tokens, skip rules and link+time dedupe
package gcal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/incial/crm/coordinator"
	"github.com/incial/crm/db"
	"github.com/incial/crm/models"
)

const (
	maxResults   = 250
	syncTokenKey = "gcal/sync_token"
	lastSyncKey  = "gcal/last_sync"
	lookback     = -6 // months
)

// Meetings is the part of the meeting coordinator the importer needs.
type Meetings interface {
	Snapshot() []models.Meeting
	Create(ctx context.Context, draft models.Meeting) (coordinator.Outcome[models.Meeting], error)
}

// Result summarises one import run.
type Result struct {
	Fetched    int
	Imported   int
	Duplicates int
	Failed     int
	Skipped    map[string]int
}

// Importer pulls events from one calendar.
type Importer struct {
	service    *calendar.Service
	meetings   Meetings
	state      *sql.DB
	calendarID string
	assignee   string
	clock      func() time.Time
	logger     *zap.Logger
}

type Option func(*Importer)

func WithClock(clock func() time.Time) Option {
	return func(im *Importer) { im.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(im *Importer) { im.logger = logger }
}

// WithAssignee sets the display name imported meetings are assigned to.
func WithAssignee(name string) Option {
	return func(im *Importer) { im.assignee = name }
}

// NewImporter builds an importer. state is a database opened with db.OpenDatabase
// and holds the incremental sync token.
func NewImporter(service *calendar.Service, meetings Meetings, state *sql.DB, calendarID string, opts ...Option) *Importer {
	if calendarID == "" {
		calendarID = "primary"
	}
	im := &Importer{
		service:    service,
		meetings:   meetings,
		state:      state,
		calendarID: calendarID,
		clock:      time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// shouldSkipEvent determines if an event should be skipped during import.
// Returns (true, reason) if the event should be skipped, (false, "") otherwise.
func shouldSkipEvent(event *calendar.Event) (bool, string) {
	if event == nil {
		return true, "nil event"
	}
	if event.Status == "cancelled" {
		return true, "cancelled"
	}
	if event.Start == nil {
		return true, "missing start time"
	}
	if event.Start.Date != "" {
		return true, "all-day"
	}
	for _, attendee := range event.Attendees {
		if attendee.Self && attendee.ResponseStatus == "declined" {
			return true, "declined"
		}
	}
	if len(event.Attendees) <= 1 {
		return true, "solo"
	}
	return false, ""
}

// eventToMeeting converts a kept event. The meeting link falls back to the
// event's calendar page so every import has a dedupe key.
func eventToMeeting(event *calendar.Event, assignee string, now time.Time) (models.Meeting, error) {
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("invalid start time %q: %w", event.Start.DateTime, err)
	}

	link := event.HangoutLink
	if link == "" && event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				link = ep.Uri
				break
			}
		}
	}
	if link == "" {
		link = event.HtmlLink
	}

	title := strings.TrimSpace(event.Summary)
	if title == "" {
		title = "(no title)"
	}

	status := models.MeetingScheduled
	if start.Before(now) {
		status = models.MeetingCompleted
	}

	return models.Meeting{
		Title:       title,
		Status:      status,
		DateTime:    models.DateTimeOf(start),
		AssignedTo:  assignee,
		MeetingLink: link,
		Notes:       event.Description,
	}, nil
}

// dedupeKey is link plus start instant, so offsets that name the same moment match.
func dedupeKey(m models.Meeting) (string, bool) {
	at, ok := m.DateTime.Time()
	if !ok || m.MeetingLink == "" {
		return "", false
	}
	return m.MeetingLink + "|" + at.UTC().Format(time.RFC3339), true
}

// Import fetches events and creates a meeting for each new one. With initial
// set, or without a stored sync token, it looks back six months.
func (im *Importer) Import(ctx context.Context, initial bool) (Result, error) {
	res := Result{Skipped: make(map[string]int)}

	seen := make(map[string]bool)
	for _, m := range im.meetings.Snapshot() {
		if key, ok := dedupeKey(m); ok {
			seen[key] = true
		}
	}

	syncToken := ""
	if !initial {
		token, err := db.GetValue(ctx, im.state, syncTokenKey)
		switch {
		case err == nil:
			syncToken = string(token)
		case !errors.Is(err, db.ErrNoValue):
			return res, fmt.Errorf("failed to read sync token: %w", err)
		}
	}

	call := im.listCall(syncToken, im.clock().AddDate(0, lookback, 0))
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Context(ctx).Do()
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusGone && syncToken != "" {
			im.logger.Info("Sync token expired, falling back to time-based sync")
			syncToken = ""
			call = im.listCall("", im.fallbackSince(ctx))
			pageToken = ""
			res.Fetched = 0
			continue
		}
		if err != nil {
			return res, fmt.Errorf("failed to fetch calendar events: %w", err)
		}

		res.Fetched += len(events.Items)
		im.logger.Debug("Fetched events page", zap.Int("count", len(events.Items)))

		for _, event := range events.Items {
			if skip, reason := shouldSkipEvent(event); skip {
				res.Skipped[reason]++
				continue
			}

			meeting, err := eventToMeeting(event, im.assignee, im.clock())
			if err != nil {
				res.Skipped["unparseable"]++
				continue
			}
			key, _ := dedupeKey(meeting)
			if seen[key] {
				res.Duplicates++
				continue
			}

			if _, err := im.meetings.Create(ctx, meeting); err != nil {
				res.Failed++
				im.logger.Warn("Failed to import event",
					zap.String("event", event.Id),
					zap.Error(err),
				)
				continue
			}
			seen[key] = true
			res.Imported++
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			if events.NextSyncToken != "" {
				if err := db.SetValue(ctx, im.state, syncTokenKey, []byte(events.NextSyncToken)); err != nil {
					return res, fmt.Errorf("failed to update sync token: %w", err)
				}
			}
			break
		}
	}

	now := im.clock().UTC().Format(time.RFC3339)
	if err := db.SetValue(ctx, im.state, lastSyncKey, []byte(now)); err != nil {
		return res, fmt.Errorf("failed to record sync time: %w", err)
	}
	return res, nil
}

func (im *Importer) listCall(syncToken string, since time.Time) *calendar.EventsListCall {
	call := im.service.Events.List(im.calendarID).
		MaxResults(maxResults).
		SingleEvents(true)
	if syncToken != "" {
		return call.SyncToken(syncToken)
	}
	return call.OrderBy("startTime").TimeMin(since.Format(time.RFC3339))
}

func (im *Importer) fallbackSince(ctx context.Context) time.Time {
	if raw, err := db.GetValue(ctx, im.state, lastSyncKey); err == nil {
		if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
			return t
		}
	}
	return im.clock().AddDate(0, lookback, 0)
}

// SkippedTotal returns the number of events skipped for any reason.
func (r Result) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}
