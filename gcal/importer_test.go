// ABOUTME: Tests for the calendar importer
// ABOUTME: Serves canned event pages from httptest through the real Calendar client
package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/incial/crm/config"
	"github.com/incial/crm/coordinator"
	"github.com/incial/crm/db"
	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

var now = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func attendees(selfStatus string, others int) []*calendar.EventAttendee {
	out := []*calendar.EventAttendee{{Email: "me@incial.com", Self: true, ResponseStatus: selfStatus}}
	for i := 0; i < others; i++ {
		out = append(out, &calendar.EventAttendee{Email: "guest@example.com", ResponseStatus: "accepted"})
	}
	return out
}

func TestShouldSkipEvent(t *testing.T) {
	timed := &calendar.EventDateTime{DateTime: "2024-05-12T10:00:00Z"}
	tests := []struct {
		name   string
		event  *calendar.Event
		skip   bool
		reason string
	}{
		{"nil", nil, true, "nil event"},
		{"no start", &calendar.Event{}, true, "missing start time"},
		{"all day", &calendar.Event{Start: &calendar.EventDateTime{Date: "2024-05-12"}, Attendees: attendees("accepted", 2)}, true, "all-day"},
		{"cancelled", &calendar.Event{Status: "cancelled", Start: timed, Attendees: attendees("accepted", 2)}, true, "cancelled"},
		{"declined", &calendar.Event{Start: timed, Attendees: attendees("declined", 2)}, true, "declined"},
		{"solo", &calendar.Event{Start: timed, Attendees: attendees("accepted", 0)}, true, "solo"},
		{"no attendees", &calendar.Event{Start: timed}, true, "solo"},
		{"meeting", &calendar.Event{Start: timed, Attendees: attendees("accepted", 1)}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, reason := shouldSkipEvent(tt.event)
			assert.Equal(t, tt.skip, skip)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEventToMeeting(t *testing.T) {
	ev := &calendar.Event{
		Summary:  "  Kickoff ",
		Start:    &calendar.EventDateTime{DateTime: "2024-05-12T15:30:00+05:30"},
		HtmlLink: "https://calendar.google.com/event?eid=1",
		ConferenceData: &calendar.ConferenceData{EntryPoints: []*calendar.EntryPoint{
			{EntryPointType: "phone", Uri: "tel:+1"},
			{EntryPointType: "video", Uri: "https://zoom.us/j/1"},
		}},
	}
	m, err := eventToMeeting(ev, "Vallapata", now)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", m.Title)
	assert.Equal(t, "https://zoom.us/j/1", m.MeetingLink)
	assert.Equal(t, models.MeetingScheduled, m.Status)
	assert.Equal(t, models.Date("2024-05-12T15:30:00+05:30"), m.DateTime)
	assert.Equal(t, "Vallapata", m.AssignedTo)

	ev.Start.DateTime = "2024-05-01T10:00:00Z"
	ev.ConferenceData = nil
	m, err = eventToMeeting(ev, "", now)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingCompleted, m.Status)
	assert.Equal(t, ev.HtmlLink, m.MeetingLink)

	ev.Start.DateTime = "tomorrow"
	_, err = eventToMeeting(ev, "", now)
	assert.Error(t, err)
}

func newMeetings(t *testing.T) *coordinator.Meetings {
	t.Helper()
	s := store.New(store.WithoutLatency(), store.WithSeed(store.Seed{Meetings: []models.Meeting{
		{ID: 1, Title: "Existing", Status: models.MeetingScheduled, DateTime: "2024-05-20T10:00", MeetingLink: "https://meet.google.com/bbb"},
	}}))
	c := coordinator.NewMeetings(s.Meetings())
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	page := &calendar.Events{
		Items: []*calendar.Event{
			{Id: "allday", Start: &calendar.EventDateTime{Date: "2024-05-12"}, Attendees: attendees("accepted", 2)},
			{Id: "cancelled", Status: "cancelled", Start: &calendar.EventDateTime{DateTime: "2024-05-12T10:00:00Z"}},
			{Id: "declined", Start: &calendar.EventDateTime{DateTime: "2024-05-12T10:00:00Z"}, Attendees: attendees("declined", 1)},
			{Id: "solo", Start: &calendar.EventDateTime{DateTime: "2024-05-12T11:00:00Z"}, Attendees: attendees("accepted", 0)},
			{Id: "a", Summary: "Kickoff", Start: &calendar.EventDateTime{DateTime: "2024-05-12T10:00:00Z"}, Attendees: attendees("accepted", 1), HangoutLink: "https://meet.google.com/aaa"},
			{Id: "b", Summary: "Existing", Start: &calendar.EventDateTime{DateTime: "2024-05-20T15:30:00+05:30"}, Attendees: attendees("accepted", 1), HangoutLink: "https://meet.google.com/bbb"},
			{Id: "c", Summary: "Review", Start: &calendar.EventDateTime{DateTime: "2024-05-01T10:00:00Z"}, Attendees: attendees("accepted", 3), HtmlLink: "https://calendar.google.com/event?eid=c"},
		},
		NextSyncToken: "tok1",
	}

	var requests, withToken atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("syncToken") != "" {
			withToken.Add(1)
			w.WriteHeader(http.StatusGone)
			_, _ = w.Write([]byte(`{"error":{"code":410,"message":"Sync token is no longer valid"}}`))
			return
		}
		assert.NotEmpty(t, r.URL.Query().Get("timeMin"))
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	service, err := calendar.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	state, err := db.OpenDatabase(filepath.Join(t.TempDir(), "gcal.db"))
	require.NoError(t, err)
	defer func() { _ = state.Close() }()

	meetings := newMeetings(t)
	im := NewImporter(service, meetings, state, "", WithClock(func() time.Time { return now }), WithAssignee("Vallapata"))

	res, err := im.Import(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Fetched)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 4, res.SkippedTotal())
	assert.Equal(t, map[string]int{"all-day": 1, "cancelled": 1, "declined": 1, "solo": 1}, res.Skipped)
	assert.Len(t, meetings.Snapshot(), 3)

	token, err := db.GetValue(ctx, state, syncTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok1", string(token))

	res, err = im.Import(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), withToken.Load(), "expired token falls back to timeMin")
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 3, res.Duplicates)
	assert.Len(t, meetings.Snapshot(), 3)
}

func TestTokenRoundTrip(t *testing.T) {
	path := TokenPath(t.TempDir())
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}))

	token, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "rt", token.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewOAuthConfig(t *testing.T) {
	_, err := NewOAuthConfig(config.GoogleConfig{})
	assert.ErrorContains(t, err, "GOOGLE_CLIENT_ID")

	oc, err := NewOAuthConfig(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, []string{calendar.CalendarReadonlyScope}, oc.Scopes)
	assert.Equal(t, "http://localhost:8080/oauth/callback", oc.RedirectURL)
}
