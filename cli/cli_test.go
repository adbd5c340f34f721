// ABOUTME: Tests for the crm CLI commands
// ABOUTME: Runs commands against a local App and checks printed output and stored state
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incial/crm/app"
	"github.com/incial/crm/config"
	"github.com/incial/crm/models"
	"github.com/incial/crm/web"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Actor = "Vallapata"
	cfg.DataDir = t.TempDir()
	cfg.Mirror.Backend = config.MirrorMemory
	cfg.Remote = config.RemoteConfig{}
	cfg.Server.JWTSecret = "test-secret"
	return cfg
}

func setupTestCLI(t *testing.T) (*app.App, *bytes.Buffer) {
	t.Helper()
	a, err := app.Open(context.Background(), testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, captureOutput(t)
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := out
	out = buf
	t.Cleanup(func() { out = prev })
	return buf
}

func onlyID[E models.Record](t *testing.T, items []E) string {
	t.Helper()
	require.Len(t, items, 1)
	return strconv.FormatInt(items[0].Key(), 10)
}

func TestDealCommands(t *testing.T) {
	a, buf := setupTestCLI(t)

	require.NoError(t, AddDealCommand(a, []string{"--company", "Acme", "--status", models.DealOnboarded, "--value", "250000", "--work", "Reels, Branding"}))
	assert.Contains(t, buf.String(), "✓ Deal created: Acme")
	assert.Regexp(t, `Reference: REF-\d{4}-\d{4}`, buf.String())

	id := onlyID(t, a.Deals.Snapshot())
	deal, _ := a.Deals.Get(a.Deals.Snapshot()[0].ID)
	assert.Equal(t, []string{"Reels", "Branding"}, deal.Work)
	assert.Equal(t, "Vallapata", deal.LastUpdatedBy)

	buf.Reset()
	require.NoError(t, ListDealsCommand(a, nil))
	assert.Contains(t, buf.String(), "ACTIVE (1)")
	assert.Contains(t, buf.String(), "Acme")

	buf.Reset()
	require.NoError(t, UpdateDealCommand(a, []string{id, "--status", models.DealCompleted}))
	assert.Contains(t, buf.String(), "Status: completed")
	updated, _ := a.Deals.Get(deal.ID)
	assert.Equal(t, deal.ReferenceID, updated.ReferenceID, "reference id survives updates")
	assert.Equal(t, 250000.0, updated.DealValue, "unset flags are not sent")

	buf.Reset()
	require.NoError(t, ListDealsCommand(a, nil))
	assert.Contains(t, buf.String(), "ACTIVE (0)")
	assert.Contains(t, buf.String(), "COMPLETED (1)")

	assert.ErrorContains(t, UpdateDealCommand(a, []string{id}), "nothing to update")
	assert.ErrorContains(t, AddDealCommand(a, nil), "--company is required")
	assert.Error(t, UpdateDealCommand(a, []string{id, "--status", "won"}))

	buf.Reset()
	require.NoError(t, DeleteDealCommand(a, []string{id}))
	assert.Contains(t, buf.String(), "Deleted deal: Acme")
	assert.Empty(t, a.Deals.Snapshot())
}

func TestListDealsFiltersAndViews(t *testing.T) {
	a, buf := setupTestCLI(t)
	require.NoError(t, AddDealCommand(a, []string{"--company", "Acme", "--assigned-to", "Vallapata"}))
	require.NoError(t, AddDealCommand(a, []string{"--company", "Globex", "--assigned-to", "John Doe", "--status", models.DealQuoteSent}))

	buf.Reset()
	require.NoError(t, ListDealsCommand(a, []string{"--mine"}))
	assert.Contains(t, buf.String(), "Acme")
	assert.NotContains(t, buf.String(), "Globex")

	buf.Reset()
	require.NoError(t, ListDealsCommand(a, []string{"--view", "kanban"}))
	assert.Contains(t, buf.String(), "LEAD (1)")
	assert.Contains(t, buf.String(), "QUOTE SENT (1)")
	assert.Contains(t, buf.String(), "DROP (0)")

	buf.Reset()
	require.NoError(t, ListDealsCommand(a, []string{"--search", "zzz"}))
	assert.Contains(t, buf.String(), "No records found")

	assert.Error(t, ListDealsCommand(a, []string{"--view", "gantt"}))
	assert.Error(t, ListDealsCommand(a, []string{"--from", "2024-06-01", "--to", "2024-05-01"}))
}

func TestTaskCommands(t *testing.T) {
	a, buf := setupTestCLI(t)

	require.NoError(t, AddTaskCommand(a, []string{"--title", "Shoot reel", "--due", "2024-05-01", "--company", "7", "--main-board"}))
	require.NoError(t, AddTaskCommand(a, []string{"--title", "Write caption", "--priority", models.PriorityHigh}))

	buf.Reset()
	require.NoError(t, ListTasksCommand(a, []string{"--main-board"}))
	assert.Contains(t, buf.String(), "Shoot reel")
	assert.Contains(t, buf.String(), "(overdue)")
	assert.NotContains(t, buf.String(), "Write caption")

	buf.Reset()
	require.NoError(t, ListTasksCommand(a, []string{"--company", "7", "--view", "calendar"}))
	assert.Contains(t, buf.String(), "2024-05-01 (1)")

	var captionID int64
	for _, task := range a.Tasks.Snapshot() {
		if task.Title == "Write caption" {
			captionID = task.ID
		}
	}
	id := strconv.FormatInt(captionID, 10)

	buf.Reset()
	require.NoError(t, UpdateTaskCommand(a, []string{"--status", models.TaskDone, id}))
	task, _ := a.Tasks.Get(captionID)
	assert.Equal(t, models.TaskDone, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)

	assert.Error(t, AddTaskCommand(a, []string{"--title", "Bad", "--priority", "Urgent"}))
	assert.ErrorContains(t, UpdateTaskCommand(a, []string{"abc", "--status", "Done"}), "invalid task ID")

	buf.Reset()
	require.NoError(t, DeleteTaskCommand(a, []string{id}))
	assert.Contains(t, buf.String(), "Deleted task: Write caption")
}

func TestUpdateTaskNoCompanyDetachesClient(t *testing.T) {
	a, _ := setupTestCLI(t)
	require.NoError(t, AddTaskCommand(a, []string{"--title", "Shoot reel", "--company", "7"}))
	arg := onlyID(t, a.Tasks.Snapshot())
	id, err := strconv.ParseInt(arg, 10, 64)
	require.NoError(t, err)

	err = UpdateTaskCommand(a, []string{arg, "--company", "8", "--no-company"})
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	task, _ := a.Tasks.Get(id)
	require.NotNil(t, task.CompanyID)
	assert.Equal(t, int64(7), *task.CompanyID)

	require.NoError(t, UpdateTaskCommand(a, []string{arg, "--no-company"}))
	task, _ = a.Tasks.Get(id)
	assert.Nil(t, task.CompanyID)
}

func TestMeetingCommands(t *testing.T) {
	a, buf := setupTestCLI(t)

	assert.ErrorContains(t, AddMeetingCommand(a, []string{"--title", "Kickoff"}), "--at is required")
	require.NoError(t, AddMeetingCommand(a, []string{"--title", "Kickoff", "--at", "2024-05-12T15:30", "--company", "3"}))
	assert.Contains(t, buf.String(), "Meeting scheduled: Kickoff")

	id := onlyID(t, a.Meetings.Snapshot())

	buf.Reset()
	require.NoError(t, ListMeetingsCommand(a, []string{"--company", "3"}))
	assert.Contains(t, buf.String(), "Kickoff")

	require.NoError(t, UpdateMeetingCommand(a, []string{id, "--status", models.MeetingCancelled}))
	buf.Reset()
	require.NoError(t, ListMeetingsCommand(a, nil))
	assert.Contains(t, buf.String(), "COMPLETED (1)", "cancelled meetings are finished")

	require.NoError(t, DeleteMeetingCommand(a, []string{id}))
	assert.Empty(t, a.Meetings.Snapshot())
}

func TestCompaniesAndClient(t *testing.T) {
	a, buf := setupTestCLI(t)
	require.NoError(t, AddDealCommand(a, []string{"--company", "Acme", "--status", models.DealOnboarded}))
	require.NoError(t, AddDealCommand(a, []string{"--company", "Initech", "--status", models.DealDrop}))
	require.NoError(t, AddDealCommand(a, []string{"--company", "Lead Co"}))

	var acme int64
	for _, d := range a.Deals.Snapshot() {
		if d.Company == "Acme" {
			acme = d.ID
		}
	}
	id := strconv.FormatInt(acme, 10)
	require.NoError(t, AddTaskCommand(a, []string{"--title", "Post", "--company", id, "--status", models.TaskPosted}))
	require.NoError(t, AddTaskCommand(a, []string{"--title", "Reel", "--company", id}))

	buf.Reset()
	require.NoError(t, CompaniesCommand(a, nil))
	assert.Contains(t, buf.String(), "ACTIVE (1)")
	assert.Contains(t, buf.String(), "DROPPED (1)")
	assert.NotContains(t, buf.String(), "Lead Co")

	assert.Error(t, CompaniesCommand(a, []string{"--tab", "future"}))

	buf.Reset()
	require.NoError(t, ClientCommand(a, []string{id}))
	assert.Contains(t, buf.String(), "Progress:  1/2 delivered (50%)")
	assert.Contains(t, buf.String(), "TASKS (2)")

	assert.Error(t, ClientCommand(a, []string{"999"}))
}

func TestFollowupListCommand(t *testing.T) {
	a, buf := setupTestCLI(t)
	require.NoError(t, AddDealCommand(a, []string{"--company", "Late", "--follow-up", "2024-05-01"}))
	require.NoError(t, AddDealCommand(a, []string{"--company", "Soon", "--follow-up", "2024-05-20"}))

	buf.Reset()
	require.NoError(t, FollowupListCommand(a, nil))
	assert.Contains(t, buf.String(), "🔴 Late")
	assert.Contains(t, buf.String(), "🟢 Soon")

	buf.Reset()
	require.NoError(t, FollowupListCommand(a, []string{"--overdue-only"}))
	assert.NotContains(t, buf.String(), "Soon")
}

func TestDashboardAndActivity(t *testing.T) {
	a, buf := setupTestCLI(t)
	require.NoError(t, AddTaskCommand(a, []string{"--title", "Edit video", "--assigned-to", "Vallapata", "--due", "2024-05-10", "--priority", models.PriorityHigh}))

	buf.Reset()
	require.NoError(t, DashboardCommand(a, nil))
	assert.Contains(t, buf.String(), "Dashboard for Vallapata")
	assert.Contains(t, buf.String(), "* [High] Edit video")

	buf.Reset()
	require.NoError(t, PerformanceCommand(a, nil))
	assert.Contains(t, buf.String(), "Vallapata")

	buf.Reset()
	require.NoError(t, UsersCommand(a, nil))
	assert.Contains(t, buf.String(), "admin@incial.com")

	buf.Reset()
	require.NoError(t, ActivityCommand(a, []string{"--actor", "Vallapata"}))
	assert.Contains(t, buf.String(), "created")
	assert.Contains(t, buf.String(), "committed")
}

func TestVizCommands(t *testing.T) {
	a, buf := setupTestCLI(t)
	require.NoError(t, AddDealCommand(a, []string{"--company", "Acme", "--value", "4000"}))

	buf.Reset()
	require.NoError(t, VizDashboardCommand(a, nil))
	assert.Contains(t, buf.String(), "PIPELINE OVERVIEW")

	path := filepath.Join(t.TempDir(), "pipeline.dot")
	require.NoError(t, VizGraphCommand(a, []string{"--output", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme")

	assert.Error(t, VizGraphCommand(a, []string{"--format", "pdf"}))
}

func TestTokenIssueCommand(t *testing.T) {
	cfg := testConfig(t)
	buf := captureOutput(t)

	require.NoError(t, TokenIssueCommand(cfg, []string{"--email", "ADMIN@incial.com", "--ttl", "1h"}))
	claims, err := web.ParseToken([]byte(cfg.Server.JWTSecret), strings.TrimSpace(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, "Vallapata", claims.Name)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	assert.ErrorContains(t, TokenIssueCommand(cfg, []string{"--email", "nobody@example.com"}), "no configured user")
	assert.ErrorContains(t, TokenIssueCommand(cfg, nil), "--email is required")
}

func TestRemoteLoginCommand(t *testing.T) {
	cfg := testConfig(t)
	buf := captureOutput(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/api/v1/users/all", r.URL.Path)
		_ = json.NewEncoder(w).Encode(config.DefaultUsers())
	}))
	defer srv.Close()

	url := srv.URL + "/api/v1"
	assert.ErrorContains(t, RemoteLoginCommand(cfg, []string{"--url", url, "--token", "bad"}), "login failed")
	_, err := os.Stat(config.CredentialsPath(cfg.DataDir))
	assert.True(t, os.IsNotExist(err), "failed login saves nothing")

	require.NoError(t, RemoteLoginCommand(cfg, []string{"--url", url, "--token", "good"}))
	assert.Contains(t, buf.String(), "4 users visible")

	creds, err := config.LoadCredentials(cfg.DataDir)
	require.NoError(t, err)
	assert.Equal(t, config.Credentials{BaseURL: url, Token: "good"}, creds)

	require.NoError(t, RemoteLogoutCommand(cfg, nil))
	creds, err = config.LoadCredentials(cfg.DataDir)
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
}

func TestParseFlagsMovesLeadingID(t *testing.T) {
	a, _ := setupTestCLI(t)
	assert.ErrorContains(t, DeleteDealCommand(a, nil), "deal ID is required")
	assert.ErrorContains(t, DeleteDealCommand(a, []string{"-3"}), "flag provided but not defined")
	assert.NoError(t, DeleteDealCommand(a, []string{"42"}), "deleting a missing deal is idempotent")
}
