// ABOUTME: Tests for the TUI model
// ABOUTME: Drives key presses through Update and runs the returned commands against a local App
package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incial/crm/app"
	"github.com/incial/crm/config"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func setupTestModel(t *testing.T) (Model, *app.App) {
	t.Helper()
	cfg := config.Default()
	cfg.Actor = "Vallapata"
	cfg.DataDir = t.TempDir()
	cfg.Mirror.Backend = config.MirrorMemory
	cfg.Remote = config.RemoteConfig{}

	a, err := app.Open(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewModel(a), a
}

func createDeal(t *testing.T, a *app.App, d models.Deal) models.Deal {
	t.Helper()
	out, err := a.Deals.Create(context.Background(), d)
	require.NoError(t, err)
	return out.Entity
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and returns the updated model with its command.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

// settle runs cmd and feeds its message back into the model.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = press(t, m, cmd())
	return m
}

func TestRowsListActiveBeforeCompleted(t *testing.T) {
	m, a := setupTestModel(t)
	done := createDeal(t, a, models.Deal{Company: "Done Co", Status: models.DealCompleted})
	open := createDeal(t, a, models.Deal{Company: "Open Co", Status: models.DealLead})

	rows, err := m.rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, open.ID, rows[0].id)
	assert.Equal(t, "active", rows[0].cells[0])
	assert.Equal(t, done.ID, rows[1].id)
	assert.Equal(t, "completed", rows[1].cells[0])
}

func TestViewModeCyclesThroughKanbanAndCalendar(t *testing.T) {
	m, a := setupTestModel(t)
	createDeal(t, a, models.Deal{Company: "Acme", Status: models.DealOnboarded, NextFollowUp: "2024-05-12"})

	m, _ = press(t, m, keys("v"))
	assert.Equal(t, views.ModeKanban, m.mode)
	rows, err := m.rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.DealOnboarded, rows[0].cells[0])

	m, _ = press(t, m, keys("v"))
	assert.Equal(t, views.ModeCalendar, m.mode)

	m, _ = press(t, m, keys("v"))
	assert.Equal(t, views.ModeList, m.mode)
}

func TestTabsWrapAround(t *testing.T) {
	m, _ := setupTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, EntityActivity, m.entityType)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, EntityDeals, m.entityType)
}

func TestSearchNarrowsRows(t *testing.T) {
	m, a := setupTestModel(t)
	createDeal(t, a, models.Deal{Company: "Acme Foods"})
	createDeal(t, a, models.Deal{Company: "Globex"})

	m, _ = press(t, m, keys("/"))
	assert.Equal(t, ViewSearch, m.viewMode)
	m, _ = press(t, m, keys("acme"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewBoard, m.viewMode)
	assert.Equal(t, "acme", m.searchQuery)
	rows, err := m.rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme Foods", rows[0].cells[2])

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.searchQuery)
}

func TestStatusCycleUpdatesDeal(t *testing.T) {
	m, a := setupTestModel(t)
	deal := createDeal(t, a, models.Deal{Company: "Acme"})

	m, cmd := press(t, m, keys("s"))
	assert.Equal(t, 1, m.inFlight)
	m = settle(t, m, cmd)

	assert.Equal(t, 0, m.inFlight)
	assert.False(t, m.statusErr)
	assert.Contains(t, m.status, "Updated deal")

	got, ok := a.Deals.Get(deal.ID)
	require.True(t, ok)
	assert.Equal(t, models.DealOnProgress, got.Status)
	assert.Regexp(t, `^REF-\d{4}-\d{4}$`, got.ReferenceID)
}

func TestFollowupTabActsOnDeals(t *testing.T) {
	m, a := setupTestModel(t)
	deal := createDeal(t, a, models.Deal{Company: "Acme", NextFollowUp: "2024-05-01"})

	m.entityType = EntityFollowups
	rows, err := m.rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].cells[0], string(models.FollowUpOverdue))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, deal.ID, m.selectedID)
	assert.Contains(t, m.View(), "Acme")
}

func TestCreateTaskFromForm(t *testing.T) {
	m, a := setupTestModel(t)
	m.entityType = EntityTasks

	m, _ = press(t, m, keys("n"))
	require.Equal(t, ViewEdit, m.viewMode)
	require.Len(t, m.formInputs, len(taskFields))

	m, _ = press(t, m, keys("Write brief"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, keys("Vallapata"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewBoard, m.viewMode)
	m = settle(t, m, cmd)

	assert.Contains(t, m.status, "Created task")
	tasks := a.Tasks.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write brief", tasks[0].Title)
	assert.Equal(t, "Vallapata", tasks[0].AssignedTo)
	assert.Equal(t, models.PriorityMedium, tasks[0].Priority)
}

func TestMeetingFormRejectsBadDate(t *testing.T) {
	m, a := setupTestModel(t)
	m.entityType = EntityMeetings

	m, _ = press(t, m, keys("n"))
	m, _ = press(t, m, keys("Kickoff"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, keys("next week"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, ViewEdit, m.viewMode)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "[validation]")
	assert.Empty(t, a.Meetings.Snapshot())
}

func TestEditFromDetailPrefillsForm(t *testing.T) {
	m, a := setupTestModel(t)
	deal := createDeal(t, a, models.Deal{Company: "Acme", DealValue: 1500})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, keys("e"))
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Equal(t, "Acme", m.formInputs[0].Value())
	assert.Equal(t, "1500", m.formInputs[3].Value())

	m.formInputs[1].SetValue("Arjun")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, cmd)

	got, _ := a.Deals.Get(deal.ID)
	assert.Equal(t, "Arjun", got.AssignedTo)
	assert.Contains(t, m.status, "Updated deal")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, a := setupTestModel(t)
	createDeal(t, a, models.Deal{Company: "Acme"})

	m, _ = press(t, m, keys("d"))
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "DELETE CONFIRMATION")

	m, _ = press(t, m, keys("n"))
	assert.Equal(t, ViewBoard, m.viewMode)
	assert.Len(t, a.Deals.Snapshot(), 1)

	m, _ = press(t, m, keys("d"))
	m, cmd := press(t, m, keys("y"))
	m = settle(t, m, cmd)

	assert.Empty(t, a.Deals.Snapshot())
	assert.Contains(t, m.status, "Deleted deal")
}

func TestMutationErrorShowsKind(t *testing.T) {
	m, _ := setupTestModel(t)
	m.inFlight = 1

	m, _ = press(t, m, mutationMsg{verb: "Updated", entity: EntityTasks, id: 9, err: models.NotFound(models.CollectionTasks, 9)})

	assert.Equal(t, 0, m.inFlight)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "[not_found]")
	assert.Contains(t, m.status, "Updated task #9 failed")
}

func TestActivityTabListsMutations(t *testing.T) {
	m, a := setupTestModel(t)
	createDeal(t, a, models.Deal{Company: "Acme"})

	m.entityType = EntityActivity
	rows, err := m.rows()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Vallapata", rows[0].cells[1])
}

func TestPipelineViewRenders(t *testing.T) {
	m, a := setupTestModel(t)
	createDeal(t, a, models.Deal{Company: "Acme", Status: models.DealOnboarded, DealValue: 1000})

	m, _ = press(t, m, keys("p"))
	require.Equal(t, ViewPipeline, m.viewMode)
	assert.Contains(t, m.View(), "PIPELINE")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.viewMode)
}

func TestQuitKey(t *testing.T) {
	m, _ := setupTestModel(t)
	_, cmd := press(t, m, keys("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
