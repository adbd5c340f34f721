// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive board over the coordinators with a transient status line
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewSearch
	ViewDetail
	ViewEdit
	ViewPipeline
	ViewConfirmDelete
)

// EntityType represents the tab being viewed
type EntityType int

const (
	EntityDeals EntityType = iota
	EntityTasks
	EntityMeetings
	EntityFollowups
	EntityActivity
	entityCount
)

var entityNames = []string{"Deals", "Tasks", "Meetings", "Follow-ups", "Activity"}

// mutationMsg reports a finished coordinator call.
type mutationMsg struct {
	verb   string
	entity EntityType
	id     int64
	err    error
}

// refreshMsg reports a finished reload of every collection.
type refreshMsg struct{ err error }

// Model is the main bubbletea model
type Model struct {
	app        *app.App
	viewMode   ViewMode
	entityType EntityType

	// Board state
	mode        views.Mode
	mineOnly    bool
	selectedRow int
	search      textinput.Model
	searchQuery string

	// Selection carried into detail, edit and delete views
	selectedID int64

	// Edit view state
	formInputs []textinput.Model
	focusIndex int

	// Status line
	status    string
	statusErr bool
	inFlight  int

	// UI state
	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(a *app.App) Model {
	search := textinput.New()
	search.Placeholder = "search"
	search.CharLimit = 100

	return Model{
		app:        a,
		viewMode:   ViewBoard,
		entityType: EntityDeals,
		mode:       views.ModeList,
		search:     search,
		width:      100,
		height:     30,
	}
}

// Run starts the full-screen program and blocks until the user quits.
func Run(a *app.App) error {
	_, err := tea.NewProgram(NewModel(a), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case mutationMsg:
		return m.handleMutation(msg), nil
	case refreshMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("✓ Reloaded")
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var body string
	switch m.viewMode {
	case ViewBoard, ViewSearch:
		body = m.renderBoardView()
	case ViewDetail:
		body = m.renderDetailView()
	case ViewEdit:
		body = m.renderEditView()
	case ViewPipeline:
		body = m.renderPipelineView()
	case ViewConfirmDelete:
		body = m.renderConfirmDeleteView()
	}
	return body + "\n" + m.renderStatusLine()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Text-entry views consume every other key
	switch m.viewMode {
	case ViewSearch:
		return m.handleSearchKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	}

	if msg.String() == "q" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewPipeline:
		return m.handlePipelineKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

func (m Model) handleMutation(msg mutationMsg) Model {
	if m.inFlight > 0 {
		m.inFlight--
	}
	name := entityLabel(msg.entity)
	if msg.err != nil {
		m.setError(fmt.Errorf("%s %s #%d failed: %w", msg.verb, name, msg.id, msg.err))
		return m
	}
	m.setStatus(fmt.Sprintf("✓ %s %s #%d", msg.verb, name, msg.id))
	return m
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = fmt.Sprintf("✗ [%s] %v", models.KindOf(err), err)
	m.statusErr = true
}

func (m Model) renderStatusLine() string {
	line := m.status
	if m.inFlight > 0 {
		line = fmt.Sprintf("⟳ %d pending  %s", m.inFlight, line)
	}
	if m.statusErr {
		return statusErrStyle.Render(line)
	}
	return statusStyle.Render(line)
}

// refresh reloads every collection in the background.
func (m Model) refresh() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		return refreshMsg{err: a.Refresh(context.Background())}
	}
}

func entityLabel(e EntityType) string {
	switch e {
	case EntityTasks:
		return "task"
	case EntityMeetings:
		return "meeting"
	}
	return "deal"
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)
