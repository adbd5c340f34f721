// ABOUTME: Board view: tabs, projection table, search and status cycling
// ABOUTME: Rows come from views.Project so the board matches the CLI and MCP views
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// boardRow is one table line with the record id it acts on.
type boardRow struct {
	id    int64
	cells []string
}

var modeOrder = []views.Mode{views.ModeList, views.ModeKanban, views.ModeCalendar}

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("INCIAL CRM"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n")
	s.WriteString(m.renderViewState())
	s.WriteString("\n\n")

	s.WriteString(m.renderTable())
	s.WriteString("\n")

	if m.viewMode == ViewSearch {
		s.WriteString("/" + m.search.View())
		s.WriteString("\n")
	}
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for i, tab := range entityNames {
		if EntityType(i) == m.entityType {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderViewState() string {
	parts := []string{"view: " + string(m.mode)}
	if m.mineOnly {
		parts = append(parts, "mine")
	}
	if m.searchQuery != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.searchQuery))
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

func (m Model) columns() []table.Column {
	switch m.entityType {
	case EntityTasks:
		return []table.Column{
			{Title: "Group", Width: 14}, {Title: "ID", Width: 5}, {Title: "Title", Width: 30},
			{Title: "Status", Width: 12}, {Title: "Priority", Width: 8}, {Title: "Assignee", Width: 14}, {Title: "Due", Width: 12},
		}
	case EntityMeetings:
		return []table.Column{
			{Title: "Group", Width: 14}, {Title: "ID", Width: 5}, {Title: "Title", Width: 30},
			{Title: "Status", Width: 10}, {Title: "When", Width: 20}, {Title: "Host", Width: 14},
		}
	case EntityFollowups:
		return []table.Column{
			{Title: "State", Width: 10}, {Title: "ID", Width: 5}, {Title: "Company", Width: 28},
			{Title: "Follow-up", Width: 12}, {Title: "Owner", Width: 14}, {Title: "Phone", Width: 16},
		}
	case EntityActivity:
		return []table.Column{
			{Title: "When", Width: 17}, {Title: "Actor", Width: 14}, {Title: "Action", Width: 8},
			{Title: "Record", Width: 16}, {Title: "Result", Width: 12}, {Title: "Error", Width: 30},
		}
	}
	return []table.Column{
		{Title: "Group", Width: 14}, {Title: "ID", Width: 5}, {Title: "Company", Width: 28},
		{Title: "Status", Width: 12}, {Title: "Owner", Width: 14}, {Title: "Value", Width: 10}, {Title: "Follow-up", Width: 12},
	}
}

// rows projects the current tab in display order.
func (m Model) rows() ([]boardRow, error) {
	a := m.app
	terms := a.Terminals()
	opts := views.Options{
		Filter:   filter.Spec{Search: m.searchQuery},
		MineOnly: m.mineOnly,
		Actor:    a.Actor(),
	}

	switch m.entityType {
	case EntityTasks:
		opts.Terminal, opts.Columns = terms.Tasks, models.TaskStatuses
		p, err := views.Project(m.mode, a.Tasks.Snapshot(), opts)
		if err != nil {
			return nil, err
		}
		return projectRows(p, func(t models.Task) []string {
			return []string{t.Title, t.Status, t.Priority, t.AssignedTo, t.DueDate.String()}
		}), nil

	case EntityMeetings:
		opts.Terminal, opts.Columns = terms.Meetings, models.MeetingStatuses
		p, err := views.Project(m.mode, a.Meetings.Snapshot(), opts)
		if err != nil {
			return nil, err
		}
		return projectRows(p, func(mt models.Meeting) []string {
			return []string{mt.Title, mt.Status, mt.DateTime.String(), mt.AssignedTo}
		}), nil

	case EntityFollowups:
		return m.followupRows(opts), nil

	case EntityActivity:
		return m.activityRows(), nil
	}

	opts.Terminal, opts.Columns = terms.Deals, models.DealStatuses
	p, err := views.Project(m.mode, a.Deals.Snapshot(), opts)
	if err != nil {
		return nil, err
	}
	return projectRows(p, func(d models.Deal) []string {
		return []string{d.Company, d.Status, d.AssignedTo, fmt.Sprintf("%.0f", d.DealValue), d.NextFollowUp.String()}
	}), nil
}

// projectRows flattens a projection into rows led by group and id columns.
func projectRows[E models.Record](p views.Projection[E], cells func(E) []string) []boardRow {
	var rows []boardRow
	add := func(group string, items []E) {
		for _, item := range items {
			row := append([]string{group, strconv.FormatInt(item.Key(), 10)}, cells(item)...)
			rows = append(rows, boardRow{id: item.Key(), cells: row})
		}
	}

	switch p.Mode {
	case views.ModeKanban:
		for _, col := range p.Kanban {
			add(col.Status, col.Items)
		}
	case views.ModeCalendar:
		for _, day := range p.Calendar {
			add(day.Date, day.Items)
		}
	default:
		add("active", p.List.Active)
		add("completed", p.List.Completed)
	}
	return rows
}

func (m Model) renderTable() string {
	rows, err := m.rows()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if len(rows) == 0 {
		return helpStyle.Render("No records")
	}

	tableRows := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, table.Row(r.cells))
	}

	height := m.height - 12
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(m.columns()),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"v: View mode",
		"m: Mine",
		"/: Search",
		"s: Next status",
		"n: New",
		"d: Delete",
		"p: Pipeline",
		"r: Reload",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if rows, _ := m.rows(); m.selectedRow < len(rows)-1 {
			m.selectedRow++
		}
	case "tab":
		m.entityType = (m.entityType + 1) % entityCount
		m.selectedRow = 0
	case "shift+tab":
		m.entityType = (m.entityType + entityCount - 1) % entityCount
		m.selectedRow = 0
	case "v":
		m.mode = nextMode(m.mode)
		m.selectedRow = 0
	case "m":
		m.mineOnly = !m.mineOnly
		m.selectedRow = 0
	case "/":
		m.viewMode = ViewSearch
		m.search.SetValue(m.searchQuery)
		m.search.Focus()
		return m, textinput.Blink
	case "esc":
		m.searchQuery = ""
		m.selectedRow = 0
	case "enter":
		if id, ok := m.selected(); ok && m.entityType != EntityActivity {
			m.selectedID = id
			m.viewMode = ViewDetail
		}
	case "s":
		return m.cycleStatus()
	case "n":
		if m.entityType == EntityActivity {
			return m, nil
		}
		m.selectedID = 0
		m.initFormInputs()
		m.viewMode = ViewEdit
	case "d":
		if id, ok := m.selected(); ok && m.entityType != EntityActivity {
			m.selectedID = id
			m.viewMode = ViewConfirmDelete
		}
	case "p":
		m.viewMode = ViewPipeline
	case "r":
		m.setStatus("Reloading...")
		return m, m.refresh()
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.search.Blur()
		m.viewMode = ViewBoard
		m.selectedRow = 0
		return m, nil
	case "esc":
		m.search.Blur()
		m.viewMode = ViewBoard
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// selected returns the id under the cursor.
func (m Model) selected() (int64, bool) {
	rows, err := m.rows()
	if err != nil || m.selectedRow >= len(rows) {
		return 0, false
	}
	return rows[m.selectedRow].id, true
}

// actionEntity is the collection mutations on the current tab target.
func (m Model) actionEntity() EntityType {
	if m.entityType == EntityFollowups {
		return EntityDeals
	}
	return m.entityType
}

// cycleStatus moves the selected record to the next status in pipeline order.
func (m Model) cycleStatus() (tea.Model, tea.Cmd) {
	id, ok := m.selected()
	if !ok || m.entityType == EntityActivity {
		return m, nil
	}
	return m.cycleStatusOf(id)
}

func (m Model) cycleStatusOf(id int64) (tea.Model, tea.Cmd) {
	a := m.app
	entity := m.actionEntity()
	var run func(ctx context.Context) error

	switch entity {
	case EntityTasks:
		t, found := a.Tasks.Get(id)
		if !found {
			return m, nil
		}
		next := nextStatus(models.TaskStatuses, t.Status)
		run = func(ctx context.Context) error {
			_, err := a.Tasks.Update(ctx, id, models.TaskPatch{Status: &next})
			return err
		}
	case EntityMeetings:
		mt, found := a.Meetings.Get(id)
		if !found {
			return m, nil
		}
		next := nextStatus(models.MeetingStatuses, mt.Status)
		run = func(ctx context.Context) error {
			_, err := a.Meetings.Update(ctx, id, models.MeetingPatch{Status: &next})
			return err
		}
	default:
		d, found := a.Deals.Get(id)
		if !found {
			return m, nil
		}
		next := nextStatus(models.DealStatuses, d.Status)
		run = func(ctx context.Context) error {
			_, err := a.Deals.Update(ctx, id, models.DealPatch{Status: &next})
			return err
		}
	}

	m.inFlight++
	return m, func() tea.Msg {
		return mutationMsg{verb: "Updated", entity: entity, id: id, err: run(context.Background())}
	}
}

func nextStatus(statuses []string, current string) string {
	for i, s := range statuses {
		if s == current {
			return statuses[(i+1)%len(statuses)]
		}
	}
	return statuses[0]
}

func nextMode(mode views.Mode) views.Mode {
	for i, md := range modeOrder {
		if md == mode {
			return modeOrder[(i+1)%len(modeOrder)]
		}
	}
	return views.ModeList
}
