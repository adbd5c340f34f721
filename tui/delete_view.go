// ABOUTME: Delete confirmation dialog for TUI
// ABOUTME: Confirmed deletes run through the coordinator in a background command
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	entityType := entityLabel(m.actionEntity())
	entityName, ok := m.recordName()
	if !ok {
		return fmt.Sprintf("Error: %s %d not found", entityType, m.selectedID)
	}

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", entityType)
	entityInfo := fmt.Sprintf("\n%s #%d: %s\n", strings.ToUpper(entityType), m.selectedID, entityName)
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

// recordName is the display name of the record pending deletion.
func (m Model) recordName() (string, bool) {
	a := m.app
	switch m.actionEntity() {
	case EntityTasks:
		t, ok := a.Tasks.Get(m.selectedID)
		return t.Title, ok
	case EntityMeetings:
		mt, ok := a.Meetings.Get(m.selectedID)
		return mt.Title, ok
	}
	d, ok := a.Deals.Get(m.selectedID)
	return d.Company, ok
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		cmd := m.performDelete()
		m.inFlight++
		m.viewMode = ViewBoard
		m.selectedID = 0
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		return m, cmd
	case "n", "N", "esc":
		m.viewMode = ViewBoard
	}

	return m, nil
}

func (m Model) performDelete() tea.Cmd {
	a, id, entity := m.app, m.selectedID, m.actionEntity()
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch entity {
		case EntityTasks:
			_, err = a.Tasks.Delete(ctx, id)
		case EntityMeetings:
			_, err = a.Meetings.Delete(ctx, id)
		default:
			_, err = a.Deals.Delete(ctx, id)
		}
		return mutationMsg{verb: "Deleted", entity: entity, id: id, err: err}
	}
}
