// ABOUTME: Create and edit forms for deals, tasks and meetings
// ABOUTME: Saves run through the coordinators in a background command
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/incial/crm/models"
)

// formField describes one input of an entity form.
type formField struct {
	placeholder string
	limit       int
}

var (
	dealFields = []formField{
		{"Company", 100},
		{"Assigned to", 100},
		{"Next follow-up (YYYY-MM-DD)", 10},
		{"Deal value", 20},
	}
	taskFields = []formField{
		{"Title", 200},
		{"Assigned to", 100},
		{"Due date (YYYY-MM-DD)", 10},
		{"Priority (Low/Medium/High)", 10},
	}
	meetingFields = []formField{
		{"Title", 200},
		{"Date and time (YYYY-MM-DDTHH:MM)", 25},
		{"Host", 100},
	}
)

func (m Model) renderEditView() string {
	var s strings.Builder

	name := strings.ToUpper(entityLabel(m.actionEntity()))
	if m.selectedID == 0 {
		s.WriteString(titleStyle.Render("NEW " + name))
	} else {
		s.WriteString(titleStyle.Render(fmt.Sprintf("EDIT %s #%d", name, m.selectedID)))
	}
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewBoard
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		cmd, err := m.saveEntity()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.inFlight++
		m.viewMode = ViewBoard
		return m, cmd
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

// initFormInputs builds the form for the action entity, prefilled when
// selectedID names an existing record.
func (m *Model) initFormInputs() {
	var fields []formField
	var values []string

	a := m.app
	switch m.actionEntity() {
	case EntityTasks:
		fields = taskFields
		if t, ok := a.Tasks.Get(m.selectedID); ok && m.selectedID != 0 {
			values = []string{t.Title, t.AssignedTo, t.DueDate.String(), t.Priority}
		}
	case EntityMeetings:
		fields = meetingFields
		if mt, ok := a.Meetings.Get(m.selectedID); ok && m.selectedID != 0 {
			values = []string{mt.Title, mt.DateTime.String(), mt.AssignedTo}
		}
	default:
		fields = dealFields
		if d, ok := a.Deals.Get(m.selectedID); ok && m.selectedID != 0 {
			values = []string{d.Company, d.AssignedTo, d.NextFollowUp.String(), strconv.FormatFloat(d.DealValue, 'f', -1, 64)}
		}
	}

	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = f.limit
		if i < len(values) {
			inputs[i].SetValue(values[i])
		}
	}

	m.formInputs = inputs
	m.focusIndex = 0
	m.updateFormFocus()
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) value(i int) string {
	if i >= len(m.formInputs) {
		return ""
	}
	return strings.TrimSpace(m.formInputs[i].Value())
}

// saveEntity validates the form locally and returns the command that
// performs the create or update.
func (m Model) saveEntity() (tea.Cmd, error) {
	switch m.actionEntity() {
	case EntityTasks:
		return m.saveTask()
	case EntityMeetings:
		return m.saveMeeting()
	}
	return m.saveDeal()
}

func (m Model) saveDeal() (tea.Cmd, error) {
	company, assignee, followUp := m.value(0), m.value(1), models.Date(m.value(2))
	var dealValue float64
	if v := m.value(3); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, models.Validationf("dealValue is not a number: %q", v)
		}
		dealValue = parsed
	}

	coord, id := m.app.Deals, m.selectedID
	if id == 0 {
		draft := models.Deal{Company: company, AssignedTo: assignee, NextFollowUp: followUp, DealValue: dealValue}
		return func() tea.Msg {
			out, err := coord.Create(context.Background(), draft)
			return mutationMsg{verb: "Created", entity: EntityDeals, id: out.Entity.ID, err: err}
		}, nil
	}

	patch := models.DealPatch{Company: &company, AssignedTo: &assignee, NextFollowUp: &followUp, DealValue: &dealValue}
	return func() tea.Msg {
		_, err := coord.Update(context.Background(), id, patch)
		return mutationMsg{verb: "Updated", entity: EntityDeals, id: id, err: err}
	}, nil
}

func (m Model) saveTask() (tea.Cmd, error) {
	title, assignee, due, priority := m.value(0), m.value(1), models.Date(m.value(2)), m.value(3)
	if priority == "" {
		priority = models.PriorityMedium
	}

	coord, id := m.app.Tasks, m.selectedID
	if id == 0 {
		draft := models.Task{Title: title, AssignedTo: assignee, DueDate: due, Priority: priority, IsVisibleOnMainBoard: true}
		return func() tea.Msg {
			out, err := coord.Create(context.Background(), draft)
			return mutationMsg{verb: "Created", entity: EntityTasks, id: out.Entity.ID, err: err}
		}, nil
	}

	patch := models.TaskPatch{Title: &title, AssignedTo: &assignee, DueDate: &due, Priority: &priority}
	return func() tea.Msg {
		_, err := coord.Update(context.Background(), id, patch)
		return mutationMsg{verb: "Updated", entity: EntityTasks, id: id, err: err}
	}, nil
}

func (m Model) saveMeeting() (tea.Cmd, error) {
	title, at, host := m.value(0), models.Date(m.value(1)), m.value(2)
	if _, ok := at.Time(); !ok {
		return nil, models.Validationf("dateTime is not a date: %q", at)
	}

	coord, id := m.app.Meetings, m.selectedID
	if id == 0 {
		draft := models.Meeting{Title: title, DateTime: at, AssignedTo: host}
		return func() tea.Msg {
			out, err := coord.Create(context.Background(), draft)
			return mutationMsg{verb: "Created", entity: EntityMeetings, id: out.Entity.ID, err: err}
		}, nil
	}

	patch := models.MeetingPatch{Title: &title, DateTime: &at, AssignedTo: &host}
	return func() tea.Msg {
		_, err := coord.Update(context.Background(), id, patch)
		return mutationMsg{verb: "Updated", entity: EntityMeetings, id: id, err: err}
	}, nil
}
