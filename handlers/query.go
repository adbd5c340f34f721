// ABOUTME: Universal view tool handler
// ABOUTME: Runs mine, filter and list/kanban/calendar projection over any collection
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

type QueryHandlers struct {
	app *app.App
}

func NewQueryHandlers(a *app.App) *QueryHandlers {
	return &QueryHandlers{app: a}
}

type QueryViewInput struct {
	Collection string `json:"collection" jsonschema:"Collection to query: deals, tasks or meetings"`
	View       string `json:"view,omitempty" jsonschema:"Projection: list, kanban or calendar (default list)"`
	Mine       bool   `json:"mine,omitempty" jsonschema:"Only records assigned to the current actor"`
	Search     string `json:"search,omitempty" jsonschema:"Case-insensitive substring search"`
	Status     string `json:"status,omitempty" jsonschema:"Exact status"`
	Priority   string `json:"priority,omitempty" jsonschema:"Exact priority (tasks only)"`
	AssignedTo string `json:"assigned_to,omitempty" jsonschema:"Exact assignee display name"`
	DateFrom   string `json:"date_from,omitempty" jsonschema:"Earliest schedule date, inclusive (YYYY-MM-DD)"`
	DateTo     string `json:"date_to,omitempty" jsonschema:"Latest schedule date, inclusive (YYYY-MM-DD)"`
	WorkType   string `json:"work_type,omitempty" jsonschema:"Work type label"`
	MainBoard  bool   `json:"main_board,omitempty" jsonschema:"Tasks only: internal tasks plus company tasks flagged for the main board"`
	CompanyID  int64  `json:"company_id,omitempty" jsonschema:"Tasks and meetings only: scope to one client deal ID"`
}

type ColumnOutput struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Items  []any  `json:"items"`
}

type DayOutput struct {
	Date  string `json:"date"`
	Items []any  `json:"items"`
}

type QueryViewOutput struct {
	Collection string         `json:"collection"`
	View       string         `json:"view"`
	Total      int            `json:"total"`
	Filters    []string       `json:"filters,omitempty"`
	Active     []any          `json:"active,omitempty"`
	Completed  []any          `json:"completed,omitempty"`
	Columns    []ColumnOutput `json:"columns,omitempty"`
	Days       []DayOutput    `json:"days,omitempty"`
}

func (h *QueryHandlers) QueryView(_ context.Context, req *mcp.CallToolRequest, input QueryViewInput) (*mcp.CallToolResult, QueryViewOutput, error) {
	mode, err := views.ParseMode(input.View)
	if err != nil {
		return nil, QueryViewOutput{}, err
	}

	spec := filter.Spec{
		Search:     input.Search,
		Status:     input.Status,
		Priority:   input.Priority,
		AssignedTo: input.AssignedTo,
		DateFrom:   models.Date(input.DateFrom),
		DateTo:     models.Date(input.DateTo),
		WorkType:   input.WorkType,
	}
	opts := views.Options{Filter: spec, MineOnly: input.Mine, Actor: h.app.Actor()}
	terminals := h.app.Terminals()
	now := h.app.Now()

	var out QueryViewOutput
	switch input.Collection {
	case models.CollectionDeals:
		opts.Terminal = terminals.Deals
		opts.Columns = models.DealStatuses
		out, err = project(mode, h.app.Deals.Snapshot(), opts, func(d models.Deal) any { return dealToOutput(d, now) })
	case models.CollectionTasks:
		tasks := h.app.Tasks.Snapshot()
		switch {
		case input.CompanyID != 0:
			tasks = views.ForCompany(tasks, input.CompanyID)
		case input.MainBoard:
			tasks = views.MainBoard(tasks)
		}
		opts.Terminal = terminals.Tasks
		opts.Columns = models.TaskStatuses
		out, err = project(mode, tasks, opts, func(t models.Task) any { return taskToOutput(t) })
	case models.CollectionMeetings:
		meetings := h.app.Meetings.Snapshot()
		if input.CompanyID != 0 {
			meetings = views.MeetingsForCompany(meetings, input.CompanyID)
		}
		opts.Terminal = terminals.Meetings
		opts.Columns = models.MeetingStatuses
		out, err = project(mode, meetings, opts, func(m models.Meeting) any { return meetingToOutput(m) })
	default:
		return nil, QueryViewOutput{}, fmt.Errorf("invalid collection: %s (valid: deals, tasks, meetings)", input.Collection)
	}
	if err != nil {
		return nil, QueryViewOutput{}, err
	}

	out.Collection = input.Collection
	out.Filters = spec.Active()
	return nil, out, nil
}

func project[E models.Record](mode views.Mode, items []E, opts views.Options, conv func(E) any) (QueryViewOutput, error) {
	p, err := views.Project(mode, items, opts)
	if err != nil {
		return QueryViewOutput{}, err
	}

	out := QueryViewOutput{View: string(p.Mode), Total: p.Total}
	convert := func(items []E) []any {
		res := make([]any, 0, len(items))
		for _, item := range items {
			res = append(res, conv(item))
		}
		return res
	}

	switch {
	case p.List != nil:
		out.Active = convert(p.List.Active)
		out.Completed = convert(p.List.Completed)
	case p.Mode == views.ModeKanban:
		for _, col := range p.Kanban {
			out.Columns = append(out.Columns, ColumnOutput{Status: col.Status, Count: len(col.Items), Items: convert(col.Items)})
		}
	case p.Mode == views.ModeCalendar:
		for _, day := range p.Calendar {
			out.Days = append(out.Days, DayOutput{Date: day.Date, Items: convert(day.Items)})
		}
	}
	return out, nil
}
