// ABOUTME: Read-only MCP tools for dashboards and company pages
// ABOUTME: my_dashboard, team_performance, pipeline, companies, client_view, follow_ups, recent_activity
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
	"github.com/incial/crm/viz"
)

type StatsHandlers struct {
	app *app.App
}

func NewStatsHandlers(a *app.App) *StatsHandlers {
	return &StatsHandlers{app: a}
}

type DashboardInput struct {
	Actor string `json:"actor,omitempty" jsonschema:"Display name to summarise (default: the configured actor)"`
}

type DashboardOutput struct {
	Actor         string          `json:"actor"`
	Efficiency    int             `json:"efficiency"`
	ActiveTasks   []TaskOutput    `json:"active_tasks"`
	PriorityTasks []TaskOutput    `json:"priority_tasks"`
	Upcoming      []MeetingOutput `json:"upcoming_meetings"`
}

func (h *StatsHandlers) MyDashboard(_ context.Context, req *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	actor := input.Actor
	if actor == "" {
		actor = h.app.Actor()
	}
	d := views.MyDashboard(h.app.Tasks.Snapshot(), h.app.Meetings.Snapshot(), actor, h.app.Now())
	return nil, DashboardOutput{
		Actor:         d.Actor,
		Efficiency:    d.Efficiency,
		ActiveTasks:   tasksToOutput(d.ActiveTasks),
		PriorityTasks: tasksToOutput(d.PriorityTasks),
		Upcoming:      meetingsToOutput(d.Upcoming),
	}, nil
}

type EmptyInput struct{}

type TeamPerformanceOutput struct {
	Members []views.MemberStats `json:"members"`
	Table   string              `json:"table"`
}

func (h *StatsHandlers) TeamPerformance(_ context.Context, req *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, TeamPerformanceOutput, error) {
	rows := views.TeamPerformance(h.app.Tasks.Snapshot())
	return nil, TeamPerformanceOutput{Members: rows, Table: viz.RenderTeam(rows)}, nil
}

type PipelineOutput struct {
	Stages []views.StageStats `json:"stages"`
	Chart  string             `json:"chart"`
}

func (h *StatsHandlers) Pipeline(_ context.Context, req *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, PipelineOutput, error) {
	stages := views.Pipeline(h.app.Deals.Snapshot())
	return nil, PipelineOutput{Stages: stages, Chart: viz.RenderPipeline(stages)}, nil
}

type CompaniesInput struct {
	Search   string `json:"search,omitempty" jsonschema:"Search company, contact or reference id"`
	WorkType string `json:"work_type,omitempty" jsonschema:"Only companies with this work type"`
}

type CompaniesOutput struct {
	Active  []DealOutput `json:"active"`
	Dropped []DealOutput `json:"dropped"`
	Past    []DealOutput `json:"past"`
}

func (h *StatsHandlers) Companies(_ context.Context, req *mcp.CallToolRequest, input CompaniesInput) (*mcp.CallToolResult, CompaniesOutput, error) {
	now := h.app.Now()
	tabs := views.CompanyTabs(h.app.Deals.Snapshot(), filter.Spec{Search: input.Search, WorkType: input.WorkType})
	return nil, CompaniesOutput{
		Active:  dealsToOutput(tabs.Active, now),
		Dropped: dealsToOutput(tabs.Dropped, now),
		Past:    dealsToOutput(tabs.Past, now),
	}, nil
}

type ClientViewInput struct {
	DealID int64 `json:"deal_id" jsonschema:"Deal ID of the client company (required)"`
}

type ClientViewOutput struct {
	Deal     DealOutput      `json:"deal"`
	Progress views.Progress  `json:"progress"`
	Tasks    []TaskOutput    `json:"tasks"`
	Meetings []MeetingOutput `json:"meetings"`
}

func (h *StatsHandlers) ClientView(_ context.Context, req *mcp.CallToolRequest, input ClientViewInput) (*mcp.CallToolResult, ClientViewOutput, error) {
	if input.DealID == 0 {
		return nil, ClientViewOutput{}, fmt.Errorf("deal_id is required")
	}
	cv, err := views.Client(h.app.Deals.Snapshot(), h.app.Tasks.Snapshot(), h.app.Meetings.Snapshot(), input.DealID)
	if err != nil {
		return nil, ClientViewOutput{}, err
	}
	return nil, ClientViewOutput{
		Deal:     dealToOutput(cv.Deal, h.app.Now()),
		Progress: cv.Progress,
		Tasks:    tasksToOutput(cv.Tasks),
		Meetings: meetingsToOutput(cv.Meetings),
	}, nil
}

type FollowUpsOutput struct {
	Overdue  []DealOutput `json:"overdue"`
	Today    []DealOutput `json:"today"`
	Upcoming []DealOutput `json:"upcoming"`
}

func (h *StatsHandlers) FollowUps(_ context.Context, req *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, FollowUpsOutput, error) {
	now := h.app.Now()
	groups := views.FollowUps(h.app.Deals.Snapshot(), now)
	return nil, FollowUpsOutput{
		Overdue:  dealsToOutput(groups[models.FollowUpOverdue], now),
		Today:    dealsToOutput(groups[models.FollowUpToday], now),
		Upcoming: dealsToOutput(groups[models.FollowUpUpcoming], now),
	}, nil
}

type ActivityInput struct {
	Actor string `json:"actor,omitempty" jsonschema:"Only entries by this display name"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum entries to return (default 20)"`
}

type ActivityListOutput struct {
	Entries []ActivityOutput `json:"entries"`
	Count   int              `json:"count"`
}

func (h *StatsHandlers) RecentActivity(_ context.Context, req *mcp.CallToolRequest, input ActivityInput) (*mcp.CallToolResult, ActivityListOutput, error) {
	if input.Limit == 0 {
		input.Limit = 20
	}
	entries := h.app.Activity.Recent(input.Limit)
	if input.Actor != "" {
		entries = h.app.Activity.ByActor(input.Actor, input.Limit)
	}
	out := ActivityListOutput{Entries: make([]ActivityOutput, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, activityToOutput(e))
	}
	out.Count = len(out.Entries)
	return nil, out, nil
}

type UsersOutput struct {
	Users []models.User `json:"users"`
}

func (h *StatsHandlers) ListUsers(ctx context.Context, req *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, UsersOutput, error) {
	users, err := h.app.Users.List(ctx)
	if err != nil {
		return nil, UsersOutput{}, fmt.Errorf("failed to list users: %w", err)
	}
	return nil, UsersOutput{Users: users}, nil
}
