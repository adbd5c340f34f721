// ABOUTME: MCP server assembly
// ABOUTME: Registers every tool, resource and prompt against one App
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/config"
)

// NewServer builds an MCP server whose tools all go through a's coordinators.
func NewServer(a *app.App, version string) *mcp.Server {
	dealHandlers := NewDealHandlers(a)
	taskHandlers := NewTaskHandlers(a)
	meetingHandlers := NewMeetingHandlers(a)
	queryHandlers := NewQueryHandlers(a)
	statsHandlers := NewStatsHandlers(a)
	vizHandlers := NewVizHandlers(a)
	resourceHandlers := NewResourceHandlers(a)
	promptHandlers := NewPromptHandlers(a)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    config.AppName,
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal (client company) in the pipeline",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update a deal's status, owner, follow-up date or other fields",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal",
	}, dealHandlers.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a task, optionally scoped to a client company",
	}, taskHandlers.CreateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_task",
		Description: "Update a task's status, priority, assignee or other fields",
	}, taskHandlers.UpdateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task",
	}, taskHandlers.DeleteTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_meeting",
		Description: "Schedule a meeting",
	}, meetingHandlers.CreateMeeting)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_meeting",
		Description: "Update a meeting's time, status, host or notes",
	}, meetingHandlers.UpdateMeeting)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_meeting",
		Description: "Delete a meeting",
	}, meetingHandlers.DeleteMeeting)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_view",
		Description: "Filter deals, tasks or meetings and project them as a list, kanban board or calendar",
	}, queryHandlers.QueryView)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "my_dashboard",
		Description: "Active tasks, top priority tasks, upcoming meetings and efficiency for one person",
	}, statsHandlers.MyDashboard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "team_performance",
		Description: "Task totals and completion rate per assignee",
	}, statsHandlers.TeamPerformance)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline",
		Description: "Deal count and value per status with an ASCII chart",
	}, statsHandlers.Pipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "companies",
		Description: "Client companies split into active, dropped and past tabs",
	}, statsHandlers.Companies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_view",
		Description: "Tasks, meetings and delivery progress for one client company",
	}, statsHandlers.ClientView)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "follow_ups",
		Description: "Deals grouped by follow-up state: overdue, today, upcoming",
	}, statsHandlers.FollowUps)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_activity",
		Description: "Most recent committed and rolled-back mutations",
	}, statsHandlers.RecentActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_users",
		Description: "List the user directory",
	}, statsHandlers.ListUsers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Graphviz DOT source of the pipeline: statuses, deals and their company tasks",
	}, vizHandlers.GenerateGraph)

	for _, r := range []struct{ uri, name, desc string }{
		{"crm://deals", "deals", "All deals"},
		{"crm://tasks", "tasks", "All tasks"},
		{"crm://meetings", "meetings", "All meetings"},
		{"crm://pipeline", "pipeline", "Deal count and value per status"},
		{"crm://activity", "activity", "Recent activity"},
	} {
		server.AddResource(&mcp.Resource{
			URI:         r.uri,
			Name:        r.name,
			Description: r.desc,
			MIMEType:    "application/json",
		}, resourceHandlers.ReadResource)
	}

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://deals/{id}",
		Name:        "deal",
		Description: "One deal by id",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://tasks/{id}",
		Name:        "task",
		Description: "One task by id",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "deal-analysis",
		Description: "Analyze pipeline health",
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "follow-up-suggestions",
		Description: "Suggest outreach for overdue and due-today follow-ups",
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "client-overview",
		Description: "Summarise one client's tasks, meetings and progress",
		Arguments: []*mcp.PromptArgument{
			{Name: "deal_id", Description: "Deal ID of the client", Required: true},
		},
	}, promptHandlers.GetPrompt)

	return server
}
