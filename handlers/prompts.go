// ABOUTME: MCP prompt handlers for reusable pipeline workflow templates
// ABOUTME: Provides pipeline analysis, follow-up suggestions and client overview prompts
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
	"github.com/incial/crm/viz"
)

type PromptHandlers struct {
	app *app.App
}

func NewPromptHandlers(a *app.App) *PromptHandlers {
	return &PromptHandlers{app: a}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	arguments := request.Params.Arguments
	switch name {
	case "deal-analysis":
		return h.getDealAnalysisPrompt()
	case "follow-up-suggestions":
		return h.getFollowUpSuggestionsPrompt()
	case "client-overview":
		return h.getClientOverviewPrompt(arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) getDealAnalysisPrompt() (*mcp.GetPromptResult, error) {
	deals := h.app.Deals.Snapshot()
	stages := views.Pipeline(deals)

	totalValue := 0.0
	for _, s := range stages {
		totalValue += s.Value
	}

	var promptText strings.Builder
	promptText.WriteString("Please analyze the current deal pipeline:\n\n")
	promptText.WriteString(fmt.Sprintf("Total Deals: %d\n", len(deals)))
	promptText.WriteString(fmt.Sprintf("Total Value: %.0f\n\n", totalValue))
	promptText.WriteString("Pipeline by Status:\n")
	promptText.WriteString(viz.RenderPipeline(stages))

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Analysis of pipeline health and distribution")
	promptText.WriteString("\n2. Recommendations for deals that may need attention")
	promptText.WriteString("\n3. Suggestions for moving leads to onboarded")

	return userPrompt("Deal pipeline analysis", promptText.String()), nil
}

func (h *PromptHandlers) getFollowUpSuggestionsPrompt() (*mcp.GetPromptResult, error) {
	groups := views.FollowUps(h.app.Deals.Snapshot(), h.app.Now())

	var promptText strings.Builder
	promptText.WriteString("Deals with follow-ups due:\n\n")

	count := 0
	for _, state := range []models.FollowUp{models.FollowUpOverdue, models.FollowUpToday} {
		for _, d := range groups[state] {
			promptText.WriteString(fmt.Sprintf("- %s (%s, %s on %s, owner %s)\n",
				d.Company, d.Status, state, d.NextFollowUp, ownerOrNobody(d.AssignedTo)))
			count++
		}
	}
	if count == 0 {
		promptText.WriteString("No follow-ups are overdue or due today.\n")
	}

	promptText.WriteString("\nPlease:")
	promptText.WriteString("\n1. Prioritize which companies to reach out to first")
	promptText.WriteString("\n2. Suggest an outreach message for each")
	promptText.WriteString("\n3. Propose a next follow-up date for each")

	return userPrompt("Follow-up suggestions for deals", promptText.String()), nil
}

func (h *PromptHandlers) getClientOverviewPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	idStr, ok := args["deal_id"]
	if !ok {
		return nil, fmt.Errorf("deal_id is required")
	}
	dealID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid deal_id: %w", err)
	}

	cv, err := views.Client(h.app.Deals.Snapshot(), h.app.Tasks.Snapshot(), h.app.Meetings.Snapshot(), dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to build client view: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Client: %s (%s)\n", cv.Deal.Company, cv.Deal.Status))
	if cv.Deal.ReferenceID != "" {
		promptText.WriteString(fmt.Sprintf("Reference: %s\n", cv.Deal.ReferenceID))
	}
	promptText.WriteString(fmt.Sprintf("Progress: %d/%d tasks delivered (%d%%), %d in progress\n\n",
		cv.Progress.Done, cv.Progress.Total, cv.Progress.Percent, cv.Progress.InProgress))

	promptText.WriteString("Tasks:\n")
	for _, t := range cv.Tasks {
		promptText.WriteString(fmt.Sprintf("  - %s [%s] due %s, %s\n", t.Title, t.Status, t.DueDate, ownerOrNobody(t.AssignedTo)))
	}
	promptText.WriteString("\nMeetings:\n")
	for _, m := range cv.Meetings {
		promptText.WriteString(fmt.Sprintf("  - %s [%s] at %s\n", m.Title, m.Status, m.DateTime))
	}

	promptText.WriteString("\nPlease summarise where this client stands and what should happen next.")

	return userPrompt("Client overview", promptText.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func ownerOrNobody(name string) string {
	if name == "" {
		return views.UnassignedName
	}
	return name
}
