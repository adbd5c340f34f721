// ABOUTME: MCP resource handlers for exposing pipeline data
// ABOUTME: Provides read-only JSON snapshots of deals, tasks, meetings, pipeline and activity via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/views"
)

type ResourceHandlers struct {
	app *app.App
}

func NewResourceHandlers(a *app.App) *ResourceHandlers {
	return &ResourceHandlers{app: a}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	path := strings.TrimPrefix(uri, "crm://")
	parts := strings.Split(path, "/")
	now := h.app.Now()

	switch parts[0] {
	case "deals":
		if len(parts) == 1 {
			return jsonResource(uri, dealsToOutput(h.app.Deals.Snapshot(), now))
		}
		id, err := parseID(parts[1])
		if err != nil {
			return nil, err
		}
		deal, ok := h.app.Deals.Get(id)
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return jsonResource(uri, dealToOutput(deal, now))

	case "tasks":
		if len(parts) == 1 {
			return jsonResource(uri, tasksToOutput(h.app.Tasks.Snapshot()))
		}
		id, err := parseID(parts[1])
		if err != nil {
			return nil, err
		}
		task, ok := h.app.Tasks.Get(id)
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return jsonResource(uri, taskToOutput(task))

	case "meetings":
		return jsonResource(uri, meetingsToOutput(h.app.Meetings.Snapshot()))

	case "pipeline":
		return jsonResource(uri, views.Pipeline(h.app.Deals.Snapshot()))

	case "activity":
		entries := h.app.Activity.Recent(50)
		out := make([]ActivityOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, activityToOutput(e))
		}
		return jsonResource(uri, out)

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}
