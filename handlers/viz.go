// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/viz"
)

type VizHandlers struct {
	app *app.App
}

func NewVizHandlers(a *app.App) *VizHandlers {
	return &VizHandlers{app: a}
}

type GenerateGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	generator := viz.NewGraphGenerator(h.app.Deals.Snapshot(), h.app.Tasks.Snapshot())
	dot, err := generator.GeneratePipelineGraph(ctx)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		DOTSource: dot,
		NodeCount: strings.Count(dot, "label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}
