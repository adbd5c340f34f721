// ABOUTME: Graphviz rendering of the deal pipeline
// ABOUTME: Status nodes fan out to deals, and deals to their company tasks
package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// GraphGenerator renders snapshots of deals and tasks.
type GraphGenerator struct {
	deals []models.Deal
	tasks []models.Task
}

func NewGraphGenerator(deals []models.Deal, tasks []models.Task) *GraphGenerator {
	return &GraphGenerator{deals: deals, tasks: tasks}
}

// GeneratePipelineGraph returns DOT source for every deal grouped under its status.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := g.Render(ctx, graphviz.XDOT, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render writes the pipeline graph to w in format (dot, svg or png).
func (g *GraphGenerator) Render(ctx context.Context, format graphviz.Format, w io.Writer) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	if err := g.build(graph); err != nil {
		return err
	}

	if err := gv.Render(ctx, graph, format, w); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}

func (g *GraphGenerator) build(graph *cgraph.Graph) error {
	statusNodes := make(map[string]*cgraph.Node)
	for _, col := range views.Kanban(g.deals, models.DealStatuses) {
		node, err := graph.CreateNodeByName("status_" + col.Status)
		if err != nil {
			return fmt.Errorf("failed to create status node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%d)", col.Status, len(col.Items)))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(statusColor(col.Status))
		statusNodes[col.Status] = node
	}

	dealNodes := make(map[int64]*cgraph.Node)
	for _, deal := range g.deals {
		node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d", deal.ID))
		if err != nil {
			return fmt.Errorf("failed to create deal node: %w", err)
		}
		label := deal.Company
		if deal.DealValue > 0 {
			label = fmt.Sprintf("%s\n%s", deal.Company, formatValue(deal.DealValue))
		}
		node.SetLabel(label)
		node.SetShape("ellipse")
		dealNodes[deal.ID] = node

		if statusNode, ok := statusNodes[deal.Status]; ok {
			if _, err := graph.CreateEdgeByName("in_status", statusNode, node); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
	}

	for _, task := range g.tasks {
		if task.CompanyID == nil {
			continue
		}
		dealNode, ok := dealNodes[*task.CompanyID]
		if !ok {
			continue
		}
		node, err := graph.CreateNodeByName(fmt.Sprintf("task_%d", task.ID))
		if err != nil {
			return fmt.Errorf("failed to create task node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%s)", task.Title, task.Status))
		node.SetShape("note")
		edge, err := graph.CreateEdgeByName("task_for", dealNode, node)
		if err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetStyle("dashed")
	}
	return nil
}

func statusColor(status string) string {
	switch status {
	case models.DealLead:
		return "lightyellow"
	case models.DealOnProgress, models.DealQuoteSent:
		return "lightblue"
	case models.DealOnboarded, models.DealCompleted:
		return "lightgreen"
	case models.DealDrop:
		return "lightpink"
	}
	return "lightgrey"
}

// ParseFormat maps a --format flag to a graphviz output format.
func ParseFormat(s string) (graphviz.Format, error) {
	switch s {
	case "", "dot":
		return graphviz.XDOT, nil
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	}
	return "", fmt.Errorf("unknown format: %s (valid: dot, svg, png)", s)
}
