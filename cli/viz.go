// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the ASCII pipeline dashboard and graphviz pipeline graphs
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"

	"github.com/incial/crm/app"
	"github.com/incial/crm/viz"
)

// VizDashboardCommand prints the pipeline overview.
func VizDashboardCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("viz pipeline", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats := viz.GenerateDashboardStats(a.Deals.Snapshot(), a.Tasks.Snapshot(), a.Meetings.Snapshot(), a.Now())
	_, _ = fmt.Fprint(out, viz.RenderDashboard(stats))
	return nil
}

// VizGraphCommand generates the deal pipeline graph as DOT, SVG or PNG.
func VizGraphCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("viz graph", flag.ContinueOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "dot", "Output format: dot, svg or png")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := viz.ParseFormat(*format)
	if err != nil {
		return err
	}

	ctx := context.Background()
	generator := viz.NewGraphGenerator(a.Deals.Snapshot(), a.Tasks.Snapshot())

	if f == graphviz.XDOT {
		dot, err := generator.GeneratePipelineGraph(ctx)
		if err != nil {
			return err
		}
		if *output != "" {
			return os.WriteFile(*output, []byte(dot), 0644)
		}
		_, _ = fmt.Fprintln(out, dot)
		return nil
	}

	if *output == "" {
		return generator.Render(ctx, f, out)
	}
	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *output, err)
	}
	if err := generator.Render(ctx, f, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
