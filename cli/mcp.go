// ABOUTME: MCP server subcommand
// ABOUTME: Serves the CRM tools, resources and prompts over stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/incial/crm/app"
	"github.com/incial/crm/handlers"
)

// MCPCommand starts the MCP server on stdio and blocks until the client
// disconnects or ctx is cancelled.
func MCPCommand(ctx context.Context, a *app.App, version string) error {
	a.Logger.Info("Starting CRM MCP server",
		zap.String("version", version),
		zap.String("mode", string(a.Mode)),
	)

	server := handlers.NewServer(a, version)
	return server.Run(ctx, &mcp.StdioTransport{})
}
