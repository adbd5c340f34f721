// ABOUTME: Entry point for the incial CRM server, CLI, TUI and MCP server
// ABOUTME: Routes to a command based on arguments after loading configuration
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/incial/crm/app"
	"github.com/incial/crm/cli"
	"github.com/incial/crm/config"
	"github.com/incial/crm/models"
	"github.com/incial/crm/tui"
)

const version = "0.4.0"

// appCommand runs against an opened App.
type appCommand func(a *app.App, args []string) error

var crmCommands = map[string]appCommand{
	"add-deal":       cli.AddDealCommand,
	"list-deals":     cli.ListDealsCommand,
	"update-deal":    cli.UpdateDealCommand,
	"delete-deal":    cli.DeleteDealCommand,
	"add-task":       cli.AddTaskCommand,
	"list-tasks":     cli.ListTasksCommand,
	"update-task":    cli.UpdateTaskCommand,
	"delete-task":    cli.DeleteTaskCommand,
	"add-meeting":    cli.AddMeetingCommand,
	"list-meetings":  cli.ListMeetingsCommand,
	"update-meeting": cli.UpdateMeetingCommand,
	"delete-meeting": cli.DeleteMeetingCommand,
	"companies":      cli.CompaniesCommand,
	"client":         cli.ClientCommand,
	"followups":      cli.FollowupListCommand,
	"dashboard":      cli.DashboardCommand,
	"performance":    cli.PerformanceCommand,
	"users":          cli.UsersCommand,
	"activity":       cli.ActivityCommand,
}

var vizCommands = map[string]appCommand{
	"dashboard": cli.VizDashboardCommand,
	"graph":     cli.VizGraphCommand,
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/incial/config.yaml)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("incial version %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args[0], args[1:]); err != nil {
		stop()
		fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	switch command {
	case "serve":
		return withApp(ctx, cfg, []app.Option{app.Local()}, func(a *app.App) error {
			return cli.ServeCommand(ctx, a, args)
		})

	case "mcp":
		return withApp(ctx, cfg, nil, func(a *app.App) error {
			return cli.MCPCommand(ctx, a, version)
		})

	case "tui":
		return withApp(ctx, cfg, nil, tui.Run)

	case "crm":
		sub, subArgs, err := split(command, args)
		if err != nil {
			return err
		}
		cmd, ok := crmCommands[sub]
		if !ok {
			return unknown("crm", sub)
		}
		return withApp(ctx, cfg, nil, func(a *app.App) error { return cmd(a, subArgs) })

	case "viz":
		sub, subArgs, err := split(command, args)
		if err != nil {
			return err
		}
		cmd, ok := vizCommands[sub]
		if !ok {
			return unknown("viz", sub)
		}
		return withApp(ctx, cfg, nil, func(a *app.App) error { return cmd(a, subArgs) })

	case "token":
		sub, subArgs, err := split(command, args)
		if err != nil {
			return err
		}
		if sub != "issue" {
			return unknown("token", sub)
		}
		return cli.TokenIssueCommand(cfg, subArgs)

	case "remote":
		sub, subArgs, err := split(command, args)
		if err != nil {
			return err
		}
		switch sub {
		case "login":
			return cli.RemoteLoginCommand(cfg, subArgs)
		case "logout":
			return cli.RemoteLogoutCommand(cfg, subArgs)
		}
		return unknown("remote", sub)

	case "gcal":
		sub, subArgs, err := split(command, args)
		if err != nil {
			return err
		}
		switch sub {
		case "init":
			return cli.GcalInitCommand(cfg, subArgs)
		case "import":
			return withApp(ctx, cfg, nil, func(a *app.App) error { return cli.GcalImportCommand(a, subArgs) })
		}
		return unknown("gcal", sub)

	case "sync":
		return cli.SyncCommand(cfg, args)

	case "help":
		printUsage()
		return nil
	}

	return unknown("", command)
}

// withApp opens the App for one command and closes it afterwards.
func withApp(ctx context.Context, cfg *config.Config, opts []app.Option, fn func(a *app.App) error) error {
	a, err := app.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func split(command string, args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%s requires a subcommand (see 'incial help')", command)
	}
	return args[0], args[1:], nil
}

func unknown(group, command string) error {
	if group == "" {
		return fmt.Errorf("unknown command: %s (see 'incial help')", command)
	}
	return fmt.Errorf("unknown %s command: %s (see 'incial help')", group, command)
}

func fatal(err error) {
	if kind := models.KindOf(err); kind != models.KindUnknown {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", kind, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printUsage() {
	fmt.Printf(`incial v%s - agency CRM for deals, tasks and meetings

USAGE:
  incial [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/incial/config.yaml)

COMMANDS:
  serve                  Run the HTTP API, websocket events and scheduled jobs
  mcp                    Start MCP server on stdio
  tui                    Interactive board
  crm                    Deal, task and meeting commands
  viz                    Dashboards and pipeline graphs
  token issue            Issue an API token for a configured user
  remote login|logout    Point the CLI at a running server
  gcal init|import       Connect Google Calendar and import meetings
  sync                   Charm mirror account commands

SERVER:
  incial serve
    --addr <addr>             Listen address (default from config)
    --no-jobs                 Do not schedule mirror sync and reminders

CRM COMMANDS:
  incial crm add-deal          Add a deal
    --company <name>            Company name (required)
    --status <status>           lead, on progress, Quote Sent, onboarded, completed, drop
    --contact, --email, --phone, --assigned-to, --value, --follow-up, --work, --tags

  incial crm list-deals        List deals
  incial crm list-tasks        List tasks
  incial crm list-meetings     List meetings
    --view list|kanban|calendar
    --mine                      Only records assigned to you
    --search, --status, --priority, --assigned-to, --from, --to, --work-type

  incial crm update-deal <id> [flags]     Patch only the flags passed
  incial crm delete-deal <id>

  incial crm add-task          Add a task
    --title <title>             Task title (required)
    --status, --priority, --type, --assigned-to, --due, --company <deal id>, --main-board, --link

  incial crm update-task <id> [flags]     --no-company detaches the task from its client
  incial crm delete-task <id>

  incial crm add-meeting       Schedule a meeting
    --title <title>             Meeting title (required)
    --at <datetime>             e.g. 2024-05-10T15:00 (required)
    --assigned-to, --company <deal id>, --link, --notes

  incial crm update-meeting <id> [flags]  --no-company detaches the meeting from its client
  incial crm delete-meeting <id>

  incial crm companies         Company tabs
    --tab active|dropped|past
  incial crm client <id>       Tasks, meetings and delivery progress for one client
  incial crm followups         Follow-ups grouped overdue, today, upcoming
  incial crm dashboard         Personal focus list and upcoming meetings
  incial crm performance       Task counts per team member
  incial crm users             Known users
  incial crm activity          Recent mutations made by this process

VIZ COMMANDS:
  incial viz dashboard         Pipeline summary
  incial viz graph             Deal pipeline graph
    --format dot|svg|png        Output format (default: dot)
    --output <file>             Output file (default: stdout)

EXAMPLES:
  # Add a deal and move it along
  incial crm add-deal --company "Acme Foods" --value 250000
  incial crm update-deal 1 --status onboarded

  # Tasks on the main board in kanban view
  incial crm list-tasks --main-board --view kanban

  # Serve the API and connect another machine to it
  incial serve --addr :8080
  incial token issue --email admin@incial.com
  incial remote login --url http://localhost:8080/api/v1

`, version)
}
