// ABOUTME: HTTP server subcommand
// ABOUTME: Runs the REST API, websocket feed, metrics and scheduled jobs until interrupted
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/incial/crm/app"
	"github.com/incial/crm/jobs"
	"github.com/incial/crm/web"
)

const jobStopTimeout = 30 * time.Second

// ServeCommand serves the API from the local store. a must be opened with app.Local.
func ServeCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.Config.Server.Addr, "Listen address")
	noJobs := fs.Bool("no-jobs", false, "Disable scheduled jobs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if a.Store == nil {
		return fmt.Errorf("serve needs the local store; it cannot run against a remote backend")
	}

	srv, err := web.NewServer(web.Deps{
		Store:     a.Store,
		Activity:  a.Activity,
		Metrics:   a.Metrics,
		Gatherer:  a.Registry,
		Logger:    a.Logger,
		JWTSecret: a.Config.Server.JWTSecret,
		Clock:     a.Now,
	})
	if err != nil {
		return err
	}

	if !*noJobs {
		scheduler, err := scheduleJobs(a)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), jobStopTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	return srv.Run(ctx, *addr)
}

func scheduleJobs(a *app.App) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(a.Logger.Named("jobs"))

	if a.Mirror != nil {
		job := jobs.NewMirrorSyncJob(a.Mirror, a.Store, a.Logger)
		if err := scheduler.Add("mirror-sync", a.Config.Jobs.MirrorSync, job); err != nil {
			return nil, err
		}
	} else {
		a.Logger.Info("Mirror disabled; skipping mirror sync job")
	}

	reminders := jobs.NewReminderJob(a.Store, a.Logger).WithClock(a.Now)
	if err := scheduler.Add("reminders", a.Config.Jobs.Reminders, reminders); err != nil {
		return nil, err
	}

	a.Logger.Debug("Jobs ready", zap.Int("count", scheduler.Len()))
	return scheduler, nil
}
