// ABOUTME: Cron scheduler for background jobs run by `incial serve`
// ABOUTME: Wraps robfig/cron with zap logging, panic recovery and overlap skipping
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs named jobs on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Add schedules job under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	if spec == "" {
		s.logger.Info("Job disabled", zap.String("job", name))
		return nil
	}
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s (%q): %w", name, spec, err)
	}
	s.logger.Info("Job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Len reports how many jobs are scheduled.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Jobs still running at shutdown")
	}
}
