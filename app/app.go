// ABOUTME: Composition root shared by the CLI, MCP server, TUI and HTTP server
// ABOUTME: Builds logger, metrics, store or remote backends, mirror, coordinators and activity log
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/incial/crm/activity"
	"github.com/incial/crm/audit"
	"github.com/incial/crm/config"
	"github.com/incial/crm/coordinator"
	"github.com/incial/crm/logging"
	"github.com/incial/crm/metrics"
	"github.com/incial/crm/mirror"
	"github.com/incial/crm/models"
	"github.com/incial/crm/remote"
	"github.com/incial/crm/store"
	"github.com/incial/crm/views"
)

// Mode says where the coordinators send mutations.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// UserSource lists the user directory.
type UserSource interface {
	List(ctx context.Context) ([]models.User, error)
}

type remoteUsers struct{ client *remote.Client }

func (r remoteUsers) List(ctx context.Context) ([]models.User, error) { return r.client.Users(ctx) }

// App holds everything a surface needs.
type App struct {
	Config   *config.Config
	Mode     Mode
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Activity *activity.Log

	// Store and Mirror are nil in remote mode.
	Store  *store.Store
	Mirror *mirror.Mirror

	Deals    *coordinator.Deals
	Tasks    *coordinator.Tasks
	Meetings *coordinator.Meetings
	Users    UserSource

	remote *remote.Client
	clock  func() time.Time
}

type options struct {
	forceLocal bool
	logger     *zap.Logger
	clock      func() time.Time
	notifiers  []coordinator.Notifier
	skipLoad   bool
}

type Option func(*options)

// Local ignores remote settings. `serve` always owns the store.
func Local() Option {
	return func(o *options) { o.forceLocal = true }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithNotifier adds a receiver for every coordinator event.
func WithNotifier(n coordinator.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithoutInitialLoad skips the first Refresh.
func WithoutInitialLoad() Option {
	return func(o *options) { o.skipLoad = true }
}

// Open wires an App from cfg and loads every collection once.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}
	logging.Set(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics.NewWithRegistry(registry, logger),
		Activity: activity.NewLog(activity.DefaultCapacity),
		clock:    o.clock,
	}

	if err := cfg.ApplyCredentials(); err != nil {
		logger.Warn("Failed to read saved remote credentials", zap.Error(err))
	}

	var err error
	if !o.forceLocal && cfg.Remote.BaseURL != "" {
		err = a.openRemote()
	} else {
		err = a.openLocal(ctx)
	}
	if err != nil {
		return nil, err
	}

	notifiers := append(coordinator.Notifiers{a.Activity, eventLogger(logger)}, o.notifiers...)
	copts := []coordinator.Option{
		coordinator.WithStamper(audit.Stamper{Actor: cfg.ActorName(), Clock: o.clock}),
		coordinator.WithNotifier(notifiers),
		coordinator.WithClock(o.clock),
		coordinator.WithMetrics(a.Metrics),
		coordinator.WithLogger(logger),
	}
	a.Deals = coordinator.NewDeals(a.dealsBackend(), copts...)
	a.Tasks = coordinator.NewTasks(a.tasksBackend(), copts...)
	a.Meetings = coordinator.NewMeetings(a.meetingsBackend(), copts...)

	if !o.skipLoad {
		if err := a.Refresh(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	logger.Debug("App ready",
		zap.String("mode", string(a.Mode)),
		zap.String("actor", cfg.ActorName()),
		zap.String("mirror", a.Mirror.Backend()),
	)
	return a, nil
}

func (a *App) openLocal(ctx context.Context) error {
	cfg := a.Config
	a.Mode = ModeLocal

	m, err := mirror.Open(ctx, cfg.Mirror, mirror.WithMetrics(a.Metrics), mirror.WithLogger(a.Logger))
	if err != nil {
		return err
	}
	seed, err := m.Load(ctx)
	if err != nil {
		_ = m.Close()
		return fmt.Errorf("failed to load mirror: %w", err)
	}
	seed.Users = cfg.Users

	latency := store.WithoutLatency()
	if cfg.Latency.Enabled {
		latency = store.WithLatency(store.DefaultLatency())
	}
	a.Store = store.New(
		store.WithSeed(seed),
		latency,
		store.WithClock(a.clock),
		store.WithMetrics(a.Metrics),
		store.WithLogger(a.Logger),
	)
	m.Attach(a.Store)
	a.Mirror = m
	a.Users = a.Store.Users()

	for _, name := range a.Store.Users().DuplicateNames() {
		a.Logger.Warn("Several users share a display name; assignments to it are ambiguous",
			zap.String("name", name))
	}
	return nil
}

func (a *App) openRemote() error {
	if a.Config.Remote.Token == "" {
		return errors.New("remote base URL set but no token; run `incial remote login`")
	}
	a.Mode = ModeRemote
	client := remote.New(a.Config.Remote.BaseURL, a.Config.Remote.Token, remote.WithLogger(a.Logger))
	a.remote = client
	a.Users = remoteUsers{client: client}
	return nil
}

func (a *App) dealsBackend() coordinator.Backend[models.Deal, models.DealPatch] {
	if a.remote != nil {
		return a.remote.Deals()
	}
	return a.Store.Deals()
}

func (a *App) tasksBackend() coordinator.Backend[models.Task, models.TaskPatch] {
	if a.remote != nil {
		return a.remote.Tasks()
	}
	return a.Store.Tasks()
}

func (a *App) meetingsBackend() coordinator.Backend[models.Meeting, models.MeetingPatch] {
	if a.remote != nil {
		return a.remote.Meetings()
	}
	return a.Store.Meetings()
}

// Refresh reloads all three collections from their backends.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.Deals.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load deals: %w", err)
	}
	if err := a.Tasks.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	if err := a.Meetings.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load meetings: %w", err)
	}
	return nil
}

// Actor is the display name mutations are stamped with.
func (a *App) Actor() string {
	return a.Config.ActorName()
}

// Terminals returns the configured finished-status sets.
func (a *App) Terminals() views.Terminals {
	return a.Config.Terminal
}

// Now is the app clock.
func (a *App) Now() time.Time {
	return a.clock()
}

// Close flushes the mirror and logger.
func (a *App) Close() error {
	err := a.Mirror.Close()
	_ = a.Logger.Sync()
	return err
}

// eventLogger logs rollbacks at warn and everything else at debug.
func eventLogger(logger *zap.Logger) coordinator.Notifier {
	return coordinator.NotifierFunc(func(e coordinator.Event) {
		fields := []zap.Field{
			zap.String("collection", e.Collection),
			zap.String("op", string(e.Op)),
			zap.String("state", e.StateName),
			zap.Int64("id", e.ID),
			zap.String("token", e.Token),
		}
		if e.State == coordinator.RolledBack {
			logger.Warn("Mutation rolled back", append(fields, zap.String("error", e.Message))...)
			return
		}
		logger.Debug("Mutation event", fields...)
	})
}
