// ABOUTME: HTTP API server exposing the entity store under /api/v1
// ABOUTME: gin router with bearer auth, health, metrics and the websocket change feed
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/incial/crm/activity"
	"github.com/incial/crm/coordinator"
	"github.com/incial/crm/metrics"
	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators a Server needs. Store and JWTSecret are required.
type Deps struct {
	Store     *store.Store
	Activity  *activity.Log
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
	JWTSecret string
	Clock     func() time.Time
}

type Server struct {
	engine   *gin.Engine
	store    *store.Store
	activity *activity.Log
	hub      *Hub
	logger   *zap.Logger
	clock    func() time.Time
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("web: store is required")
	}
	if deps.JWTSecret == "" {
		return nil, errors.New("web: jwt secret is required (server.jwt_secret or INCIAL_JWT_SECRET)")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		store:    deps.Store,
		activity: deps.Activity,
		hub:      NewHub(deps.Activity, deps.Logger),
		logger:   deps.Logger,
		clock:    deps.Clock,
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(Recovery(deps.Logger))
	r.Use(Logger(deps.Logger))
	r.Use(Metrics(deps.Metrics))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	api.Use(Auth([]byte(deps.JWTSecret)))
	{
		deals := &resource[models.Deal, models.DealPatch]{
			server: s, name: models.CollectionDeals, listKey: "crmList",
			coll: deps.Store.Deals(), kind: coordinator.DealKind,
		}
		tasks := &resource[models.Task, models.TaskPatch]{
			server: s, name: models.CollectionTasks,
			coll: deps.Store.Tasks(), kind: coordinator.TaskKind,
		}
		meetings := &resource[models.Meeting, models.MeetingPatch]{
			server: s, name: models.CollectionMeetings,
			coll: deps.Store.Meetings(), kind: coordinator.MeetingKind,
		}
		deals.register(api.Group("/crm"))
		tasks.register(api.Group("/tasks"))
		meetings.register(api.Group("/meetings"))

		api.GET("/users/all", s.listUsers)
		api.GET("/activity", s.listActivity)
		api.GET("/events", s.hub.Serve)
	}

	s.engine = r
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the websocket feed.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.Users().List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// listActivity returns recent entries, newest first. ?limit= caps the count.
func (s *Server) listActivity(c *gin.Context) {
	if s.activity == nil {
		c.JSON(http.StatusOK, []activity.Entry{})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit < 0 {
			s.writeError(c, models.Validationf("invalid limit: %s", v))
			return
		}
	}
	entries := s.activity.Recent(limit)
	if entries == nil {
		entries = []activity.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}
