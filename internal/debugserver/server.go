// Package debugserver exposes a read-only view of a running scheduler
// over HTTP, for local development. It never mutates the scheduler; it
// only reads whatever Snapshotter.Snapshot() currently returns, which is
// expected to be a point-in-time copy safe to share across goroutines.
// The scheduler's own dispatch loop must stay confined to one goroutine
// per the core's concurrency contract — this server is not that
// goroutine, and must not be handed a live *sched.Scheduler to poke at
// directly while a dispatch loop is running against it.
package debugserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/cosched/pkg/sched"
)

// Snapshotter is the read-only view a Server needs of a live scheduler.
type Snapshotter interface {
	Snapshot() []sched.TaskSnapshot
}

// Server is the scheduler debug/introspection HTTP API.
type Server struct {
	router      chi.Router
	logger      *slog.Logger
	snapshotter Snapshotter
	startTime   time.Time
}

// New creates a Server with all routes registered.
func New(snapshotter Snapshotter, logger *slog.Logger) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With("component", "debugserver"),
		snapshotter: snapshotter,
		startTime:   time.Now(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Get("/{handle}", s.handleGetTask)
	})
}
