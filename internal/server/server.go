package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/fatiguetrack/internal/session"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *session.Manager
	metrics  *Metrics
	log      *slog.Logger
	apiKey   string
	whois    WhoIsClient
	mcp      http.Handler
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithTailscale identifies callers by their tailnet login instead of the
// local dev user.
func WithTailscale(wc WhoIsClient) Option {
	return func(s *Server) { s.whois = wc }
}

// WithMCP mounts an MCP streamable HTTP handler at /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// New creates a new Server with all routes configured.
func New(sessions *session.Manager, metrics *Metrics, apiKey string, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		metrics:  metrics,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		if s.whois != nil {
			r.Use(TailscaleIdentity(s.whois, s.log))
		} else {
			r.Use(DevIdentity)
		}

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/muscle-groups", s.handleMuscleGroups)
		r.Get("/api/v1/exercises", s.handleExercises)

		r.Route("/api/v1/sessions", func(r chi.Router) {
			// Reads need no key; tsnet handles access.
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Get("/{id}/levels", s.handleLevels)
			r.Get("/{id}/levels/{muscle}", s.handleLevel)
			r.Get("/{id}/recommendations", s.handleRecommendations)
			r.Get("/{id}/snapshot", s.handleSnapshot)
			r.Post("/{id}/exercise-fatigue", s.handleExerciseFatigue)

			r.Group(func(r chi.Router) {
				r.Use(APIKeyAuth(s.apiKey))
				r.Post("/", s.handleCreateSession)
				r.Delete("/{id}", s.handleCloseSession)
				r.Post("/{id}/sets", s.handleRecordSet)
				r.Post("/{id}/reset", s.handleReset)
			})
		})

		if s.mcp != nil {
			r.With(APIKeyAuth(s.apiKey)).Handle("/mcp", s.mcp)
		}
	})
}
