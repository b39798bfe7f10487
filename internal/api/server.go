// Package api serves BuildFast's JSON and streaming chat endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/session"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
)

// Options bundles the server's dependencies.
type Options struct {
	Config   model.ServerConfig
	Store    store.Store
	Steps    *steps.Service
	Engine   *ai.Engine
	Sessions *session.Provider

	// MCP, when set, is mounted at /api/mcp. It resolves the session
	// itself so that unauthenticated tool calls get tool-level errors.
	MCP http.Handler

	Logger *slog.Logger
}

// Server routes HTTP requests to the application services.
type Server struct {
	cfg      model.ServerConfig
	store    store.Store
	steps    *steps.Service
	engine   *ai.Engine
	sessions *session.Provider
	mcp      http.Handler
	limiter  *userLimiter
	log      *slog.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      opts.Config,
		store:    opts.Store,
		steps:    opts.Steps,
		engine:   opts.Engine,
		sessions: opts.Sessions,
		mcp:      opts.MCP,
		limiter:  newUserLimiter(opts.Config.ChatRatePerMin),
		log:      log,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(slogFormatter{log: s.log}))
	r.Use(middleware.Recoverer)
	r.Use(observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	timeout := time.Duration(s.cfg.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	r.Route("/api", func(r chi.Router) {
		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.Require)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(timeout))

				r.Post("/new", s.handleCreateProject)
				r.Get("/projects", s.handleListProjects)
				r.Get("/projects/{id}", s.handleGetProject)
				r.Put("/projects/{id}", s.handleUpdateProject)

				r.Get("/ideas", s.handleListIdeas)
				r.Post("/ideas", s.handleCreateIdea)
				r.Patch("/ideas/{id}", s.handleUpdateIdea)

				r.Get("/steps", s.handleListSections)
				r.Post("/steps", s.handleCreateSection)
				r.Patch("/step-sections/{id}", s.handleUpdateSection)

				r.Get("/step-todos", s.handleListTodos)
				r.Post("/step-todos", s.handleCreateTodo)
				r.Patch("/step-todos/{id}", s.handleUpdateTodo)
				r.Delete("/step-todos/{id}", s.handleDeleteTodo)

				r.Get("/step-sections/{id}/chat/history", s.handleSectionHistory)
				r.Get("/steps/chat/history", s.handlePlanningHistory)
			})

			// Streaming replies outlive the request timeout; the client
			// disconnecting is what cancels them.
			r.Group(func(r chi.Router) {
				r.Use(s.rateLimit)

				r.Post("/step-sections/{id}/chat", s.handleSectionChat)
				r.Post("/steps/chat", s.handlePlanningChat)
				r.Post("/test-chat", s.handleTestChat)
			})
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info("serving http", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
