// Package http exposes the store as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/store"
	"fintrack/internal/transfer"
)

// Flusher writes pending state changes to durable storage.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Deps are the collaborators a Server needs. Store is required; a nil
// Saver skips persistence, a nil Limiter disables rate limiting and a nil
// Previews gets a small private cache.
type Deps struct {
	Store    *store.Store
	Saver    Flusher
	Previews cache.Cache[[]transfer.ImportRow]
	Limiter  *ratelimit.Limiter
	Logger   *log.Logger

	// TrustedProxies extends the private networks allowed to set
	// X-Forwarded-For and X-Real-IP.
	TrustedProxies []string
}

type Server struct {
	http.Server
	store    *store.Store
	saver    Flusher
	previews cache.Cache[[]transfer.ImportRow]
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	previews := deps.Previews
	if previews == nil {
		previews = cache.NewLRUCache[[]transfer.ImportRow](8, 15*time.Minute)
	}

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		store:    deps.Store,
		saver:    deps.Saver,
		previews: previews,
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
	s.Handler = s.routes(deps.Limiter, deps.TrustedProxies)
	return s
}

func (s *Server) routes(limiter *ratelimit.Limiter, trustedProxies []string) http.Handler {
	detector := security.NewDetector()
	for _, cidr := range trustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", "error", err)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(trace.NewMiddleware(s.logger, detector.ClientIP).Middleware)
	r.Use(detector.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if limiter != nil {
		r.Use(limiter.Middleware(detector.ClientIP, writeRateLimited))
	}

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Patch("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Get("/{id}", s.handleGetAccount)
			r.Patch("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
		})
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/progress", s.handleBudgetProgress)
			r.Get("/{id}", s.handleGetBudget)
			r.Patch("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", s.handleListGoals)
			r.Post("/", s.handleCreateGoal)
			r.Get("/{id}", s.handleGetGoal)
			r.Patch("/{id}", s.handleUpdateGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlerts)
			r.Delete("/", s.handleClearAlerts)
			r.Post("/{id}/read", s.handleMarkAlertRead)
			r.Delete("/{id}", s.handleDeleteAlert)
		})

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/reports", s.handleReports)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Patch("/", s.handlePatchSession)
			r.Post("/theme", s.handleToggleTheme)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
		})

		r.Route("/export", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentExport))
			r.Get("/csv", s.handleExportCSV)
			r.Get("/json", s.handleExportJSON)
		})
		r.Route("/import", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentImport))
			r.Get("/template", handleImportTemplate)
			r.Post("/csv", s.handleImportCSV)
			r.Get("/csv/{id}", s.handleGetImportPreview)
			r.Post("/csv/{id}/commit", s.handleCommitImport)
			r.Delete("/csv/{id}", s.handleDiscardImport)
			r.Post("/json", s.handleImportJSON)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "No such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})
	return r
}

// Shutdown stops accepting requests and flushes pending changes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		s.persist(ctx)
	})
	return err
}

// persist flushes after a mutation. The change is already committed in
// memory, so a failed write is logged and retried by the autosave loop.
func (s *Server) persist(ctx context.Context) {
	if s.saver == nil {
		return
	}
	if err := s.saver.Flush(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to persist state", log.FieldError, err.Error())
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
