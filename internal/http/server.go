// Package http serves the JSON API: expense and category CRUD, CSV import,
// and the overview dashboard endpoints.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"spendtrack/internal/cache"
	"spendtrack/internal/reports"
	"spendtrack/internal/services"
)

const defaultMaxUploadBytes = 10 << 20 // 10 MiB

type Options struct {
	Addr           string
	Expenses       *services.ExpenseService
	Imports        *services.ImportService
	Reports        *reports.Engine
	AllowedOrigins []string
	MaxUploadBytes int64
	UploadDir      string
}

type Server struct {
	http.Server

	expenses *services.ExpenseService
	imports  *services.ImportService
	reports  *reports.Engine

	rateLimiter    *rateLimiter
	overviewCache  *cache.LRUCache[reports.Overview]
	maxUploadBytes int64
	uploadDir      string

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{
		expenses:         opts.Expenses,
		imports:          opts.Imports,
		reports:          opts.Reports,
		rateLimiter:      newRateLimiter(),
		overviewCache:    cache.NewLRUCache[reports.Overview](500, 2*time.Minute),
		maxUploadBytes:   opts.MaxUploadBytes,
		uploadDir:        opts.UploadDir,
		stopCacheCleanup: make(chan struct{}),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.startCacheCleanup()
	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestLogger)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(api chi.Router) {
		api.Use(requireUser)
		api.Use(s.limitWrites)

		api.Route("/expenses", func(ex chi.Router) {
			ex.Post("/", s.handleCreateExpense)
			ex.Get("/", s.handleListExpenses)
			ex.Get("/{id}", s.handleGetExpense)
			ex.Patch("/{id}", s.handleUpdateExpense)
			ex.Delete("/{id}", s.handleDeleteExpense)
		})

		api.Route("/categories", func(cat chi.Router) {
			cat.Get("/", s.handleListCategories)
			cat.Post("/", s.handleCreateCategory)
			cat.Post("/starter", s.handleEnsureStarterCategories)
			cat.Put("/{id}", s.handleRenameCategory)
			cat.Delete("/{id}", s.handleDeleteCategory)
		})

		api.Post("/import", s.handleImport)

		api.Route("/overview", func(ov chi.Router) {
			ov.Get("/", s.handleOverview)
			ov.Get("/count", s.handleExpenseCount)
			ov.Get("/total", s.handleMonthToDateTotal)
			ov.Get("/average-daily", s.handleAverageDaily)
			ov.Get("/top-category", s.handleTopCategory)
		})
	})

	return r
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.overviewCache.CleanExpired(); n > 0 {
				slog.Debug("Overview cache cleanup", "entries_removed", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateOverview drops a user's cached overview after any write that
// changes their expenses.
func (s *Server) invalidateOverview(id int64) {
	s.overviewCache.Delete(overviewCacheKey(id))
}

func overviewCacheKey(userID int64) string {
	return fmt.Sprintf("overview:%d", userID)
}

// Shutdown stops the cleanup goroutines along with the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
