// Package api exposes the gateway's HTTP surface: the call endpoint, the
// operation listing, the journal, health, and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/opgate/internal/disptable"
	"github.com/mattjoyce/opgate/internal/journal"
	"github.com/mattjoyce/opgate/internal/metrics"
)

// Dispatcher is the slice of the dispatch table the server consumes.
type Dispatcher interface {
	Lookup(opcode uint32) (*disptable.Op, bool)
	Ops() []*disptable.Op
	Len() int
	CheckAndCall(opcode uint32, owner any, args []byte) (int32, error)
	ReturnSlot(opcode uint32) ([]byte, error)
}

// JournalStore is the slice of the call journal the server consumes.
type JournalStore interface {
	Append(ctx context.Context, rec *journal.Record) error
	Recent(ctx context.Context, limit int) ([]journal.Record, error)
	Stats(ctx context.Context) ([]journal.OpStats, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
}

// Server is the HTTP API server. owner is the opaque service value passed
// through to every handler invocation.
//
// The dispatch table itself is not safe for concurrent use and each entry
// has a single scratch return slot, so dispatchMu serializes the
// call-and-snapshot section across requests.
type Server struct {
	config     Config
	table      Dispatcher
	journal    JournalStore
	owner      any
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
	dispatchMu sync.Mutex
}

// New creates a new API server instance.
func New(config Config, table Dispatcher, jstore JournalStore, owner any, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		table:     table,
		journal:   jstore,
		owner:     owner,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/call", s.handleCall)
		r.Get("/ops", s.handleListOps)
		r.Get("/ops/{opcode}", s.handleGetOp)
		r.Get("/journal", s.handleJournal)
	})

	return r
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
