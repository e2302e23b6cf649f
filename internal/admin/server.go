// Package admin exposes a read-only HTTP surface over the S1AP
// engine's live state, adapted from the teacher's SMF admin server
// (nf/smf/internal/server/server.go): chi router, the same middleware
// stack, and JSON handlers. It calls the same RLock-guarded registry
// and store accessors the engine uses internally, so it is safe to
// call from an HTTP handler goroutine concurrently with live traffic
// (SPEC_FULL.md section 10).
package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/common/metrics"
	"github.com/your-org/mme-s1ap-core/internal/config"
	"github.com/your-org/mme-s1ap-core/internal/esm"
	"github.com/your-org/mme-s1ap-core/internal/s1ap"
)

// Server is the MME core's admin HTTP surface.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
	logger *zap.Logger

	engine *s1ap.Engine
	esm    *esm.Table
}

// NewServer creates an admin HTTP server bound to the engine and ESM
// table it reports on.
func NewServer(cfg *config.Config, engine *s1ap.Engine, esmTable *esm.Table, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logger,
		engine: engine,
		esm:    esmTable,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.SBI.IPv4, cfg.SBI.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealthCheck)
	s.router.Get("/ready", s.handleReadinessCheck)

	s.router.Route("/admin", func(r chi.Router) {
		r.Get("/enbs", s.handleListENBs)
		r.Get("/ues", s.handleListUEs)
		r.Get("/ues/{mmeUeId}", s.handleGetUE)
		r.Get("/stats", s.handleGetStats)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting admin HTTP server", zap.String("address", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping admin HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.logger.Info("admin HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", duration),
		)
		metrics.RecordHTTPRequest(r.Method, r.URL.Path, fmt.Sprintf("%d", ww.Status()), duration.Seconds())
	})
}
