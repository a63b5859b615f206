package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
)

// Server is the HTTP front of the detection backend.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	store      graph.Store
	logger     *slog.Logger
}

// NewServer wires the handler and middleware chain around the injected
// dependencies.
func NewServer(cfg *config.Config, handler *Handler, store graph.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /health", s.handleReadiness)
	mux.HandleFunc("GET /ready", s.handleReadiness)
	mux.Handle("GET /metrics", MetricsHandler())
	handler.Routes(mux)

	middlewares := []Middleware{
		requestIDMiddleware,
		metricsMiddleware(mux),
		loggingMiddleware(logger),
		recoveryMiddleware(logger),
		securityHeadersMiddleware,
		rateLimitMiddleware(cfg.Security.RateLimit.RequestsPerSecond, cfg.Security.RateLimit.BurstSize),
		timeoutMiddleware(cfg.Server.WriteTimeout),
		authMiddleware([]byte(cfg.Security.JWTSecret)),
	}

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        chain(mux, middlewares...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s
}

// Run serves until the context is canceled or an interrupt arrives,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting API server",
		slog.String("addr", s.httpServer.Addr),
		slog.String("environment", s.cfg.Environment),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown() error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness reports ready only when the graph answers.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"graph":  "down",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"graph":  "up",
	})
}
