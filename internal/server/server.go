// Package server exposes the broker over a JSON REST surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/parceldeck/broker/internal/order"
	"github.com/parceldeck/broker/internal/quote"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the broker service.
type Server struct {
	port         int
	aggregator   *quote.Aggregator
	orchestrator *order.Orchestrator
	orders       storage.OrderStore
	wallets      storage.WalletStore
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
	validate     *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(
	cfg Config,
	aggregator *quote.Aggregator,
	orchestrator *order.Orchestrator,
	orders storage.OrderStore,
	wallets storage.WalletStore,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
) *Server {
	return &Server{
		port:         cfg.Port,
		aggregator:   aggregator,
		orchestrator: orchestrator,
		orders:       orders,
		wallets:      wallets,
		logger:       logger,
		metrics:      metrics,
		validate:     validator.New(),
	}
}

// Router builds the HTTP routes. Exposed separately from Run so tests can
// drive it with httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/quotes", s.handleGetQuotes)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Post("/orders/{id}/sync", s.handleSyncOrder)
		r.Post("/orders/{id}/cancel", s.handleCancelOrder)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
