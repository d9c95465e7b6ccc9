// Package httpapi implements the gateway's HTTP surface: accepting
// payments without blocking on upstream dispatch, serving the ledger
// summary, the metrics snapshot, and a liveness probe.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viniciuscosta/rinha-gateway/internal/ledger"
	"github.com/viniciuscosta/rinha-gateway/internal/metrics"
	"github.com/viniciuscosta/rinha-gateway/internal/queue"
	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
)

// Server wires the router and its dependencies to a *mux.Router.
type Server struct {
	queue      *queue.Queue
	ledger     *ledger.Ledger
	counters   *metrics.Counters
	client     *upstream.Client
	logger     *slog.Logger
	httpServer *http.Server
}

// New builds a Server bound to addr. Call Handler to get the
// http.Handler, or Run to start and block.
func New(addr string, q *queue.Queue, l *ledger.Ledger, counters *metrics.Counters, client *upstream.Client, registry *prometheus.Registry, logger *slog.Logger) *Server {
	s := &Server{
		queue:    q,
		ledger:   l,
		counters: counters,
		client:   client,
		logger:   logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/payments", s.handlePayments).Methods(http.MethodPost)
	router.HandleFunc("/payments-summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	if registry != nil {
		router.Handle("/internal/prometheus", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run starts the HTTP server and blocks until it returns an error
// (including http.ErrServerClosed on graceful Shutdown).
func (s *Server) Run() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server: it stops accepting new
// connections and waits for in-flight handlers to return.
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown(context.Background())
}
