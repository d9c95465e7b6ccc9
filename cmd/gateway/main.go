// Command gateway runs the payment intake and dispatch gateway: it
// accepts POST /payments over HTTP, queues each request, and dispatches
// it asynchronously to whichever upstream processor the breakers and
// routing policy allow, exactly once.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/viniciuscosta/rinha-gateway/internal/config"
	"github.com/viniciuscosta/rinha-gateway/internal/health"
	"github.com/viniciuscosta/rinha-gateway/internal/httpapi"
	"github.com/viniciuscosta/rinha-gateway/internal/ledger"
	"github.com/viniciuscosta/rinha-gateway/internal/metrics"
	"github.com/viniciuscosta/rinha-gateway/internal/queue"
	"github.com/viniciuscosta/rinha-gateway/internal/router"
	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
	"github.com/viniciuscosta/rinha-gateway/internal/worker"
)

func newLogger(format string) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting rinha gateway", "port", cfg.Port)

	paymentLedger := ledger.New()
	counters := metrics.New()
	intakeQueue := queue.New(cfg.QueueBufferSize)

	client := upstream.New(
		cfg.DefaultProcessorURL,
		cfg.FallbackProcessorURL,
		cfg.Token,
		cfg.CircuitBreakerThreshold,
		cfg.CircuitBreakerTimeout,
		logger,
	)

	dispatcher := router.New(client, paymentLedger, counters, logger)
	w := worker.New(intakeQueue, dispatcher, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(counters, client))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	monitor := health.New(client, logger)
	go monitor.Run(ctx)

	server := httpapi.New(
		fmt.Sprintf(":%d", cfg.Port),
		intakeQueue,
		paymentLedger,
		counters,
		client,
		registry,
		logger,
	)

	serverErrs := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil && err != http.ErrServerClosed {
			serverErrs <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		logger.Error("http server failed", "error", err)
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
	}

	cancel()
	if err := server.Shutdown(); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	intakeQueue.Close()
}
