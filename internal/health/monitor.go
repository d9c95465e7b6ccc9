// Package health implements the background processor-reachability
// probe. It holds no shared state beyond its own last-known-status
// cache, used only to log a warning on reachability change; it never
// touches a CircuitBreaker.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
)

const probeInterval = 30 * time.Second

// Monitor periodically probes both upstreams and logs their
// reachability, including a warn line the moment reachability flips.
type Monitor struct {
	client *upstream.Client
	logger *slog.Logger

	mu   sync.Mutex
	last map[upstream.Tag]bool
}

// New builds a Monitor.
func New(client *upstream.Client, logger *slog.Logger) *Monitor {
	return &Monitor{
		client: client,
		logger: logger,
		last:   make(map[upstream.Tag]bool),
	}
}

// Run ticks every 30s until ctx is cancelled, probing both upstreams
// each tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	m.probeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeOnce(ctx)
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context) {
	defaultHealthy := m.client.Health(ctx, upstream.Default)
	fallbackHealthy := m.client.Health(ctx, upstream.Fallback)

	m.logger.Info("processor health",
		"default", healthString(defaultHealthy),
		"fallback", healthString(fallbackHealthy))

	m.noteChange(upstream.Default, defaultHealthy)
	m.noteChange(upstream.Fallback, fallbackHealthy)
}

func (m *Monitor) noteChange(tag upstream.Tag, healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.last[tag]; ok && prev != healthy {
		m.logger.Warn("processor reachability changed", "processor", tag, "healthy", healthy)
	}
	m.last[tag] = healthy
}

func healthString(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}
