// Package worker implements the long-lived intake queue consumer. A
// single Worker is sufficient; running N of them only requires
// starting N goroutines against the same Queue, since the queue
// itself is the synchronization point.
package worker

import (
	"context"
	"log/slog"

	"github.com/viniciuscosta/rinha-gateway/internal/queue"
	"github.com/viniciuscosta/rinha-gateway/internal/router"
)

// Worker drains a Queue and hands each item to a Router.
type Worker struct {
	q      *queue.Queue
	r      *router.Router
	logger *slog.Logger
}

// New builds a Worker.
func New(q *queue.Queue, r *router.Router, logger *slog.Logger) *Worker {
	return &Worker{q: q, r: r, logger: logger}
}

// Run consumes the queue until it is closed. It is meant to be run in
// its own goroutine; it returns once Recv reports the queue closed.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		req, ok := w.q.Recv()
		if !ok {
			w.logger.Info("worker stopping: queue closed")
			return
		}
		w.r.Dispatch(ctx, req.ID, req.AmountCents)
	}
}
