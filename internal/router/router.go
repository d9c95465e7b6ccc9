// Package router implements the default-then-fallback dispatch policy:
// call the cheaper upstream, fall back to the second on failure, commit
// the outcome to the ledger and bump the matching counter exactly
// once. No retry within a single request's lifetime.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/viniciuscosta/rinha-gateway/internal/ledger"
	"github.com/viniciuscosta/rinha-gateway/internal/metrics"
	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
)

// Router owns the upstream client, ledger and counters it writes to
// after every dispatch.
type Router struct {
	client   *upstream.Client
	ledger   *ledger.Ledger
	counters *metrics.Counters
	logger   *slog.Logger
}

// New builds a Router.
func New(client *upstream.Client, l *ledger.Ledger, counters *metrics.Counters, logger *slog.Logger) *Router {
	return &Router{client: client, ledger: l, counters: counters, logger: logger}
}

// Dispatch tries the default upstream, then the fallback, and writes
// the ledger record + counter increment before returning. The ledger
// write happens-before the counter increment for this id.
func (r *Router) Dispatch(ctx context.Context, id string, amountCents int64) {
	outcome := r.client.Process(ctx, upstream.Default, id, amountCents)
	if outcome.Status != upstream.Ok {
		outcome = r.client.Process(ctx, upstream.Fallback, id, amountCents)
	}

	if outcome.Status == upstream.Ok {
		r.ledger.Put(id, ledger.Record{
			ID:           id,
			AmountCents:  amountCents,
			ProcessorTag: ledger.ProcessorTag(outcome.Processor),
			FeeCents:     outcome.FeeCents,
			ProcessedAt:  outcome.ProcessedAt,
		})
		r.counters.IncrementProcessed()
		r.logger.Info("payment processed", "correlation_id", id, "processor", outcome.Processor)
		return
	}

	r.ledger.Put(id, ledger.Record{
		ID:           id,
		AmountCents:  amountCents,
		ProcessorTag: ledger.TagFailed,
		FeeCents:     0,
		ProcessedAt:  time.Now(),
	})
	r.counters.IncrementFailed()
	r.logger.Warn("payment failed on both processors", "correlation_id", id)
}
