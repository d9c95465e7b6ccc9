package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/viniciuscosta/rinha-gateway/internal/ledger"
	"github.com/viniciuscosta/rinha-gateway/internal/queue"
	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
)

type paymentRequestBody struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	var body paymentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" || body.Amount < 0 {
		logger.Warn("malformed payment request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "invalid payment request",
		})
		return
	}

	switch s.queue.Try(queue.PaymentRequest{ID: body.ID, AmountCents: body.Amount}) {
	case queue.Accepted:
		s.ledger.Put(body.ID, ledger.Record{
			ID:           body.ID,
			AmountCents:  body.Amount,
			ProcessorTag: ledger.TagPending,
		})
		s.counters.IncrementSubmitted()
		logger.Info("payment accepted", "correlation_id", body.ID)
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"message": "Payment submitted for processing",
		})
	case queue.QueueFull:
		logger.Warn("queue full", "correlation_id", body.ID)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "queue full",
		})
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter := s.parseSummaryFilter(r)
	summary := s.ledger.Summarize(filter)

	writeJSON(w, http.StatusOK, map[string]int64{
		"total_amount_cents": summary.TotalAmountCents,
		"total_fee_cents":    summary.TotalFeeCents,
		"count":              summary.Count,
		"count_processed":    summary.CountProcessed,
		"count_failed":       summary.CountFailed,
	})
}

func (s *Server) parseSummaryFilter(r *http.Request) ledger.SummaryFilter {
	var filter ledger.SummaryFilter
	if de := r.URL.Query().Get("de"); de != "" {
		if t, err := time.Parse(time.RFC3339, de); err == nil {
			filter.From = t
		} else {
			s.logger.Debug("ignoring malformed summary filter", "param", "de", "error", err)
		}
	}
	if ate := r.URL.Query().Get("ate"); ate != "" {
		if t, err := time.Parse(time.RFC3339, ate); err == nil {
			filter.To = t
		} else {
			s.logger.Debug("ignoring malformed summary filter", "param", "ate", "error", err)
		}
	}
	return filter
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	defaultSnap := s.client.BreakerSnapshot(upstream.Default)
	fallbackSnap := s.client.BreakerSnapshot(upstream.Fallback)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_payments":     s.ledger.Len(),
		"total_amount_cents": s.totalAmountCents(),
		"total_fees_cents":   s.totalFeeCents(),
		"circuit_breakers": map[string]string{
			"default":  defaultSnap.State.String(),
			"fallback": fallbackSnap.State.String(),
		},
		"detailed_metrics": map[string]interface{}{
			"submitted":    s.counters.Submitted(),
			"processed":    s.counters.Processed(),
			"failed":       s.counters.Failed(),
			"success_rate": s.counters.SuccessRate(),
			"default": map[string]interface{}{
				"healthy":         s.client.Health(r.Context(), upstream.Default),
				"circuit_breaker": defaultSnap.State.String(),
			},
			"fallback": map[string]interface{}{
				"healthy":         s.client.Health(r.Context(), upstream.Fallback),
				"circuit_breaker": fallbackSnap.State.String(),
			},
		},
	})
}

// totalAmountCents sums every ledger record's amount, including
// pending ones, unlike Summarize which only folds in settled records.
func (s *Server) totalAmountCents() int64 {
	var total int64
	s.ledger.Scan(func(rec ledger.Record) {
		total += rec.AmountCents
	})
	return total
}

func (s *Server) totalFeeCents() int64 {
	var total int64
	s.ledger.Scan(func(rec ledger.Record) {
		total += rec.FeeCents
	})
	return total
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
