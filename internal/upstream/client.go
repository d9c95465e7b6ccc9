// Package upstream implements the gateway's outbound HTTP calls to a
// payment processor, gated by a per-tag CircuitBreaker. One Client
// serves both the "default" and "fallback" tags, holding a breaker
// for each.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/viniciuscosta/rinha-gateway/internal/breaker"
)

// Tag identifies which upstream processor to use.
type Tag string

const (
	Default  Tag = "default"
	Fallback Tag = "fallback"
)

const (
	paymentsTimeout = 5 * time.Second
	healthTimeout   = 10 * time.Second
)

// Outcome is the result of Process.
type Outcome struct {
	Status      Status
	Processor   Tag
	FeeCents    int64
	ProcessedAt time.Time
}

// Status is the tri-state result of a dispatch attempt.
type Status int

const (
	Ok Status = iota
	Failed
	Skipped // breaker denied execution; no HTTP call was made
)

// Client issues POST /payments and GET /health to the two configured
// upstream URLs, recording success/failure on the matching breaker.
type Client struct {
	httpClient *http.Client
	token      string
	urls       map[Tag]string
	breakers   map[Tag]*breaker.Breaker
	logger     *slog.Logger
}

// New builds a Client. threshold/timeout configure both breakers
// identically, applying the same CIRCUIT_BREAKER_THRESHOLD /
// CIRCUIT_BREAKER_TIMEOUT pair to each upstream.
func New(defaultURL, fallbackURL, token string, threshold uint32, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		token:      token,
		urls: map[Tag]string{
			Default:  defaultURL,
			Fallback: fallbackURL,
		},
		breakers: map[Tag]*breaker.Breaker{
			Default:  breaker.New(threshold, timeout),
			Fallback: breaker.New(threshold, timeout),
		},
		logger: logger,
	}
}

type processorPayload struct {
	CorrelationID string `json:"correlationId"`
	Amount        int64  `json:"amount"`
	RequestedAt   int64  `json:"requestedAt"`
}

// Process attempts a payment dispatch against tag. If the breaker for
// tag denies execution, it returns Skipped without making any HTTP
// call. Otherwise it issues the POST, recording success/failure on
// the breaker, and never retries within this call.
func (c *Client) Process(ctx context.Context, tag Tag, id string, amountCents int64) Outcome {
	b := c.breakers[tag]
	if !b.MayExecute() {
		return Outcome{Status: Skipped, Processor: tag}
	}

	url := c.urls[tag]
	payload := processorPayload{
		CorrelationID: id,
		Amount:        amountCents,
		RequestedAt:   time.Now().UnixMilli(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		b.RecordFailure()
		return Outcome{Status: Failed, Processor: tag}
	}

	reqCtx, cancel := context.WithTimeout(ctx, paymentsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url+"/payments", bytes.NewReader(body))
	if err != nil {
		b.RecordFailure()
		return Outcome{Status: Failed, Processor: tag}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rinha-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		b.RecordFailure()
		c.logger.Warn("processor call failed", "processor", tag, "correlation_id", id, "error", err)
		return Outcome{Status: Failed, Processor: tag}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.RecordFailure()
		c.logger.Warn("processor returned non-2xx", "processor", tag, "correlation_id", id, "status", resp.StatusCode)
		return Outcome{Status: Failed, Processor: tag}
	}

	b.RecordSuccess()
	return Outcome{
		Status:      Ok,
		Processor:   tag,
		FeeCents:    amountCents / 20,
		ProcessedAt: time.Now(),
	}
}

// Health reports whether tag's upstream answers GET /health with a
// 2xx. It does not touch the breaker.
func (c *Client) Health(ctx context.Context, tag Tag) bool {
	url := c.urls[tag]
	reqCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// BreakerSnapshot returns a read-only copy of tag's breaker state.
func (c *Client) BreakerSnapshot(tag Tag) breaker.Snapshot {
	return c.breakers[tag].Snapshot()
}

// String renders an Outcome's status for logging.
func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
