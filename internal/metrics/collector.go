package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
)

// Collector exports the gateway's counters and both breaker states as
// Prometheus metrics. It is additive: it backs GET /internal/prometheus
// alongside the JSON-bodied GET /metrics endpoint, not instead of it.
type Collector struct {
	counters *Counters
	client   *upstream.Client

	submittedDesc *prometheus.Desc
	processedDesc *prometheus.Desc
	failedDesc    *prometheus.Desc
	breakerState  *prometheus.Desc
	breakerFails  *prometheus.Desc
}

// NewCollector builds a Collector over counters and the upstream
// client's breakers.
func NewCollector(counters *Counters, client *upstream.Client) *Collector {
	return &Collector{
		counters: counters,
		client:   client,
		submittedDesc: prometheus.NewDesc(
			"gateway_payments_submitted_total", "Total payments submitted.", nil, nil),
		processedDesc: prometheus.NewDesc(
			"gateway_payments_processed_total", "Total payments processed by either upstream.", nil, nil),
		failedDesc: prometheus.NewDesc(
			"gateway_payments_failed_total", "Total payments that failed on both upstreams.", nil, nil),
		breakerState: prometheus.NewDesc(
			"gateway_circuit_breaker_state", "0=closed, 1=open, 2=half-open.", []string{"processor"}, nil),
		breakerFails: prometheus.NewDesc(
			"gateway_circuit_breaker_failure_count", "Current consecutive failure count.", []string{"processor"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submittedDesc
	ch <- c.processedDesc
	ch <- c.failedDesc
	ch <- c.breakerState
	ch <- c.breakerFails
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.submittedDesc, prometheus.CounterValue, float64(c.counters.Submitted()))
	ch <- prometheus.MustNewConstMetric(c.processedDesc, prometheus.CounterValue, float64(c.counters.Processed()))
	ch <- prometheus.MustNewConstMetric(c.failedDesc, prometheus.CounterValue, float64(c.counters.Failed()))

	for _, tag := range []upstream.Tag{upstream.Default, upstream.Fallback} {
		snap := c.client.BreakerSnapshot(tag)
		ch <- prometheus.MustNewConstMetric(c.breakerState, prometheus.GaugeValue, float64(snap.State), string(tag))
		ch <- prometheus.MustNewConstMetric(c.breakerFails, prometheus.GaugeValue, float64(snap.FailureCount), string(tag))
	}
}
