// Package metrics holds the gateway's lock-free counters and exposes
// them (plus circuit breaker state) both as the plain JSON snapshot
// GET /metrics needs and, additively, as real Prometheus gauges/counters.
package metrics

import "sync/atomic"

// Counters is a set of monotonically non-decreasing counters, safe for
// unsynchronized concurrent Increment/Load.
type Counters struct {
	submitted uint64
	processed uint64
	failed    uint64
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

func (c *Counters) IncrementSubmitted() { atomic.AddUint64(&c.submitted, 1) }
func (c *Counters) IncrementProcessed() { atomic.AddUint64(&c.processed, 1) }
func (c *Counters) IncrementFailed()    { atomic.AddUint64(&c.failed, 1) }

func (c *Counters) Submitted() uint64 { return atomic.LoadUint64(&c.submitted) }
func (c *Counters) Processed() uint64 { return atomic.LoadUint64(&c.processed) }
func (c *Counters) Failed() uint64    { return atomic.LoadUint64(&c.failed) }

// SuccessRate returns processed / submitted as a percentage, 0 if
// nothing has been submitted yet.
func (c *Counters) SuccessRate() float64 {
	submitted := c.Submitted()
	if submitted == 0 {
		return 0
	}
	return float64(c.Processed()) / float64(submitted) * 100
}
