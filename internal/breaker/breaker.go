// Package breaker implements a per-upstream circuit breaker state
// machine. It is hand-rolled rather than built on a third-party breaker
// library (sony/gobreaker, 1mb-dev/autobreaker — see DESIGN.md) because
// both only expose an Execute-style API, while MayExecute, RecordSuccess
// and RecordFailure need to be independent, separately callable and
// separately testable operations.
package breaker

import (
	"sync"
	"time"
)

// State is one of Closed, Open, HalfOpen.
type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of a breaker's state.
type Snapshot struct {
	State         State
	FailureCount  uint32
	LastFailureAt time.Time // zero value means never failed
}

// Breaker gates outbound calls to one upstream. All mutating
// operations serialize on a single mutex; the mutex is never held
// across I/O — callers invoke the outbound call between MayExecute
// and RecordSuccess/RecordFailure.
type Breaker struct {
	mu            sync.Mutex
	state         State
	failureCount  uint32
	lastFailureAt time.Time
	threshold     uint32
	timeout       time.Duration
	now           func() time.Time // overridable for tests
}

// New returns a Closed breaker that opens after threshold consecutive
// failures and waits timeout before allowing a half-open probe.
func New(threshold uint32, timeout time.Duration) *Breaker {
	if threshold == 0 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// MayExecute reports whether the next call should be attempted. In
// Closed it always returns true. In Open, if timeout has elapsed
// since the last recorded failure, it transitions to HalfOpen and
// returns true (the caller gets to make the probe call); otherwise it
// returns false. In HalfOpen it always returns true.
func (b *Breaker) MayExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.lastFailureAt.IsZero() {
			return false
		}
		if b.now().Sub(b.lastFailureAt) >= b.timeout {
			b.state = HalfOpen
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess resets the breaker to Closed with a zeroed failure
// count, from any prior state.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.lastFailureAt = time.Time{}
}

// RecordFailure accounts for a failed call. In Closed, failures
// accumulate and the breaker only trips to Open once failureCount
// reaches threshold. In HalfOpen, the chosen (stricter) rule applies:
// a single failed probe trips straight back to Open regardless of the
// cumulative count, since a half-open probe is a go/no-go trial, not
// another sample toward the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureAt = b.now()

	if b.state == HalfOpen {
		b.state = Open
		return
	}
	if b.failureCount >= b.threshold {
		b.state = Open
	}
}

// Snapshot returns a read-only copy of the breaker's current state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:         b.state,
		FailureCount:  b.failureCount,
		LastFailureAt: b.lastFailureAt,
	}
}
