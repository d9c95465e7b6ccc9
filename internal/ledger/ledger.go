// Package ledger holds the gateway's in-memory id -> PaymentRecord
// mapping, sharded so Scan blocks a concurrent Put only briefly, and
// only on the one shard it is copying.
package ledger

import (
	"hash/fnv"
	"sync"
	"time"
)

// ProcessorTag identifies how (or whether) a payment settled.
type ProcessorTag string

const (
	TagPending  ProcessorTag = "pending"
	TagDefault  ProcessorTag = "default"
	TagFallback ProcessorTag = "fallback"
	TagFailed   ProcessorTag = "failed"
)

// Record is the stored outcome for one payment id.
type Record struct {
	ID           string
	AmountCents  int64
	ProcessorTag ProcessorTag
	FeeCents     int64
	ProcessedAt  time.Time // zero value iff ProcessorTag == TagPending
}

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]Record
}

// Ledger is a sharded, concurrent id -> Record map.
type Ledger struct {
	shards [shardCount]*shard
}

// New returns an empty Ledger.
func New() *Ledger {
	l := &Ledger{}
	for i := range l.shards {
		l.shards[i] = &shard{records: make(map[string]Record)}
	}
	return l
}

func (l *Ledger) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return l.shards[h.Sum32()%shardCount]
}

// Put unconditionally inserts or overwrites the record for id.
func (l *Ledger) Put(id string, rec Record) {
	s := l.shardFor(id)
	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()
}

// Get returns a copy of the record for id, if present.
func (l *Ledger) Get(id string) (Record, bool) {
	s := l.shardFor(id)
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	return rec, ok
}

// Scan calls fn for a point-in-time snapshot of every record. Records
// inserted after Scan begins iterating a given shard may or may not be
// observed; records present before Scan begins are always observed.
// Readers never block writers across shards, and only briefly within
// the shard currently being copied.
func (l *Ledger) Scan(fn func(Record)) {
	for _, s := range l.shards {
		s.mu.RLock()
		snapshot := make([]Record, 0, len(s.records))
		for _, rec := range s.records {
			snapshot = append(snapshot, rec)
		}
		s.mu.RUnlock()
		for _, rec := range snapshot {
			fn(rec)
		}
	}
}

// Len returns the total number of records currently stored.
func (l *Ledger) Len() int {
	total := 0
	for _, s := range l.shards {
		s.mu.RLock()
		total += len(s.records)
		s.mu.RUnlock()
	}
	return total
}

// SummaryFilter optionally restricts Summarize to records whose
// ProcessedAt falls within [From, To]. A zero From/To means
// unbounded on that side. Records with no ProcessedAt (still
// pending) are never excluded by the filter.
type SummaryFilter struct {
	From time.Time
	To   time.Time
}

func (f SummaryFilter) matches(rec Record) bool {
	if rec.ProcessedAt.IsZero() {
		return true
	}
	if !f.From.IsZero() && rec.ProcessedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.ProcessedAt.After(f.To) {
		return false
	}
	return true
}

// Summary is the aggregate result computed by Summarize.
type Summary struct {
	TotalAmountCents int64
	TotalFeeCents    int64
	Count            int64
	CountProcessed   int64
	CountFailed      int64
}

// Summarize aggregates over every record matching filter. A pending
// record always counts toward Count but never toward the settled
// totals or CountProcessed/CountFailed, since it has no processed_at
// yet to fold in.
func (l *Ledger) Summarize(filter SummaryFilter) Summary {
	var s Summary
	l.Scan(func(rec Record) {
		if !filter.matches(rec) {
			return
		}
		s.Count++
		if rec.ProcessedAt.IsZero() {
			return
		}
		s.TotalAmountCents += rec.AmountCents
		s.TotalFeeCents += rec.FeeCents
		if rec.ProcessorTag == TagFailed {
			s.CountFailed++
		} else {
			s.CountProcessed++
		}
	})
	return s
}
