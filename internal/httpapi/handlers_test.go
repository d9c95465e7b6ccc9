package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciuscosta/rinha-gateway/internal/ledger"
	"github.com/viniciuscosta/rinha-gateway/internal/metrics"
	"github.com/viniciuscosta/rinha-gateway/internal/queue"
	"github.com/viniciuscosta/rinha-gateway/internal/router"
	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
	"github.com/viniciuscosta/rinha-gateway/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a full in-memory stack (queue, router, worker,
// client) the way cmd/gateway does, pointed at a fake upstream, and
// runs the worker in the background for the duration of the test.
func newTestServer(t *testing.T, defaultURL, fallbackURL string) (*Server, *ledger.Ledger, *metrics.Counters) {
	t.Helper()
	q := queue.New(16)
	l := ledger.New()
	counters := metrics.New()
	client := upstream.New(defaultURL, fallbackURL, "tok", 3, time.Minute, testLogger())
	r := router.New(client, l, counters, testLogger())
	w := worker.New(q, r, testLogger())

	go w.Run(t.Context())
	t.Cleanup(q.Close)

	registry := prometheus.NewRegistry()
	s := New(":0", q, l, counters, client, registry, testLogger())
	return s, l, counters
}

func postPayment(t *testing.T, s *Server, id string, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"id": id, "amount": amount})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func waitForLedgerSettled(t *testing.T, l *ledger.Ledger, id string) ledger.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := l.Get(id); ok && rec.ProcessorTag != ledger.TagPending {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("payment %s never settled", id)
	return ledger.Record{}
}

func TestHappyPathProcessesOnDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, l, counters := newTestServer(t, srv.URL, srv.URL)

	rec := postPayment(t, s, "happy-1", 1000)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	settled := waitForLedgerSettled(t, l, "happy-1")
	assert.Equal(t, ledger.TagDefault, settled.ProcessorTag)
	assert.EqualValues(t, 1, counters.Processed())
}

func TestDefaultDownFallsBackToFallback(t *testing.T) {
	defaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer defaultSrv.Close()
	fallbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fallbackSrv.Close()

	s, l, _ := newTestServer(t, defaultSrv.URL, fallbackSrv.URL)

	rec := postPayment(t, s, "fallback-1", 500)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	settled := waitForLedgerSettled(t, l, "fallback-1")
	assert.Equal(t, ledger.TagFallback, settled.ProcessorTag)
}

func TestBreakerOpensAfterRepeatedFailuresAndSkipsCalls(t *testing.T) {
	var defaultCalls int
	defaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defaultCalls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer defaultSrv.Close()
	fallbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fallbackSrv.Close()

	s, l, _ := newTestServer(t, defaultSrv.URL, fallbackSrv.URL)

	for i := 0; i < 3; i++ {
		id := "trip-" + string(rune('a'+i))
		postPayment(t, s, id, 100)
		waitForLedgerSettled(t, l, id)
	}
	assert.Equal(t, 3, defaultCalls, "three failures must trip the default breaker at threshold 3")

	postPayment(t, s, "trip-after", 100)
	settled := waitForLedgerSettled(t, l, "trip-after")
	assert.Equal(t, ledger.TagFallback, settled.ProcessorTag)
	assert.Equal(t, 3, defaultCalls, "once open, the breaker must skip default without another network call")
}

func TestQueueFullReturns503(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	q := queue.New(2)
	l := ledger.New()
	counters := metrics.New()
	client := upstream.New(srv.URL, srv.URL, "tok", 5, time.Minute, testLogger())
	registry := prometheus.NewRegistry()
	s := New(":0", q, l, counters, client, registry, testLogger())
	t.Cleanup(q.Close)

	// No worker draining: fill capacity then overflow.
	ok1 := postPayment(t, s, "q-1", 100)
	ok2 := postPayment(t, s, "q-2", 100)
	full := postPayment(t, s, "q-3", 100)

	assert.Equal(t, http.StatusAccepted, ok1.Code)
	assert.Equal(t, http.StatusAccepted, ok2.Code)
	assert.Equal(t, http.StatusServiceUnavailable, full.Code)

	_, ok1Present := l.Get("q-1")
	_, ok2Present := l.Get("q-2")
	_, ok3Present := l.Get("q-3")
	assert.True(t, ok1Present)
	assert.True(t, ok2Present)
	assert.False(t, ok3Present, "a request rejected with 503 must leave no ledger entry")
}

func TestDuplicateIDOverwritesLedgerRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, l, _ := newTestServer(t, srv.URL, srv.URL)

	postPayment(t, s, "dup-1", 100)
	waitForLedgerSettled(t, l, "dup-1")

	rec := postPayment(t, s, "dup-1", 999)
	assert.Equal(t, http.StatusAccepted, rec.Code, "resubmitting an id is accepted, not rejected as a conflict")

	stored, ok := l.Get("dup-1")
	require.True(t, ok)
	assert.EqualValues(t, 999, stored.AmountCents, "the second submission overwrites the first record")
}

func TestSummaryReflectsProcessedPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, l, _ := newTestServer(t, srv.URL, srv.URL)
	postPayment(t, s, "sum-1", 2000)
	waitForLedgerSettled(t, l, "sum-1")

	req := httptest.NewRequest(http.MethodGet, "/payments-summary", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["count_processed"])
	assert.EqualValues(t, 2000, body["total_amount_cents"])
	assert.EqualValues(t, 100, body["total_fee_cents"])
}

func TestMalformedPaymentBodyReturns400(t *testing.T) {
	s, _, _ := newTestServer(t, "http://unused", "http://unused")

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpointAlwaysOK(t *testing.T) {
	s, _, _ := newTestServer(t, "http://unused", "http://unused")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
