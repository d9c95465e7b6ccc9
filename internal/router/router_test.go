package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciuscosta/rinha-gateway/internal/ledger"
	"github.com/viniciuscosta/rinha-gateway/internal/metrics"
	"github.com/viniciuscosta/rinha-gateway/internal/upstream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchPrefersDefaultUpstream(t *testing.T) {
	defaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer defaultSrv.Close()
	fallbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("fallback must not be called when default succeeds")
	}))
	defer fallbackSrv.Close()

	client := upstream.New(defaultSrv.URL, fallbackSrv.URL, "tok", 5, time.Minute, testLogger())
	l := ledger.New()
	counters := metrics.New()
	r := New(client, l, counters, testLogger())

	r.Dispatch(context.Background(), "id-1", 1000)

	rec, ok := l.Get("id-1")
	require.True(t, ok)
	assert.Equal(t, ledger.TagDefault, rec.ProcessorTag)
	assert.EqualValues(t, 1, counters.Processed())
}

func TestDispatchFallsBackWhenDefaultFails(t *testing.T) {
	defaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer defaultSrv.Close()
	fallbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fallbackSrv.Close()

	client := upstream.New(defaultSrv.URL, fallbackSrv.URL, "tok", 5, time.Minute, testLogger())
	l := ledger.New()
	counters := metrics.New()
	r := New(client, l, counters, testLogger())

	r.Dispatch(context.Background(), "id-2", 1000)

	rec, ok := l.Get("id-2")
	require.True(t, ok)
	assert.Equal(t, ledger.TagFallback, rec.ProcessorTag)
	assert.EqualValues(t, 1, counters.Processed())
}

func TestDispatchMarksFailedWhenBothUpstreamsFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	client := upstream.New(failing.URL, failing.URL, "tok", 5, time.Minute, testLogger())
	l := ledger.New()
	counters := metrics.New()
	r := New(client, l, counters, testLogger())

	r.Dispatch(context.Background(), "id-3", 500)

	rec, ok := l.Get("id-3")
	require.True(t, ok)
	assert.Equal(t, ledger.TagFailed, rec.ProcessorTag)
	assert.EqualValues(t, 1, counters.Failed())
	assert.EqualValues(t, 0, counters.Processed())
}
