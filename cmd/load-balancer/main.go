// Command load-balancer round-robins HTTP requests across a set of
// gateway instances, for operators who run more than one per the
// Non-goal that the gateway itself does no cross-instance coordination.
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	currentBackend int32
	backendURLs    []*url.URL
)

func getNextBackend() *url.URL {
	next := atomic.AddInt32(&currentBackend, 1)
	return backendURLs[next%int32(len(backendURLs))]
}

// loadBackends reads LB_BACKENDS as a comma-separated list of base
// URLs, falling back to two local gateway instances on 9999/10000 if
// unset, falling back to two local gateway instances.
func loadBackends() []string {
	raw := os.Getenv("LB_BACKENDS")
	if raw == "" {
		return []string{"http://localhost:9999", "http://localhost:10000"}
	}
	var backends []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			backends = append(backends, b)
		}
	}
	return backends
}

func loadBalancerPort() int {
	if v := os.Getenv("LB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 9998
}

func main() {
	for _, b := range loadBackends() {
		u, err := url.Parse(b)
		if err != nil {
			log.Fatalf("failed to parse backend url %q: %v", b, err)
		}
		backendURLs = append(backendURLs, u)
	}

	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			backend := getNextBackend()
			req.URL.Scheme = backend.Scheme
			req.URL.Host = backend.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("proxy error: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Service Unavailable"))
		},
	}

	addr := ":" + strconv.Itoa(loadBalancerPort())
	server := &http.Server{
		Addr:         addr,
		Handler:      proxy,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("load balancer starting on %s, backends=%v", addr, backendURLs)
	log.Fatal(server.ListenAndServe())
}
