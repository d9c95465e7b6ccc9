// Command loadtest fires a bounded-concurrency burst of POST /payments
// requests against a running gateway, using the {"id","amount"} wire
// contract rather than the old {"correlationId","amount"} shape.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type paymentRequest struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

func main() {
	var (
		total       = flag.Int("n", 500, "total requests to send")
		concurrency = flag.Int("c", 20, "max in-flight requests")
		target      = flag.String("url", "http://localhost:9999/payments", "gateway payments endpoint")
		amount      = flag.Int64("amount", 1990, "amount in cents per payment")
	)
	flag.Parse()

	var success, timeout, failed int64

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 2 * time.Second}

	start := time.Now()
	for i := 0; i < *total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := paymentRequest{
				ID:     fmt.Sprintf("loadtest-%d-%d", start.UnixNano(), i),
				Amount: *amount,
			}
			body, _ := json.Marshal(payload)
			req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					atomic.AddInt64(&timeout, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			if resp.StatusCode == http.StatusAccepted {
				atomic.AddInt64(&success, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("accepted=%d timeout=%d failed=%d elapsed=%s\n", success, timeout, failed, elapsed)
}
