// Package config parses the gateway's startup tunables from the
// environment. Nothing here is re-read after startup: a Config is
// built once in main and shared read-only.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the gateway reads at startup. Malformed
// numeric values fall back silently to their documented default rather
// than failing startup.
type Config struct {
	Port                    uint16
	Token                   string
	DefaultProcessorURL     string
	FallbackProcessorURL    string
	BatchSize               int
	QueueBufferSize         int
	CircuitBreakerThreshold uint32
	CircuitBreakerTimeout   time.Duration
	LogFormat               string
}

// FromEnv builds a Config from the process environment, falling back
// to defaults for anything missing or unparsable.
func FromEnv() Config {
	return Config{
		Port:                    uint16(getInt("PORT", 9999)),
		Token:                   getString("TOKEN", "123"),
		DefaultProcessorURL:     getString("DEFAULT_PROCESSOR_URL", "http://payment-processor-default:8080"),
		FallbackProcessorURL:    getString("FALLBACK_PROCESSOR_URL", "http://payment-processor-fallback:8080"),
		BatchSize:               getInt("BATCH_SIZE", 50),
		QueueBufferSize:         getInt("QUEUE_BUFFER_SIZE", 1000),
		CircuitBreakerThreshold: uint32(getInt("CIRCUIT_BREAKER_THRESHOLD", 5)),
		CircuitBreakerTimeout:   time.Duration(getInt("CIRCUIT_BREAKER_TIMEOUT", 30)) * time.Second,
		LogFormat:               getString("LOG_FORMAT", "json"),
	}
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
