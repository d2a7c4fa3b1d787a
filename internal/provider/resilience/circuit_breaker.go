// Package resilience wraps outbound provider HTTP calls with timeouts, an
// optional retry policy, an optional circuit breaker, and health tracking.
//
// The dashboard attempts every provider call exactly once per user action, so
// both retries and tripping are off unless a deployment enables them.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// ReadyToTrip decides when to open. Nil means NeverTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// PassiveBreakerConfig counts outcomes for health reporting but never opens.
func PassiveBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: NeverTrip,
	}
}

// TrippingBreakerConfig opens after sustained failures. Deployments opt into it
// with PROVIDER_BREAKER_ENABLED=true.
func TrippingBreakerConfig(name string) CircuitBreakerConfig {
	cfg := PassiveBreakerConfig(name)
	cfg.ReadyToTrip = ConsecutiveFailures(5)
	return cfg
}

// NeverTrip keeps the breaker closed.
func NeverTrip(gobreaker.Counts) bool { return false }

// ConsecutiveFailures trips after n failures in a row.
func ConsecutiveFailures(n uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= n
	}
}

// NewCircuitBreaker creates a circuit breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = NeverTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
