package graph

import (
	"sync"
	"time"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker stops hammering the graph database after consecutive
// failures. After resetTimeout one probe request is let through; its
// outcome closes or re-opens the breaker.
type circuitBreaker struct {
	mu           sync.Mutex
	state        breakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time
}

func newCircuitBreaker(maxFailures int, resetTimeout time.Duration) *circuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &circuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Allow reports whether a request may proceed.
func (cb *circuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerOpen:
		if time.Since(cb.openedAt) >= cb.resetTimeout {
			cb.state = breakerHalfOpen
			return nil
		}
		return errors.NewExternalError("graph", "graph circuit breaker open")
	default:
		return nil
	}
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = breakerClosed
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == breakerHalfOpen {
		cb.state = breakerOpen
		cb.openedAt = time.Now()
		return
	}

	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.state = breakerOpen
		cb.openedAt = time.Now()
	}
}
