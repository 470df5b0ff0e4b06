// Package circuitbreaker stops calling a failing collaborator for a cool-down period.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/ratelimit"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are blocked
	StateOpen State = "open"
	// StateHalfOpen means the circuit is testing if the service has recovered
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when too many requests are made in half-open state
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	MaxFailures      int           // Consecutive failures that open the circuit
	Timeout          time.Duration // Time to wait before attempting half-open
	HalfOpenMaxCalls int           // Successful probes needed to close again
	Clock            ratelimit.Clock
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	name             string
	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int
	clock            ratelimit.Clock

	mu               sync.Mutex
	state            State
	consecutiveFails int
	halfOpenCalls    int
	halfOpenSuccess  int
	lastStateChange  time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	clock := config.Clock
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	maxFailures := config.MaxFailures
	if maxFailures < 1 {
		maxFailures = 1
	}
	halfOpen := config.HalfOpenMaxCalls
	if halfOpen < 1 {
		halfOpen = 1
	}

	return &CircuitBreaker{
		name:             config.Name,
		maxFailures:      maxFailures,
		timeout:          config.Timeout,
		halfOpenMaxCalls: halfOpen,
		clock:            clock,
		state:            StateClosed,
		lastStateChange:  clock.Now(),
	}
}

// Execute executes a function with circuit breaker protection.
// Errors for which counts returns false do not count as failures; nil counts every error.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error, counts func(error) bool) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)

	failed := err != nil && (counts == nil || counts(err))
	cb.afterRequest(failed)

	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.clock.Now().Sub(cb.lastStateChange) < cb.timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.name,
			"state":          StateHalfOpen,
		}).Info("Circuit breaker transitioning to half-open")
		fallthrough

	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMaxCalls {
			return ErrTooManyRequests
		}
		cb.halfOpenCalls++
		return nil

	default:
		return nil
	}
}

func (cb *CircuitBreaker) afterRequest(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !failed {
		cb.consecutiveFails = 0
		if cb.state == StateHalfOpen {
			cb.halfOpenSuccess++
			if cb.halfOpenSuccess >= cb.halfOpenMaxCalls {
				cb.setState(StateClosed)
				logging.WithField("circuitBreaker", cb.name).Info("Circuit breaker closed after successful recovery")
			}
		}
		return
	}

	cb.consecutiveFails++

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFails >= cb.maxFailures {
			cb.setState(StateOpen)
			logging.WithFields(map[string]interface{}{
				"circuitBreaker":   cb.name,
				"consecutiveFails": cb.consecutiveFails,
			}).Warn("Circuit breaker opened due to failures")
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
		logging.WithField("circuitBreaker", cb.name).Warn("Circuit breaker reopened after failure in half-open state")
	}
}

// setState must be called with the lock held
func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = cb.clock.Now()
	cb.halfOpenCalls = 0
	cb.halfOpenSuccess = 0
	if state == StateClosed {
		cb.consecutiveFails = 0
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
}
