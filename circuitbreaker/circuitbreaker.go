package circuitbreaker

import (
	"errors"
	"lyrics-bridge-go/logcolors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, calls allowed
	StateOpen                  // Upstream considered down, calls blocked
	StateHalfOpen              // A single probe call is in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration
type Config struct {
	Name            string        // Name for logging
	Threshold       int           // Consecutive failures before opening
	Cooldown        time.Duration // How long to stay open before probing
	HalfOpenTimeout time.Duration // How long a probe may take before the circuit reopens

	// OnStateChange, when set, is called after every transition.
	// It runs with the breaker lock released.
	OnStateChange func(name string, from, to State)
}

// Status is a point-in-time view of a breaker, shaped for JSON output.
type Status struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Failures       int    `json:"failures"`
	Threshold      int    `json:"threshold"`
	LastFailure    string `json:"last_failure,omitempty"`
	RetryInSeconds int    `json:"retry_in_seconds"`
}

// CircuitBreaker stops calling an upstream after repeated failures and
// lets one probe through once the cooldown has passed.
type CircuitBreaker struct {
	name            string
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	onStateChange   func(name string, from, to State)

	mu            sync.RWMutex
	state         State
	failures      int
	openedAt      time.Time
	lastFailure   time.Time
	halfOpenStart time.Time
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		onStateChange:   cfg.OnStateChange,
		state:           StateClosed,
	}
}

// Name returns the breaker name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has passed moves to half-open and admits exactly one probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	allowed, from, to := cb.allowLocked()
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
	return allowed
}

func (cb *CircuitBreaker) allowLocked() (bool, State, State) {
	from := cb.state
	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) < cb.cooldown {
			return false, from, from
		}
		cb.state = StateHalfOpen
		cb.halfOpenStart = time.Now()
		log.Infof("%s Cooldown passed, probing upstream", logcolors.CircuitBreakerPrefix(cb.name))
		return true, from, cb.state

	case StateHalfOpen:
		if time.Since(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.state = StateOpen
			cb.openedAt = time.Now()
			log.Warnf("%s Probe timed out, reopening", logcolors.CircuitBreakerPrefix(cb.name))
			return false, from, cb.state
		}
		return false, from, from

	default:
		return true, from, from
	}
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	from := cb.state
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		log.Infof("%s Probe succeeded, closing", logcolors.CircuitBreakerPrefix(cb.name))
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

// RecordFailure records a failed call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	from := cb.state
	cb.failures++
	cb.lastFailure = time.Now()

	switch {
	case cb.state == StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.lastFailure
		log.Warnf("%s Probe failed, reopening", logcolors.CircuitBreakerPrefix(cb.name))
	case cb.state == StateClosed && cb.failures >= cb.threshold:
		cb.state = StateOpen
		cb.openedAt = cb.lastFailure
		log.Warnf("%s %d consecutive failures, opening for %v",
			logcolors.CircuitBreakerPrefix(cb.name), cb.failures, cb.cooldown)
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

// Execute runs fn if the breaker allows it and records the outcome.
// An error counts as a failure unless isFailure is non-nil and rejects it.
func (cb *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return err
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Threshold returns the configured failure threshold
func (cb *CircuitBreaker) Threshold() int {
	return cb.threshold
}

// Reset manually closes the breaker and clears its history
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.openedAt = time.Time{}
	cb.lastFailure = time.Time{}
	cb.halfOpenStart = time.Time{}
	cb.mu.Unlock()

	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}

// TimeUntilRetry returns the remaining cooldown while open, the remaining
// probe window while half-open, and 0 while closed.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.timeUntilRetryLocked()
}

func (cb *CircuitBreaker) timeUntilRetryLocked() time.Duration {
	var remaining time.Duration
	switch cb.state {
	case StateOpen:
		remaining = cb.cooldown - time.Since(cb.openedAt)
	case StateHalfOpen:
		remaining = cb.halfOpenTimeout - time.Since(cb.halfOpenStart)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status returns a snapshot of the breaker for status endpoints
func (cb *CircuitBreaker) Status() Status {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	s := Status{
		Name:           cb.name,
		State:          cb.state.String(),
		Failures:       cb.failures,
		Threshold:      cb.threshold,
		RetryInSeconds: int(cb.timeUntilRetryLocked().Seconds()),
	}
	if !cb.lastFailure.IsZero() {
		s.LastFailure = cb.lastFailure.Format(time.RFC3339)
	}
	return s
}
