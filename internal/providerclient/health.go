package providerclient

import (
	"sync"
	"time"
)

// circuitState is the state of a per-provider circuit breaker. The router
// stays a pure function; only this client layer carries live state.
type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

type circuitBreaker struct {
	mu sync.Mutex

	state    circuitState
	failures int
	openedAt time.Time

	failureThreshold      int
	recoveryProbeInterval time.Duration
}

func newCircuitBreaker(failureThreshold int, recoveryProbeInterval time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:                 stateClosed,
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
	}
}

func (cb *circuitBreaker) currentState() circuitState {
	if cb.state == stateOpen && time.Since(cb.openedAt) >= cb.recoveryProbeInterval {
		cb.state = stateHalfOpen
	}
	return cb.state
}

func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != stateOpen
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case stateHalfOpen:
		cb.state = stateClosed
		cb.failures = 0
	case stateClosed:
	}
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	switch cb.state {
	case stateClosed:
		if cb.failures >= cb.failureThreshold {
			cb.state = stateOpen
			cb.openedAt = time.Now()
		}
	case stateHalfOpen:
		cb.state = stateOpen
		cb.openedAt = time.Now()
	}
}

// HealthTracker manages a circuit breaker per provider name ("openai",
// "bedrock"). The orchestrator records each invocation's outcome here;
// internal/retry does not consult the tracker.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[string]*circuitBreaker

	failureThreshold      int
	recoveryProbeInterval time.Duration
}

// NewHealthTracker builds a tracker with sane defaults (5 failures, 15s
// recovery probe).
func NewHealthTracker(failureThreshold int, recoveryProbeInterval time.Duration) *HealthTracker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryProbeInterval <= 0 {
		recoveryProbeInterval = 15 * time.Second
	}
	return &HealthTracker{
		breakers:              make(map[string]*circuitBreaker),
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
	}
}

func (ht *HealthTracker) breaker(provider string) *circuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[provider]
	ht.mu.RUnlock()
	if ok {
		return cb
	}
	ht.mu.Lock()
	defer ht.mu.Unlock()
	if cb, ok := ht.breakers[provider]; ok {
		return cb
	}
	cb = newCircuitBreaker(ht.failureThreshold, ht.recoveryProbeInterval)
	ht.breakers[provider] = cb
	return cb
}

// IsAvailable reports whether requests to provider should currently be
// attempted at all.
func (ht *HealthTracker) IsAvailable(provider string) bool { return ht.breaker(provider).Allow() }

// RecordSuccess records a successful invocation against provider.
func (ht *HealthTracker) RecordSuccess(provider string) { ht.breaker(provider).RecordSuccess() }

// RecordFailure records a failed invocation against provider.
func (ht *HealthTracker) RecordFailure(provider string) { ht.breaker(provider).RecordFailure() }
