package services

import (
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

const DefaultBreakerCooldown = 30 * time.Second

// CircuitBreakerState guards calls to the model after a rate limit.
//
//	closed    --rate limited-->  open
//	open      --cooldown------>  half-open (one trial call)
//	half-open --success------->  closed
//	half-open --rate limited-->  open
type CircuitBreakerState struct {
	mu       sync.Mutex
	state    BreakerState
	openedAt time.Time
	cooldown time.Duration
	trialOut bool
	now      func() time.Time
}

func NewCircuitBreakerState(cooldown time.Duration, now func() time.Time) *CircuitBreakerState {
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &CircuitBreakerState{state: BreakerClosed, cooldown: cooldown, now: now}
}

// Allow reports whether a call may proceed. In half-open only the first
// caller is let through until it reports back.
func (b *CircuitBreakerState) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.trialOut = false
	}

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trialOut {
			return false
		}
		b.trialOut = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the breaker.
func (b *CircuitBreakerState) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.trialOut = false
}

// RecordRateLimited opens the breaker and restarts the cooldown.
func (b *CircuitBreakerState) RecordRateLimited() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.trialOut = false
}

// RecordOtherFailure releases a half-open trial without changing state, so
// the next caller can try. Non rate-limit failures never open the breaker.
func (b *CircuitBreakerState) RecordOtherFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen {
		b.trialOut = false
	}
}

// State returns the current state, applying the cooldown transition.
func (b *CircuitBreakerState) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.trialOut = false
	}
	return b.state
}
