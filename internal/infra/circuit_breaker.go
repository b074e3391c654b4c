package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is the position of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned without calling the guarded function.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker stops calling a failing dependency (the SMTP relay) for a cooldown
// after MaxFailures consecutive errors. After the cooldown a single probe
// is let through; its outcome closes or re-opens the breaker.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker. Non-positive arguments fall back to
// 5 failures and a one-minute cooldown.
func NewBreaker(name string, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{name: name, maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// State reports the current state, moving open to half-open once the
// cooldown has passed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Do calls fn unless the breaker is open or a half-open probe is in flight.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	b.refresh()
	switch {
	case b.state == BreakerOpen:
		b.mu.Unlock()
		return ErrBreakerOpen
	case b.state == BreakerHalfOpen && b.probing:
		b.mu.Unlock()
		return ErrBreakerOpen
	case b.state == BreakerHalfOpen:
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err == nil {
		if b.state != BreakerClosed {
			b.transition(BreakerClosed)
		}
		b.failures = 0
		return nil
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.transition(BreakerOpen)
	}
	return err
}

// refresh must be called with mu held.
func (b *Breaker) refresh() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.transition(BreakerHalfOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	log.Warn().Str("breaker", b.name).Str("from", b.state.String()).Str("to", to.String()).Msg("circuit breaker state change")
	b.state = to
	if to != BreakerOpen {
		b.failures = 0
	}
}
