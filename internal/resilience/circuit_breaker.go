// Package resilience provides retry and circuit breaking for the browser-backed
// analysis path.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker
type BreakerState int32

const (
	// StateClosed - calls flow normally
	StateClosed BreakerState = iota
	// StateOpen - calls are rejected until the cooldown elapses
	StateOpen
	// StateHalfOpen - a single trial call is allowed through
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	// Name identifies this breaker in logs
	Name string

	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold int

	// Cooldown is how long the breaker stays open before allowing a trial call
	Cooldown time.Duration

	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from, to BreakerState)
}

// DefaultBreakerConfig returns the settings used to guard browser launches
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// Breaker is a consecutive-failure circuit breaker
type Breaker struct {
	config BreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trialOut bool
}

// NewBreaker creates a breaker, filling in defaults for zero values
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig("").FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig("").Cooldown
	}
	return &Breaker{config: config, now: time.Now}
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Execute runs fn if the breaker allows it and records the outcome
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.trialOut {
			return ErrCircuitOpen
		}
		b.trialOut = true
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if success {
		b.failures = 0
		b.setState(StateClosed)
		return
	}

	b.failures++
	if state == StateHalfOpen || b.failures >= b.config.FailureThreshold {
		b.openedAt = b.now()
		b.setState(StateOpen)
	}
}

// currentState moves an expired open breaker to half-open. Caller holds mu.
func (b *Breaker) currentState() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.config.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setState(state BreakerState) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.trialOut = false

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, prev, state)
	}
}
