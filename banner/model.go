// Package banner is a presentation-agnostic view-model for a "service
// temporarily unavailable" notice driven by one circuit breaker. It owns
// no rendering: a UI layer polls the accessors, or re-renders on the
// update callback, and draws whatever it wants.
package banner

import (
	"sync"
	"time"

	"github.com/vibeworks/go-resilience/breaker"
)

// DefaultMessage is shown while the circuit is open.
const DefaultMessage = "Service temporarily unavailable"

// Model mirrors one breaker's state for display.
type Model struct {
	cb      *breaker.CircuitBreaker
	clock   breaker.Clock
	message string

	mu       sync.Mutex
	onUpdate func()
	unsub    breaker.UnsubscribeFunc
	closed   bool
}

// Option configures a Model.
type Option func(*Model)

// WithMessage overrides the banner text.
func WithMessage(msg string) Option {
	return func(m *Model) {
		if msg != "" {
			m.message = msg
		}
	}
}

// WithClock injects the time source for countdowns.
func WithClock(clock breaker.Clock) Option {
	return func(m *Model) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithOnUpdate installs a callback fired after every breaker state
// change, for UIs that re-render on push rather than poll.
func WithOnUpdate(fn func()) Option {
	return func(m *Model) { m.onUpdate = fn }
}

// New builds a model bound to cb.
func New(cb *breaker.CircuitBreaker, opts ...Option) *Model {
	m := &Model{
		cb:      cb,
		clock:   breaker.SystemClock(),
		message: DefaultMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.unsub = cb.OnStateChange(func(breaker.StateChange) {
		m.mu.Lock()
		fn := m.onUpdate
		closed := m.closed
		m.mu.Unlock()
		if fn != nil && !closed {
			fn()
		}
	})
	return m
}

// Visible reports whether the banner should be shown: any state other
// than closed.
func (m *Model) Visible() bool {
	return !m.cb.State().IsClosed()
}

// Message returns the banner text.
func (m *Model) Message() string { return m.message }

// RetryIn returns the time until the next automatic probe window, zero
// when the window is reached or the circuit is not open.
func (m *Model) RetryIn() time.Duration {
	snap := m.cb.Snapshot()
	if !snap.State.IsOpen() {
		return 0
	}
	return snap.RetryIn(m.clock.Now())
}

// ProbeInProgress reports whether a recovery probe is in flight.
func (m *Model) ProbeInProgress() bool {
	snap := m.cb.Snapshot()
	return snap.State.IsHalfOpen() && snap.ProbeInFlight
}

// LastError returns the failure behind the current outage, nil while
// healthy.
func (m *Model) LastError() error {
	return m.cb.Snapshot().LastError
}

// RetryNow is the banner's manual override: it resets the breaker so the
// next real request goes through. That request can still fail and reopen
// the circuit.
func (m *Model) RetryNow() {
	m.cb.Reset()
}

// Close detaches from the breaker. Idempotent.
func (m *Model) Close() {
	m.mu.Lock()
	m.closed = true
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
