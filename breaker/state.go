package breaker

import "time"

// State is the circuit position for one upstream resource.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota

	// StateOpen fails calls fast without touching the network.
	StateOpen

	// StateHalfOpen lets a single probe through to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
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

// IsClosed reports whether calls flow normally.
func (s State) IsClosed() bool { return s == StateClosed }

// IsOpen reports whether calls are being rejected.
func (s State) IsOpen() bool { return s == StateOpen }

// IsHalfOpen reports whether a recovery probe window is active.
func (s State) IsHalfOpen() bool { return s == StateHalfOpen }

// Snapshot is a read-only copy of one breaker record, safe to hand to
// status surfaces and tests.
type Snapshot struct {
	Resource            string
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
	ProbeInFlight       bool
	OpenEpisodes        int
	LastError           error
	LastClass           Classification

	// NextProbeAt is when the current cool-down window elapses.
	// Zero unless the breaker is open.
	NextProbeAt time.Time
}

// RetryIn returns how long until the next probe window, from now.
// Zero when the breaker is not open or the window has already elapsed.
func (s Snapshot) RetryIn(now time.Time) time.Duration {
	if s.State != StateOpen || s.NextProbeAt.IsZero() {
		return 0
	}
	d := s.NextProbeAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// StateChange is delivered to subscribers exactly once per transition,
// in transition order.
type StateChange struct {
	Resource string
	From     State
	To       State
	Failures int
	OpenedAt time.Time
	Err      error
	At       time.Time
}

// UnsubscribeFunc removes a subscription. Calling it twice is harmless.
type UnsubscribeFunc func()
