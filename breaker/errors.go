package breaker

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is the sentinel every fast-fail unwraps to. It signals
// "not attempted", distinct from "attempted and failed".
var ErrCircuitOpen = errors.New("breaker: circuit is open")

// CircuitOpenError is returned when a call is rejected without being made.
// It carries enough context for a status surface to render a countdown.
type CircuitOpenError struct {
	Resource string
	OpenedAt time.Time
	RetryIn  time.Duration
}

func (e *CircuitOpenError) Error() string {
	if e.RetryIn > 0 {
		return fmt.Sprintf("breaker: circuit for %q is open, retry in %s", e.Resource, e.RetryIn)
	}
	return fmt.Sprintf("breaker: circuit for %q is open", e.Resource)
}

// Unwrap lets errors.Is(err, ErrCircuitOpen) match.
func (e *CircuitOpenError) Unwrap() error { return ErrCircuitOpen }

// IsCircuitOpen reports whether err is a breaker fast-fail.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// StatusCoder is implemented by errors that carry an HTTP status code.
// The default classifier uses it to tell client-class from server-class
// failures.
type StatusCoder interface {
	error
	StatusCode() int
}
