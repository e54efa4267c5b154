package retry

import (
	"errors"
	"fmt"
	"strings"
)

// AttemptsError aggregates the errors of every attempt.
type AttemptsError struct {
	Errors   []error
	Attempts int
}

// Error reports the last attempt's error.
func (e *AttemptsError) Error() string {
	if len(e.Errors) == 0 {
		return "retry: failed with no recorded errors"
	}
	return e.Errors[len(e.Errors)-1].Error()
}

// Unwrap returns the last attempt's error so errors.Is/As see through the
// aggregate.
func (e *AttemptsError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Last returns the final attempt's error.
func (e *AttemptsError) Last() error { return e.Unwrap() }

// All renders every attempt's error for diagnostics.
func (e *AttemptsError) All() string {
	var b strings.Builder
	fmt.Fprintf(&b, "retry: failed after %d attempts:", e.Attempts)
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  attempt %d: %v", i+1, err)
	}
	return b.String()
}

// Attempts extracts the attempt count from err, 0 if err is not an
// AttemptsError.
func Attempts(err error) int {
	var ae *AttemptsError
	if errors.As(err, &ae) {
		return ae.Attempts
	}
	return 0
}
