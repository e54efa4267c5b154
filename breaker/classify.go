package breaker

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Classification maps a call outcome to its effect on circuit health.
type Classification int

const (
	// ClassSuccess is a completed 2xx/3xx call.
	ClassSuccess Classification = iota

	// ClassClientError is a 4xx outcome. Never counted against the circuit.
	ClassClientError

	// ClassServerError is a 5xx outcome. Counted.
	ClassServerError

	// ClassNetworkError is a timeout, abort or connection failure. Counted
	// the same as a server error.
	ClassNetworkError

	// ClassCancelled is a caller-initiated cancellation. Neutral by
	// default; CountCancellations flips it to network-class.
	ClassCancelled
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	case ClassNetworkError:
		return "network_error"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Counts reports whether this class increments the failure counter.
func (c Classification) Counts() bool {
	return c == ClassServerError || c == ClassNetworkError
}

// Classifier maps a call error to a Classification. A nil error is always
// ClassSuccess regardless of the classifier.
type Classifier func(err error) Classification

// ClassifyError is the default classifier.
//
// Errors carrying an HTTP status code split on the 4xx/5xx boundary.
// Transport-level failures (timeouts, refused/reset connections, broken
// pipes, truncated bodies) are network-class. A plain context.Canceled is
// the caller hanging up and stays neutral.
func ClassifyError(err error) Classification {
	if err == nil {
		return ClassSuccess
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		switch {
		case code >= 400 && code < 500:
			return ClassClientError
		case code >= 500 && code < 600:
			return ClassServerError
		}
		// Status 0 and anything out of range: treat as a failed transport.
		return ClassNetworkError
	}

	if errors.Is(err, context.Canceled) {
		return ClassCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassNetworkError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassNetworkError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassNetworkError
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassNetworkError
	}

	// Unknown errors count: an upstream we cannot understand is an
	// upstream we should stop hammering.
	return ClassServerError
}
