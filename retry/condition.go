package retry

import (
	"context"
	"errors"
	"net"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vibeworks/go-resilience/breaker"
)

// RetryCondition decides whether a failed attempt should be retried.
type RetryCondition interface {
	// ShouldRetry is called with the attempt's error and its 1-based
	// ordinal.
	ShouldRetry(err error, attempt int) bool
}

// ConditionFunc adapts a function to RetryCondition.
type ConditionFunc func(err error, attempt int) bool

// ShouldRetry implements RetryCondition.
func (f ConditionFunc) ShouldRetry(err error, attempt int) bool { return f(err, attempt) }

// AlwaysRetry retries every error.
func AlwaysRetry() RetryCondition {
	return ConditionFunc(func(err error, _ int) bool { return err != nil })
}

// NeverRetry stops after the first failure.
func NeverRetry() RetryCondition {
	return ConditionFunc(func(error, int) bool { return false })
}

// RetryIf retries when fn returns true.
func RetryIf(fn func(error) bool) RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		return err != nil && fn(err)
	})
}

// OnErrors retries errors matching any target via errors.Is.
func OnErrors(targets ...error) RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil {
			return false
		}
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	})
}

// OnHTTPStatus retries errors carrying one of the given status codes.
func OnHTTPStatus(statuses ...int) RetryCondition {
	set := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return ConditionFunc(func(err error, _ int) bool {
		var sc breaker.StatusCoder
		if !errors.As(err, &sc) {
			return false
		}
		_, ok := set[sc.StatusCode()]
		return ok
	})
}

// OnGRPCCodes retries errors whose gRPC status code matches.
func OnGRPCCodes(targets ...codes.Code) RetryCondition {
	set := make(map[codes.Code]struct{}, len(targets))
	for _, c := range targets {
		set[c] = struct{}{}
	}
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil {
			return false
		}
		st, ok := status.FromError(err)
		if !ok {
			return false
		}
		_, retry := set[st.Code()]
		return retry
	})
}

// OnTemporaryError retries transient transport failures: timeouts,
// refused or reset connections and deadline expiry.
func OnTemporaryError() RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return true
		}
		return errors.Is(err, syscall.ECONNREFUSED) ||
			errors.Is(err, syscall.ECONNRESET) ||
			errors.Is(err, syscall.ETIMEDOUT) ||
			errors.Is(err, syscall.EPIPE)
	})
}

// SkipCircuitOpen wraps next so breaker fast-fails are never retried.
// A CircuitOpenError means "not attempted"; retrying it in a loop would
// defeat the breaker's purpose.
func SkipCircuitOpen(next RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		if breaker.IsCircuitOpen(err) {
			return false
		}
		return next.ShouldRetry(err, attempt)
	})
}

// And retries only when every condition agrees.
func And(conds ...RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		for _, c := range conds {
			if !c.ShouldRetry(err, attempt) {
				return false
			}
		}
		return len(conds) > 0
	})
}

// Or retries when any condition agrees.
func Or(conds ...RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		for _, c := range conds {
			if c.ShouldRetry(err, attempt) {
				return true
			}
		}
		return false
	})
}

// Not inverts a condition (for non-nil errors).
func Not(cond RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		if err == nil {
			return false
		}
		return !cond.ShouldRetry(err, attempt)
	})
}
