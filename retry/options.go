package retry

import "time"

type config struct {
	maxAttempts int
	backoff     BackoffStrategy
	condition   RetryCondition
	onRetry     func(attempt int, err error)
	timeout     time.Duration
}

func defaultConfig() *config {
	return &config{
		maxAttempts: 3,
		backoff:     ExponentialBackoff(time.Second),
		condition:   SkipCircuitOpen(AlwaysRetry()),
	}
}

// Option tunes a Do/DoWithData call.
type Option func(*config)

// MaxAttempts sets the total attempt budget, first try included.
func MaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// Backoff sets the wait strategy between attempts.
func Backoff(b BackoffStrategy) Option {
	return func(c *config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// Condition sets the retry predicate. Wrap with SkipCircuitOpen unless
// you have a reason to retry breaker fast-fails.
func Condition(cond RetryCondition) Option {
	return func(c *config) {
		if cond != nil {
			c.condition = cond
		}
	}
}

// OnRetry installs a callback fired before each wait.
func OnRetry(fn func(attempt int, err error)) Option {
	return func(c *config) { c.onRetry = fn }
}

// Timeout bounds each individual attempt.
func Timeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// HTTPDefaults is a sane starting point for HTTP callers: three attempts,
// jittered exponential backoff, retrying transient transport failures and
// 5xx/429 but never breaker fast-fails.
var HTTPDefaults = []Option{
	MaxAttempts(3),
	Backoff(ExponentialBackoff(200 * time.Millisecond)),
	Condition(SkipCircuitOpen(Or(
		OnTemporaryError(),
		OnHTTPStatus(429, 500, 502, 503, 504),
	))),
}
