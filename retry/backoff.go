package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy yields the wait before the (attempt+1)th try.
// attempt starts at 1.
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

type backoffConfig struct {
	multiplier float64
	maxDelay   time.Duration
	jitter     float64
}

func defaultBackoffConfig() *backoffConfig {
	return &backoffConfig{
		multiplier: 2.0,
		maxDelay:   30 * time.Second,
		jitter:     0.2,
	}
}

// BackoffOption tunes a backoff strategy.
type BackoffOption func(*backoffConfig)

// WithMultiplier sets the exponential growth factor.
func WithMultiplier(m float64) BackoffOption {
	return func(c *backoffConfig) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

// WithMaxDelay caps the computed wait.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(c *backoffConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithJitter sets the random spread ratio, 0.0 to 1.0.
func WithJitter(ratio float64) BackoffOption {
	return func(c *backoffConfig) {
		if ratio >= 0 && ratio <= 1.0 {
			c.jitter = ratio
		}
	}
}

type exponentialBackoff struct {
	base time.Duration
	cfg  *backoffConfig
}

// ExponentialBackoff waits base * multiplier^(attempt-1), jittered and
// capped. This is the default strategy.
func ExponentialBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	cfg := defaultBackoffConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &exponentialBackoff{base: base, cfg: cfg}
}

func (b *exponentialBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(b.base) * math.Pow(b.cfg.multiplier, float64(attempt-1))
	return finish(delay, b.cfg)
}

type linearBackoff struct {
	base time.Duration
	cfg  *backoffConfig
}

// LinearBackoff waits base * attempt.
func LinearBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	cfg := defaultBackoffConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &linearBackoff{base: base, cfg: cfg}
}

func (b *linearBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return finish(float64(b.base)*float64(attempt), b.cfg)
}

type constantBackoff struct {
	delay time.Duration
	cfg   *backoffConfig
}

// ConstantBackoff waits the same delay every time.
func ConstantBackoff(delay time.Duration, opts ...BackoffOption) BackoffStrategy {
	cfg := defaultBackoffConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &constantBackoff{delay: delay, cfg: cfg}
}

func (b *constantBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return finish(float64(b.delay), b.cfg)
}

type noBackoff struct{}

// NoBackoff retries immediately.
func NoBackoff() BackoffStrategy { return noBackoff{} }

func (noBackoff) Next(int) time.Duration { return 0 }

func finish(delay float64, cfg *backoffConfig) time.Duration {
	if delay > float64(cfg.maxDelay) {
		delay = float64(cfg.maxDelay)
	}
	if cfg.jitter > 0 {
		spread := delay * cfg.jitter
		delay += (rand.Float64()*2 - 1) * spread
		if delay < 0 {
			delay = 0
		}
	}
	return time.Duration(delay)
}
