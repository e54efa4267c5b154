// Package health aggregates readiness signals. Circuit breakers and the
// connectivity monitor double as check items, so "is the app healthy"
// and "which upstream tripped" come from the same place.
package health

import (
	"context"
	"errors"
	"time"
)

// Status is an overall or per-check health verdict.
type Status string

const (
	// StatusHealthy means fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded means operational with reduced capability.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ErrDegraded marks a check failure as degradation rather than an
// outage. Wrap it: fmt.Errorf("%w: probing", health.ErrDegraded).
var ErrDegraded = errors.New("degraded")

// Checker is one health check item.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a named function to Checker.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

// Name implements Checker.
func (c CheckerFunc) Name() string { return c.CheckName }

// Check implements Checker.
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Response is the aggregated outcome of all checks.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

// IsHealthy reports whether everything passed.
func (r *Response) IsHealthy() bool { return r.Status == StatusHealthy }

// IsDegraded reports a partial outage.
func (r *Response) IsDegraded() bool { return r.Status == StatusDegraded }
