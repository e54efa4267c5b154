package health

import (
	"context"
	"fmt"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/connectivity"
)

// breakerChecker reports a breaker's state as a health item: closed is
// healthy, half-open is degraded (recovery underway), open is unhealthy.
type breakerChecker struct {
	name string
	cb   *breaker.CircuitBreaker
}

// BreakerChecker wraps one breaker as a check item named after its
// resource.
func BreakerChecker(cb *breaker.CircuitBreaker) Checker {
	return &breakerChecker{name: "breaker:" + cb.Resource(), cb: cb}
}

func (c *breakerChecker) Name() string { return c.name }

func (c *breakerChecker) Check(context.Context) error {
	snap := c.cb.Snapshot()
	switch snap.State {
	case breaker.StateOpen:
		if snap.LastError != nil {
			return fmt.Errorf("circuit open: %w", snap.LastError)
		}
		return fmt.Errorf("circuit open after %d consecutive failures", snap.ConsecutiveFailures)
	case breaker.StateHalfOpen:
		return fmt.Errorf("%w: recovery probe in progress", ErrDegraded)
	default:
		return nil
	}
}

// managerChecker folds a whole manager into one item: unhealthy when any
// resource is open, degraded when any is half-open.
type managerChecker struct {
	m *breaker.Manager
}

// ManagerChecker wraps every breaker the manager owns as one check item.
func ManagerChecker(m *breaker.Manager) Checker {
	return &managerChecker{m: m}
}

func (c *managerChecker) Name() string { return "breakers" }

func (c *managerChecker) Check(context.Context) error {
	var halfOpen []string
	for resource, snap := range c.m.Snapshots() {
		switch snap.State {
		case breaker.StateOpen:
			return fmt.Errorf("circuit open for %s", resource)
		case breaker.StateHalfOpen:
			halfOpen = append(halfOpen, resource)
		}
	}
	if len(halfOpen) > 0 {
		return fmt.Errorf("%w: probing %v", ErrDegraded, halfOpen)
	}
	return nil
}

// connectivityChecker reports the monitor's current state without
// probing; Check must stay cheap enough for a liveness endpoint.
type connectivityChecker struct {
	monitor *connectivity.Monitor
}

// ConnectivityChecker wraps the reachability monitor as a check item.
func ConnectivityChecker(m *connectivity.Monitor) Checker {
	return &connectivityChecker{monitor: m}
}

func (c *connectivityChecker) Name() string { return "connectivity" }

func (c *connectivityChecker) Check(context.Context) error {
	if c.monitor.Online() {
		return nil
	}
	return fmt.Errorf("offline")
}
