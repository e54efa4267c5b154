package health

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/connectivity"
)

func check(name string, err error) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) error { return err }}
}

func TestAggregatorAllHealthy(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(check("db", nil))
	agg.Register(check("cache", nil))
	agg.SetMetadata("service", "edge")

	resp := agg.Check(context.Background())
	assert.True(t, resp.IsHealthy())
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["db"].Status)
	assert.Equal(t, "edge", resp.Metadata["service"])
}

func TestAggregatorUnhealthyWins(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(check("db", nil))
	agg.Register(check("upstream", errors.New("connection refused")))

	resp := agg.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, StatusUnhealthy, resp.Checks["upstream"].Status)
	assert.Contains(t, resp.Checks["upstream"].Error, "connection refused")
	assert.Equal(t, StatusHealthy, resp.Checks["db"].Status, "one failure must not hide other results")
}

func TestAggregatorDegraded(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(check("db", nil))
	agg.Register(check("upstream", fmt.Errorf("%w: probing", ErrDegraded)))

	resp := agg.Check(context.Background())
	assert.True(t, resp.IsDegraded())
	assert.Equal(t, StatusDegraded, resp.Checks["upstream"].Status)
}

func TestAggregatorEmptyIsHealthy(t *testing.T) {
	resp := NewAggregator(0).Check(context.Background())
	assert.True(t, resp.IsHealthy())
	assert.Empty(t, resp.Checks)
}

func TestAggregatorRunsChecksConcurrently(t *testing.T) {
	agg := NewAggregator(time.Second)
	const n = 4
	for i := 0; i < n; i++ {
		agg.Register(CheckerFunc{
			CheckName: fmt.Sprintf("slow-%d", i),
			Fn: func(context.Context) error {
				time.Sleep(50 * time.Millisecond)
				return nil
			},
		})
	}

	start := time.Now()
	resp := agg.Check(context.Background())
	elapsed := time.Since(start)

	assert.True(t, resp.IsHealthy())
	assert.Less(t, elapsed, time.Duration(n)*50*time.Millisecond,
		"checks must fan out, not run back to back")
}

func TestAggregatorTimeoutReachesCheckers(t *testing.T) {
	agg := NewAggregator(30 * time.Millisecond)
	agg.Register(CheckerFunc{
		CheckName: "stuck",
		Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	resp := agg.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestBreakerChecker(t *testing.T) {
	cb := breaker.New("billing", breaker.ResourceConfig{FailureThreshold: 1, CoolDown: time.Hour})
	defer cb.Close()
	checker := BreakerChecker(cb)
	require.Equal(t, "breaker:billing", checker.Name())

	assert.NoError(t, checker.Check(context.Background()), "closed circuit is healthy")

	_, _ = cb.Execute(context.Background(), func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	err := checker.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.False(t, errors.Is(err, ErrDegraded), "open is an outage, not degradation")
}

func TestManagerChecker(t *testing.T) {
	mgr, err := breaker.NewManager(breaker.Config{
		Default: breaker.ResourceConfig{FailureThreshold: 1, CoolDown: time.Hour},
	})
	require.NoError(t, err)
	defer mgr.Close()

	checker := ManagerChecker(mgr)
	assert.NoError(t, checker.Check(context.Background()))

	_, _ = mgr.Execute(context.Background(), "api", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	checkErr := checker.Check(context.Background())
	require.Error(t, checkErr)
	assert.Contains(t, checkErr.Error(), "api")
}

func TestConnectivityChecker(t *testing.T) {
	m, err := connectivity.New(connectivity.DefaultConfig(),
		connectivity.WithProber(connectivity.ProberFunc(func(context.Context) error { return nil })))
	require.NoError(t, err)

	checker := ConnectivityChecker(m)
	assert.NoError(t, checker.Check(context.Background()))

	m.SetState(false)
	assert.Error(t, checker.Check(context.Background()))
}
