package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeworks/go-resilience/testutil"
)

func TestNewManagerValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default.FailureThreshold = -1
	mgr, err := NewManager(cfg)
	assert.Error(t, err)
	assert.Nil(t, mgr)
}

func TestManagerPerResourceIsolation(t *testing.T) {
	clk := testutil.NewManualClock(time.Unix(1000, 0))
	mgr, err := NewManager(Config{
		Default: ResourceConfig{FailureThreshold: 2, CoolDown: time.Minute},
	}, WithClock(clk))
	require.NoError(t, err)
	defer mgr.Close()

	// Trip only svc-a.
	for i := 0; i < 2; i++ {
		_, _ = mgr.Execute(context.Background(), "svc-a", failWith(statusErr(500)))
	}
	assert.Equal(t, StateOpen, mgr.State("svc-a"))
	assert.Equal(t, StateClosed, mgr.State("svc-b"))

	// svc-b keeps working.
	result, err := mgr.Execute(context.Background(), "svc-b", succeed)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestManagerLazyCreateIsRaceSafe(t *testing.T) {
	mgr, err := NewManager(DefaultConfig())
	require.NoError(t, err)
	defer mgr.Close()

	var wg sync.WaitGroup
	instances := make([]*CircuitBreaker, 16)
	for i := range instances {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			instances[n] = mgr.Get("shared")
		}(i)
	}
	wg.Wait()

	for _, cb := range instances[1:] {
		assert.Same(t, instances[0], cb, "all callers must see the same record")
	}
}

func TestManagerResourceOverride(t *testing.T) {
	clk := testutil.NewManualClock(time.Unix(1000, 0))
	cfg := Config{
		Default: ResourceConfig{FailureThreshold: 10, CoolDown: time.Minute},
		Resources: map[string]ResourceConfig{
			"fragile": {FailureThreshold: 1},
		},
	}
	mgr, err := NewManager(cfg, WithClock(clk))
	require.NoError(t, err)
	defer mgr.Close()

	_, _ = mgr.Execute(context.Background(), "fragile", failWith(statusErr(500)))
	assert.Equal(t, StateOpen, mgr.State("fragile"))

	_, _ = mgr.Execute(context.Background(), "sturdy", failWith(statusErr(500)))
	assert.Equal(t, StateClosed, mgr.State("sturdy"))
}

func TestManagerResetAll(t *testing.T) {
	mgr, err := NewManager(Config{
		Default: ResourceConfig{FailureThreshold: 1, CoolDown: time.Hour},
	})
	require.NoError(t, err)
	defer mgr.Close()

	_, _ = mgr.Execute(context.Background(), "a", failWith(statusErr(500)))
	_, _ = mgr.Execute(context.Background(), "b", failWith(statusErr(500)))
	require.Equal(t, StateOpen, mgr.State("a"))
	require.Equal(t, StateOpen, mgr.State("b"))

	mgr.ResetAll()
	assert.Equal(t, StateClosed, mgr.State("a"))
	assert.Equal(t, StateClosed, mgr.State("b"))
}

func TestManagerSnapshots(t *testing.T) {
	mgr, err := NewManager(Config{
		Default: ResourceConfig{FailureThreshold: 1, CoolDown: time.Hour},
	})
	require.NoError(t, err)
	defer mgr.Close()

	_, _ = mgr.Execute(context.Background(), "a", failWith(statusErr(500)))
	_, _ = mgr.Execute(context.Background(), "b", succeed)

	snaps := mgr.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, StateOpen, snaps["a"].State)
	assert.Equal(t, StateClosed, snaps["b"].State)
}
