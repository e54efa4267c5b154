package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/connectivity"
)

func TestBridgeBreaker(t *testing.T) {
	mgr, err := breaker.NewManager(breaker.Config{
		Default: breaker.ResourceConfig{FailureThreshold: 1, CoolDown: time.Hour},
	})
	require.NoError(t, err)
	defer mgr.Close()

	d := NewDispatcher()
	defer d.Close()
	unsub := BridgeBreaker(d, mgr)
	defer unsub()

	var mu sync.Mutex
	var seen []*BreakerStateChanged
	d.Subscribe(TopicBreakerStateChanged, ListenerFunc(func(_ context.Context, e Event) error {
		mu.Lock()
		seen = append(seen, e.(*BreakerStateChanged))
		mu.Unlock()
		return nil
	}))

	_, _ = mgr.Execute(context.Background(), "api", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "api", seen[0].Change.Resource)
	assert.Equal(t, breaker.StateClosed, seen[0].Change.From)
	assert.Equal(t, breaker.StateOpen, seen[0].Change.To)
	assert.Equal(t, TopicBreakerStateChanged, seen[0].Name())
}

func TestBridgeConnectivity(t *testing.T) {
	m, err := connectivity.New(connectivity.DefaultConfig(),
		connectivity.WithProber(connectivity.ProberFunc(func(context.Context) error { return nil })))
	require.NoError(t, err)

	d := NewDispatcher()
	defer d.Close()
	unsub := BridgeConnectivity(d, m)
	defer unsub()

	var mu sync.Mutex
	var edges []bool
	d.Subscribe(TopicConnectivityChanged, ListenerFunc(func(_ context.Context, e Event) error {
		mu.Lock()
		edges = append(edges, e.(*ConnectivityChanged).Change.Online)
		mu.Unlock()
		return nil
	}))

	m.SetState(false)
	m.SetState(true)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(edges) == 2
	}, time.Second, 5*time.Millisecond)

	// Async delivery does not guarantee cross-event ordering.
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []bool{false, true}, edges)
}
