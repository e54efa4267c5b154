package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeworks/go-resilience/testutil"
)

type testEvent struct {
	BaseEvent
	Data string
}

func newTestEvent(name, data string) *testEvent {
	return &testEvent{BaseEvent: NewEvent(name), Data: data}
}

func TestNewEvent(t *testing.T) {
	e := NewEvent("test.event")
	assert.Equal(t, "test.event", e.Name())
	assert.False(t, e.OccurredAt().IsZero())
}

func TestDispatchSync(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var got string
	d.Subscribe("user.login", ListenerFunc(func(_ context.Context, e Event) error {
		got = e.(*testEvent).Data
		return nil
	}))

	err := d.Dispatch(context.Background(), newTestEvent("user.login", "alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestDispatchPriorityOrder(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var order []int
	for _, p := range []int{30, 10, 20} {
		p := p
		d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
			order = append(order, p)
			return nil
		}), WithPriority(p))
	}

	require.NoError(t, d.Dispatch(context.Background(), newTestEvent("topic", "")))
	assert.Equal(t, []int{10, 20, 30}, order)
}

func TestDispatchErrorStopsPropagation(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	reached := false
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		return errors.New("handler failed")
	}), WithPriority(1))
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		reached = true
		return nil
	}), WithPriority(2))

	err := d.Dispatch(context.Background(), newTestEvent("topic", ""))
	assert.Error(t, err)
	assert.False(t, reached)
}

func TestStopPropagationIsNotAnError(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	reached := false
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		return ErrStopPropagation
	}), WithPriority(1))
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		reached = true
		return nil
	}), WithPriority(2))

	err := d.Dispatch(context.Background(), newTestEvent("topic", ""))
	assert.NoError(t, err)
	assert.False(t, reached)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	reached := false
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		panic("boom")
	}), WithPriority(1))
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		reached = true
		return nil
	}), WithPriority(2))

	err := d.Dispatch(context.Background(), newTestEvent("topic", ""))
	assert.NoError(t, err)
	assert.True(t, reached, "a panicking listener must not block its siblings")
}

func TestDispatchAsync(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	d := NewDispatcher(WithPoolSize(4))

	var count atomic.Int32
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		count.Add(1)
		return nil
	}))

	for i := 0; i < 10; i++ {
		d.DispatchAsync(context.Background(), newTestEvent("topic", ""))
	}

	assert.Eventually(t, func() bool {
		return count.Load() == 10
	}, time.Second, 5*time.Millisecond)

	d.Close()
}

func TestAsyncListenerUnderSyncDispatch(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	done := make(chan struct{})
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}), WithAsync())

	require.NoError(t, d.Dispatch(context.Background(), newTestEvent("topic", "")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async listener never ran")
	}
}

func TestOnceListener(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	count := 0
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		count++
		return nil
	}), WithOnce())

	ctx := context.Background()
	d.Dispatch(ctx, newTestEvent("topic", ""))
	d.Dispatch(ctx, newTestEvent("topic", ""))

	assert.Equal(t, 1, count)
	assert.Zero(t, d.ListenerCount("topic"))
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	count := 0
	unsub := d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		count++
		return nil
	}))

	ctx := context.Background()
	d.Dispatch(ctx, newTestEvent("topic", ""))
	unsub()
	unsub()
	d.Dispatch(ctx, newTestEvent("topic", ""))

	assert.Equal(t, 1, count)
}

func TestInterceptorWrapsDispatch(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var trace []string
	d.Use(func(ctx context.Context, e Event, next Next) error {
		trace = append(trace, "before")
		err := next(ctx, e)
		trace = append(trace, "after")
		return err
	})
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		trace = append(trace, "listener")
		return nil
	}))

	require.NoError(t, d.Dispatch(context.Background(), newTestEvent("topic", "")))
	assert.Equal(t, []string{"before", "listener", "after"}, trace)
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher()

	var count atomic.Int32
	d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
		count.Add(1)
		return nil
	}))

	d.Close()
	d.Close()
	d.DispatchAsync(context.Background(), newTestEvent("topic", ""))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, count.Load())
}

func TestConcurrentSubscribeDispatch(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := d.Subscribe("topic", ListenerFunc(func(context.Context, Event) error {
				return nil
			}))
			d.Dispatch(context.Background(), newTestEvent("topic", ""))
			unsub()
		}()
	}
	wg.Wait()
	assert.Zero(t, d.ListenerCount("topic"))
}
