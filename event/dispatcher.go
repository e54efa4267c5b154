package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/vibeworks/go-resilience/logger"
)

// UnsubscribeFunc removes a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// Interceptor wraps synchronous dispatch, outermost first.
type Interceptor func(ctx context.Context, event Event, next Next) error

// Next continues the dispatch chain.
type Next func(ctx context.Context, event Event) error

// Dispatcher routes events from publishers to subscribers.
type Dispatcher interface {
	Subscribe(eventName string, listener Listener, opts ...SubscribeOption) UnsubscribeFunc
	Dispatch(ctx context.Context, event Event) error
	DispatchAsync(ctx context.Context, event Event)
	Use(interceptor Interceptor)
	Close()
}

type dispatcher struct {
	mu           sync.RWMutex
	listeners    map[string][]listenerEntry
	interceptors []Interceptor
	nextID       uint64
	pool         *ants.Pool
	poolSize     int
	log          *logger.CtxLogger
	closed       atomic.Bool
}

// NewDispatcher creates a dispatcher with an async worker pool.
func NewDispatcher(opts ...DispatcherOption) *dispatcher {
	d := &dispatcher{
		listeners: make(map[string][]listenerEntry),
		poolSize:  100,
		log:       logger.GetLogger("event"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	var err error
	d.pool, err = ants.NewPool(d.poolSize)
	if err != nil {
		d.log.Error("create worker pool failed, falling back to default size", zap.Error(err))
		d.pool, _ = ants.NewPool(100)
	}
	return d
}

// Subscribe registers listener for eventName.
func (d *dispatcher) Subscribe(eventName string, listener Listener, opts ...SubscribeOption) UnsubscribeFunc {
	if eventName == "" || listener == nil {
		return func() {}
	}

	entry := listenerEntry{
		id:       atomic.AddUint64(&d.nextID, 1),
		listener: listener,
	}
	for _, opt := range opts {
		opt(&entry)
	}

	d.mu.Lock()
	d.listeners[eventName] = append(d.listeners[eventName], entry)
	sort.SliceStable(d.listeners[eventName], func(i, j int) bool {
		return d.listeners[eventName][i].priority < d.listeners[eventName][j].priority
	})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(eventName, entry.id) })
	}
}

func (d *dispatcher) unsubscribe(eventName string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.listeners[eventName]
	for i, e := range entries {
		if e.id == id {
			d.listeners[eventName] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Use registers a global dispatch interceptor.
func (d *dispatcher) Use(interceptor Interceptor) {
	d.mu.Lock()
	d.interceptors = append(d.interceptors, interceptor)
	d.mu.Unlock()
}

// Dispatch delivers event synchronously, in priority order. The first
// listener error stops propagation and is returned; ErrStopPropagation
// stops it silently.
func (d *dispatcher) Dispatch(ctx context.Context, event Event) error {
	if event == nil {
		return nil
	}

	d.mu.RLock()
	interceptors := make([]Interceptor, len(d.interceptors))
	copy(interceptors, d.interceptors)
	entries := make([]listenerEntry, len(d.listeners[event.Name()]))
	copy(entries, d.listeners[event.Name()])
	d.mu.RUnlock()

	handler := func(ctx context.Context, event Event) error {
		return d.executeListeners(ctx, event, entries)
	}
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := handler
		handler = func(ctx context.Context, event Event) error {
			return interceptor(ctx, event, next)
		}
	}

	err := handler(ctx, event)
	d.cleanupOnceListeners(event.Name(), entries)

	if errors.Is(err, ErrStopPropagation) {
		return nil
	}
	return err
}

// DispatchAsync hands the whole delivery to the pool and returns. A
// closed dispatcher drops the event.
func (d *dispatcher) DispatchAsync(ctx context.Context, event Event) {
	if event == nil || d.closed.Load() {
		return
	}

	eventName := event.Name()
	err := d.pool.Submit(func() {
		if err := d.Dispatch(context.WithoutCancel(ctx), event); err != nil {
			d.log.ErrorCtx(ctx, "async event delivery failed",
				zap.String("event", eventName), zap.Error(err))
		}
	})
	if err != nil {
		d.log.ErrorCtx(ctx, "submit async event failed",
			zap.String("event", eventName), zap.Error(err))
	}
}

func (d *dispatcher) executeListeners(ctx context.Context, event Event, entries []listenerEntry) error {
	for _, entry := range entries {
		if entry.async {
			listener := entry.listener
			eventName := event.Name()
			_ = d.pool.Submit(func() {
				if err := d.safeHandle(ctx, listener, event); err != nil && !errors.Is(err, ErrStopPropagation) {
					d.log.ErrorCtx(ctx, "async listener failed",
						zap.String("event", eventName), zap.Error(err))
				}
			})
			continue
		}

		if err := d.safeHandle(ctx, entry.listener, event); err != nil {
			return err
		}
	}
	return nil
}

// safeHandle isolates listener panics: one broken subscriber must not
// take down the publisher or its siblings.
func (d *dispatcher) safeHandle(ctx context.Context, listener Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorCtx(ctx, "listener panicked",
				zap.String("event", event.Name()), zap.Any("panic", r))
			err = nil
		}
	}()
	return listener.Handle(ctx, event)
}

func (d *dispatcher) cleanupOnceListeners(eventName string, executed []listenerEntry) {
	var onceIDs []uint64
	for _, e := range executed {
		if e.once {
			onceIDs = append(onceIDs, e.id)
		}
	}
	if len(onceIDs) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.listeners[eventName]
	filtered := entries[:0]
	for _, e := range entries {
		remove := false
		for _, id := range onceIDs {
			if e.id == id {
				remove = true
				break
			}
		}
		if !remove {
			filtered = append(filtered, e)
		}
	}
	d.listeners[eventName] = filtered
}

// Close releases the pool, giving in-flight async work a grace period.
// Idempotent.
func (d *dispatcher) Close() {
	if d.closed.Swap(true) {
		return
	}
	if d.pool != nil {
		if err := d.pool.ReleaseTimeout(5 * time.Second); err != nil {
			d.log.Warn("worker pool did not drain in time", zap.Error(err))
		}
	}
}

// ListenerCount reports subscribers on a topic.
func (d *dispatcher) ListenerCount(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[eventName])
}
