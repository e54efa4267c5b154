package breaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/vibeworks/go-resilience/logger"
	"go.uber.org/zap"
)

// Manager owns one breaker per logical upstream, created lazily on first
// use and kept for the process lifetime.
type Manager struct {
	config Config
	opts   []Option
	log    *logger.CtxLogger

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	lmu       sync.RWMutex
	listeners map[uint64]func(StateChange)
	nextID    uint64
}

// NewManager validates cfg and builds a manager. The opts are applied to
// every breaker the manager creates.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("breaker: invalid config: %w", err)
	}
	return &Manager{
		config:    cfg,
		opts:      opts,
		log:       logger.GetLogger("resilience"),
		breakers:  make(map[string]*CircuitBreaker),
		listeners: make(map[uint64]func(StateChange)),
	}, nil
}

// Execute runs fn through the breaker for resource.
func (m *Manager) Execute(ctx context.Context, resource string, fn func(ctx context.Context) (any, error)) (any, error) {
	return m.Get(resource).Execute(ctx, fn)
}

// Get returns the breaker for resource, creating it on first use.
func (m *Manager) Get(resource string) *CircuitBreaker {
	m.mu.RLock()
	if cb, ok := m.breakers[resource]; ok {
		m.mu.RUnlock()
		return cb
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[resource]; ok {
		return cb
	}

	rc := m.config.ResourceFor(resource)
	cb := New(resource, rc, m.opts...)
	cb.OnStateChange(m.fanOut)
	m.breakers[resource] = cb

	m.log.Debug("breaker created",
		zap.String("resource", resource),
		zap.Int("failure_threshold", rc.FailureThreshold),
		zap.Duration("cool_down", rc.CoolDown),
		zap.String("cool_down_policy", rc.CoolDownPolicy))
	return cb
}

// State returns the current state for resource.
func (m *Manager) State(resource string) State {
	return m.Get(resource).State()
}

// Snapshot returns the record copy for resource.
func (m *Manager) Snapshot(resource string) Snapshot {
	return m.Get(resource).Snapshot()
}

// Snapshots returns a copy of every known resource record.
func (m *Manager) Snapshots() map[string]Snapshot {
	m.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(m.breakers))
	for _, cb := range m.breakers {
		breakers = append(breakers, cb)
	}
	m.mu.RUnlock()

	out := make(map[string]Snapshot, len(breakers))
	for _, cb := range breakers {
		out[cb.Resource()] = cb.Snapshot()
	}
	return out
}

// Reset manually closes the breaker for resource.
func (m *Manager) Reset(resource string) {
	m.Get(resource).Reset()
}

// ResetAll manually closes every known breaker.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(m.breakers))
	for _, cb := range m.breakers {
		breakers = append(breakers, cb)
	}
	m.mu.RUnlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}

// OnStateChange subscribes to transitions across every resource the
// manager owns, including breakers created later.
func (m *Manager) OnStateChange(listener func(StateChange)) UnsubscribeFunc {
	m.lmu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = listener
	m.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lmu.Lock()
			delete(m.listeners, id)
			m.lmu.Unlock()
		})
	}
}

func (m *Manager) fanOut(ev StateChange) {
	m.lmu.RLock()
	fns := make([]func(StateChange), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.lmu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Close stops every breaker's notification dispatcher.
func (m *Manager) Close() {
	m.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(m.breakers))
	for _, cb := range m.breakers {
		breakers = append(breakers, cb)
	}
	m.mu.Unlock()

	for _, cb := range breakers {
		cb.Close()
	}
}
