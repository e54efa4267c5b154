// Package connectivity watches whether the process can reach the outside
// world, the way a browser watches its online/offline events. It runs
// scheduled reachability probes, detects edges, and can nudge an open
// circuit breaker into an early probe when the network comes back.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/logger"
)

// Change is an online/offline edge.
type Change struct {
	Online bool
	At     time.Time
}

// UnsubscribeFunc removes a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// Monitor tracks reachability with scheduled probes plus on-demand
// checks. Concurrent CheckNow calls coalesce into one probe.
type Monitor struct {
	cfg    Config
	prober Prober
	log    *logger.CtxLogger
	sf     singleflight.Group

	mu        sync.Mutex
	online    bool
	scheduler gocron.Scheduler
	started   bool

	smu    sync.RWMutex
	subs   map[uint64]func(Change)
	nextID uint64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProber sets the reachability prober.
func WithProber(p Prober) Option {
	return func(m *Monitor) {
		if p != nil {
			m.prober = p
		}
	}
}

// WithLogger overrides the module logger.
func WithLogger(log *logger.CtxLogger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a monitor. Without WithProber the target from cfg is
// TCP-dialed.
func New(cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("connectivity: invalid config: %w", err)
	}

	m := &Monitor{
		cfg:    cfg,
		online: cfg.AssumeOnline,
		log:    logger.GetLogger("connectivity"),
		subs:   make(map[uint64]func(Change)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.prober == nil {
		if cfg.Target == "" {
			return nil, fmt.Errorf("connectivity: no prober and no target configured")
		}
		m.prober = TCPProber(cfg.Target)
	}
	return m, nil
}

// Start schedules periodic checks. Idempotent.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("connectivity: create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(m.cfg.Interval),
		gocron.NewTask(func() {
			_, _ = m.CheckNow(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("connectivity: schedule check: %w", err)
	}

	scheduler.Start()
	m.scheduler = scheduler
	m.started = true
	m.log.InfoCtx(ctx, "connectivity monitor started",
		zap.Duration("interval", m.cfg.Interval))
	return nil
}

// Stop halts scheduled checks and waits for a running one to finish.
// Idempotent.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	scheduler := m.scheduler
	m.scheduler = nil
	return scheduler.Shutdown()
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// CheckNow probes immediately and returns the resulting state.
// Concurrent callers share a single probe via singleflight.
func (m *Monitor) CheckNow(ctx context.Context) (bool, error) {
	result, err, _ := m.sf.Do("probe", func() (any, error) {
		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		defer cancel()

		probeErr := m.prober.Probe(probeCtx)
		online := probeErr == nil
		m.setOnline(ctx, online)
		return online, probeErr
	})
	online, _ := result.(bool)
	return online, err
}

// SetState feeds an external connectivity signal, for embedders that
// have their own source of truth. Edges notify subscribers exactly like
// probed ones.
func (m *Monitor) SetState(online bool) {
	m.setOnline(context.Background(), online)
}

// Subscribe registers fn for every edge. Delivery is synchronous on the
// goroutine that detected the edge.
func (m *Monitor) Subscribe(fn func(Change)) UnsubscribeFunc {
	m.smu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.smu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.smu.Lock()
			delete(m.subs, id)
			m.smu.Unlock()
		})
	}
}

// BindBreaker wires the offline-to-online edge into a breaker: coming
// back online unlocks an early probe on an open circuit, and when
// probeFn is given one probe runs right away. Going offline never
// touches breaker state; in-flight failures already count.
func (m *Monitor) BindBreaker(cb *breaker.CircuitBreaker, probeFn func(ctx context.Context) (any, error)) UnsubscribeFunc {
	return m.Subscribe(func(change Change) {
		if !change.Online {
			return
		}
		if !cb.State().IsOpen() {
			return
		}
		cb.PermitEarlyProbe()
		m.log.Info("back online, unlocking early probe",
			zap.String("resource", cb.Resource()))
		if probeFn != nil {
			_, _ = cb.Execute(context.Background(), probeFn)
		}
	})
}

// setOnline flips the state on an edge and notifies subscribers.
func (m *Monitor) setOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	if online {
		m.log.InfoCtx(ctx, "connectivity restored")
	} else {
		m.log.WarnCtx(ctx, "connectivity lost")
	}

	change := Change{Online: online, At: time.Now()}
	m.smu.RLock()
	fns := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.smu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("connectivity subscriber panicked", zap.Any("panic", r))
				}
			}()
			fn(change)
		}()
	}
}
