// Package breaker implements a per-upstream circuit breaker for outbound
// calls. Consecutive server-class failures open the circuit; while open,
// calls fail fast with a CircuitOpenError instead of waiting out a network
// timeout. After a cool-down window a single probe is let through, and its
// outcome decides between recovery and another open episode.
//
// Client-class (4xx) outcomes never affect circuit health: a misbehaving
// request is not a misbehaving backend.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/vibeworks/go-resilience/logger"
	"go.uber.org/zap"
)

// Option customizes a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithLogger sets the structured logger.
func WithLogger(log *logger.CtxLogger) Option {
	return func(cb *CircuitBreaker) { cb.log = log }
}

// WithClock injects a clock, letting tests drive cool-down windows.
func WithClock(clock Clock) Option {
	return func(cb *CircuitBreaker) {
		if clock != nil {
			cb.clock = clock
		}
	}
}

// WithClassifier replaces the default outcome classifier.
func WithClassifier(classify Classifier) Option {
	return func(cb *CircuitBreaker) {
		if classify != nil {
			cb.classify = classify
		}
	}
}

// WithCoolDown overrides the cool-down policy derived from config.
func WithCoolDown(cd CoolDown) Option {
	return func(cb *CircuitBreaker) {
		if cd != nil {
			cb.coolDown = cd
		}
	}
}

// WithMetrics attaches an OTel metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(cb *CircuitBreaker) { cb.metrics = m }
}

// CircuitBreaker is the record for one logical upstream. Construct with
// New (or through a Manager); the zero value is not usable.
//
// All record mutations happen under one mutex with no I/O inside the
// critical section, so concurrent callers never observe a torn state and
// only one can win the probe slot.
type CircuitBreaker struct {
	resource string
	cfg      ResourceConfig
	coolDown CoolDown
	classify Classifier
	clock    Clock
	log      *logger.CtxLogger
	metrics  *Metrics
	notifier *notifier

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	probeInFlight       bool
	earlyProbe          bool
	openEpisodes        int
	lastErr             error
	lastClass           Classification
}

// New builds a breaker for one resource. Each upstream gets its own
// instance; nothing here is process-global, so tests can run independent
// breakers side by side.
func New(resource string, cfg ResourceConfig, opts ...Option) *CircuitBreaker {
	merged := DefaultResourceConfig().Merge(cfg)
	cb := &CircuitBreaker{
		resource: resource,
		cfg:      merged,
		coolDown: merged.coolDown(),
		classify: ClassifyError,
		clock:    SystemClock(),
		log:      logger.GetLogger("resilience"),
		notifier: newNotifier(DefaultEventBuffer),
		state:    StateClosed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cb)
		}
	}
	if cb.metrics != nil {
		res := resource
		cb.metrics.RegisterStateCallback(res, func() int64 {
			return int64(cb.State())
		})
	}
	return cb
}

// Execute runs fn under the breaker's protection.
//
// While open within the cool-down window it returns a *CircuitOpenError
// without invoking fn. Once the window elapses the first caller becomes
// the probe; concurrent callers keep fast-failing until the probe
// resolves. Otherwise fn runs and its result or error is returned
// unchanged; the breaker only ever adds an error for calls it never made.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	probe, err := cb.admit()
	if err != nil {
		cb.metrics.recordRejection(ctx, cb.resource)
		cb.log.DebugCtx(ctx, "call rejected, circuit open",
			zap.String("resource", cb.resource))
		return nil, err
	}
	if probe {
		cb.metrics.recordProbe(ctx, cb.resource)
		cb.log.InfoCtx(ctx, "probing upstream",
			zap.String("resource", cb.resource))
	}

	start := cb.clock.Now()
	result, callErr := fn(ctx)
	cb.settle(ctx, probe, cb.clock.Now().Sub(start), callErr)
	return result, callErr
}

// admit decides whether the caller may proceed and whether it holds the
// probe slot. The check and the slot write happen under one lock hold.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return false, nil

	case StateOpen:
		now := cb.clock.Now()
		if cb.earlyProbe || !now.Before(cb.nextProbeAtLocked()) {
			cb.earlyProbe = false
			cb.probeInFlight = true
			cb.transitionLocked(StateHalfOpen, now)
			return true, nil
		}
		return false, cb.openErrorLocked(now)

	case StateHalfOpen:
		if !cb.probeInFlight {
			cb.probeInFlight = true
			return true, nil
		}
		return false, cb.openErrorLocked(cb.clock.Now())

	default:
		return false, cb.openErrorLocked(cb.clock.Now())
	}
}

// settle records the outcome of a completed call.
func (cb *CircuitBreaker) settle(ctx context.Context, probe bool, duration time.Duration, callErr error) {
	class := cb.classify(callErr)
	if class == ClassCancelled && cb.cfg.CountCancellations {
		class = ClassNetworkError
	}
	cb.metrics.recordCall(ctx, cb.resource, class, duration)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()

	switch class {
	case ClassSuccess:
		if probe && cb.state == StateHalfOpen {
			// Probe succeeded: full recovery.
			cb.probeInFlight = false
			cb.consecutiveFailures = 0
			cb.openedAt = time.Time{}
			cb.openEpisodes = 0
			cb.lastErr = nil
			cb.transitionLocked(StateClosed, now)
			cb.log.InfoCtx(ctx, "probe succeeded, circuit closed",
				zap.String("resource", cb.resource))
			return
		}
		if cb.state == StateClosed {
			cb.consecutiveFailures = 0
		}

	case ClassServerError, ClassNetworkError:
		cb.lastErr = callErr
		cb.lastClass = class
		if probe && cb.state == StateHalfOpen {
			// Probe failed: relapse into a fresh open window.
			cb.probeInFlight = false
			cb.openedAt = now
			cb.openEpisodes++
			cb.transitionLocked(StateOpen, now)
			cb.log.WarnCtx(ctx, "probe failed, circuit reopened",
				zap.String("resource", cb.resource),
				zap.Int("open_episodes", cb.openEpisodes),
				zap.Error(callErr))
			return
		}
		if cb.state == StateClosed {
			cb.consecutiveFailures++
			if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
				cb.openedAt = now
				cb.openEpisodes++
				cb.transitionLocked(StateOpen, now)
				cb.log.WarnCtx(ctx, "failure threshold reached, circuit opened",
					zap.String("resource", cb.resource),
					zap.Int("failures", cb.consecutiveFailures),
					zap.Error(callErr))
			}
		}

	case ClassClientError, ClassCancelled:
		// Neutral: no counter movement, no transition. A neutral probe
		// outcome releases the slot so the next caller may probe.
		if probe && cb.state == StateHalfOpen {
			cb.probeInFlight = false
		}
	}
}

// State returns the current circuit position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a copy of the record for status surfaces.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	snap := Snapshot{
		Resource:            cb.resource,
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		OpenedAt:            cb.openedAt,
		ProbeInFlight:       cb.probeInFlight,
		OpenEpisodes:        cb.openEpisodes,
		LastError:           cb.lastErr,
		LastClass:           cb.lastClass,
	}
	if cb.state == StateOpen {
		snap.NextProbeAt = cb.nextProbeAtLocked()
	}
	return snap
}

// Reset forces the circuit closed. It backs the manual "Retry Now"
// affordance: no request is made, and the very next call determines real
// health again, counting failures from 1.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.state != StateClosed
	now := cb.clock.Now()
	cb.consecutiveFailures = 0
	cb.openedAt = time.Time{}
	cb.probeInFlight = false
	cb.earlyProbe = false
	cb.openEpisodes = 0
	cb.lastErr = nil
	if changed {
		cb.transitionLocked(StateClosed, now)
	}
	cb.mu.Unlock()

	if changed {
		cb.log.Info("circuit manually reset", zap.String("resource", cb.resource))
	}
}

// PermitEarlyProbe marks the current cool-down as satisfied, so the next
// call becomes the probe. A connectivity monitor calls this when the
// network comes back; it is a no-op unless the circuit is open.
func (cb *CircuitBreaker) PermitEarlyProbe() {
	cb.mu.Lock()
	if cb.state == StateOpen {
		cb.earlyProbe = true
	}
	cb.mu.Unlock()
}

// OnStateChange subscribes to transitions. Each transition is delivered
// exactly once, in order. The listener runs on the breaker's dispatch
// goroutine; keep it quick.
func (cb *CircuitBreaker) OnStateChange(listener func(StateChange)) UnsubscribeFunc {
	return cb.notifier.subscribe(listener)
}

// Resource returns the upstream name this breaker guards.
func (cb *CircuitBreaker) Resource() string { return cb.resource }

// Close stops the notification dispatcher after draining pending events.
func (cb *CircuitBreaker) Close() {
	if cb.metrics != nil {
		cb.metrics.UnregisterStateCallback(cb.resource)
	}
	cb.notifier.close()
}

// nextProbeAtLocked computes when the current open window elapses.
func (cb *CircuitBreaker) nextProbeAtLocked() time.Time {
	episode := cb.openEpisodes
	if episode < 1 {
		episode = 1
	}
	return cb.openedAt.Add(cb.coolDown.Duration(episode))
}

func (cb *CircuitBreaker) openErrorLocked(now time.Time) error {
	openErr := &CircuitOpenError{
		Resource: cb.resource,
		OpenedAt: cb.openedAt,
	}
	if cb.state == StateOpen {
		if retryIn := cb.nextProbeAtLocked().Sub(now); retryIn > 0 {
			openErr.RetryIn = retryIn
		}
	}
	return openErr
}

// transitionLocked flips the state and queues exactly one notification.
// Must be called with cb.mu held; publishing never blocks.
func (cb *CircuitBreaker) transitionLocked(to State, at time.Time) {
	from := cb.state
	cb.state = to
	cb.notifier.publish(StateChange{
		Resource: cb.resource,
		From:     from,
		To:       to,
		Failures: cb.consecutiveFailures,
		OpenedAt: cb.openedAt,
		Err:      cb.lastErr,
		At:       at,
	})
}
