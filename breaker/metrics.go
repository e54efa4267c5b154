package breaker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName identifies the breaker instrumentation scope.
const MeterName = "go-resilience/breaker"

// Metrics records breaker activity on an OTel meter. A nil *Metrics is
// valid everywhere and records nothing.
type Metrics struct {
	mu         sync.RWMutex
	registered bool

	requests     metric.Int64Counter
	failures     metric.Int64Counter
	rejections   metric.Int64Counter
	probes       metric.Int64Counter
	callDuration metric.Float64Histogram
	stateGauge   metric.Int64ObservableGauge

	stateMu        sync.RWMutex
	stateCallbacks map[string]func() int64
}

// NewMetrics creates an unregistered recorder. Call Register with a meter
// before any samples are kept.
func NewMetrics() *Metrics {
	return &Metrics{
		stateCallbacks: make(map[string]func() int64),
	}
}

// Register creates the instruments on meter. Registering twice is a no-op.
func (m *Metrics) Register(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}

	var err error
	if m.requests, err = meter.Int64Counter(
		"breaker.requests",
		metric.WithDescription("Calls admitted through the breaker"),
		metric.WithUnit("{call}"),
	); err != nil {
		return err
	}
	if m.failures, err = meter.Int64Counter(
		"breaker.failures",
		metric.WithDescription("Counted call failures, by classification"),
		metric.WithUnit("{call}"),
	); err != nil {
		return err
	}
	if m.rejections, err = meter.Int64Counter(
		"breaker.rejections",
		metric.WithDescription("Calls fast-failed while the circuit was open"),
		metric.WithUnit("{call}"),
	); err != nil {
		return err
	}
	if m.probes, err = meter.Int64Counter(
		"breaker.probes",
		metric.WithDescription("Half-open probe attempts"),
		metric.WithUnit("{call}"),
	); err != nil {
		return err
	}
	if m.callDuration, err = meter.Float64Histogram(
		"breaker.call.duration",
		metric.WithDescription("Admitted call duration"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}
	if m.stateGauge, err = meter.Int64ObservableGauge(
		"breaker.state",
		metric.WithDescription("Circuit state (0=closed, 1=open, 2=half-open)"),
		metric.WithInt64Callback(m.observeStates),
	); err != nil {
		return err
	}

	m.registered = true
	return nil
}

func (m *Metrics) observeStates(_ context.Context, observer metric.Int64Observer) error {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	for resource, fn := range m.stateCallbacks {
		observer.Observe(fn(), metric.WithAttributes(attribute.String("resource", resource)))
	}
	return nil
}

// RegisterStateCallback wires a resource's state into the observable gauge.
func (m *Metrics) RegisterStateCallback(resource string, fn func() int64) {
	if m == nil {
		return
	}
	m.stateMu.Lock()
	m.stateCallbacks[resource] = fn
	m.stateMu.Unlock()
}

// UnregisterStateCallback removes a resource from the gauge.
func (m *Metrics) UnregisterStateCallback(resource string) {
	if m == nil {
		return
	}
	m.stateMu.Lock()
	delete(m.stateCallbacks, resource)
	m.stateMu.Unlock()
}

func (m *Metrics) ready() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

func (m *Metrics) recordCall(ctx context.Context, resource string, class Classification, duration time.Duration) {
	if !m.ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("resource", resource))
	m.requests.Add(ctx, 1, attrs)
	m.callDuration.Record(ctx, duration.Seconds(), attrs)
	if class.Counts() {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resource", resource),
			attribute.String("class", class.String()),
		))
	}
}

func (m *Metrics) recordRejection(ctx context.Context, resource string) {
	if !m.ready() {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}

func (m *Metrics) recordProbe(ctx context.Context, resource string) {
	if !m.ready() {
		return
	}
	m.probes.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}
