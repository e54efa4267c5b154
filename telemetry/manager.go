// Package telemetry bootstraps OpenTelemetry tracing and metrics for
// the process: it builds the providers, installs them globally and
// tears them down on shutdown. The span exporter can be guarded by a
// circuit breaker so an unreachable collector degrades to a fallback
// instead of backing up the pipeline.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vibeworks/go-resilience/logger"
)

// Manager owns the telemetry providers for the process.
type Manager struct {
	cfg Config
	log *logger.CtxLogger

	mu      sync.Mutex
	started bool
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	guard   *GuardedSpanExporter
}

// NewManager validates cfg and returns an unstarted manager.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("telemetry: invalid config: %w", err)
	}
	return &Manager{
		cfg: cfg,
		log: logger.GetLogger("telemetry"),
	}, nil
}

// Start builds the tracer and meter providers and installs them as the
// process globals. Starting a disabled or already started manager is a
// no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cfg.Enabled || m.started {
		return nil
	}

	res, err := buildResource(ctx, m.cfg)
	if err != nil {
		return fmt.Errorf("telemetry: build resource: %w", err)
	}

	exporter, err := m.buildSpanExporter(ctx)
	if err != nil {
		return err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(m.sampler()),
	}
	if m.cfg.Batch.Enabled {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(m.cfg.Batch.MaxQueueSize),
			sdktrace.WithBatchTimeout(m.cfg.Batch.ScheduleDelay),
		))
	} else {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exporter))
	}
	m.tp = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(m.tp)

	if m.cfg.Metrics.Enabled {
		reader, err := m.buildMetricReader(ctx)
		if err != nil {
			return err
		}
		m.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(m.mp)
	}

	m.started = true
	m.log.InfoCtx(ctx, "telemetry started",
		zap.String("service", m.cfg.ServiceName),
		zap.String("exporter", m.cfg.Exporter.Type),
		zap.Bool("guarded", m.guard != nil))
	return nil
}

// Shutdown flushes and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false

	var firstErr error
	if m.tp != nil {
		if err := m.tp.Shutdown(ctx); err != nil {
			firstErr = err
		}
		m.tp = nil
	}
	if m.mp != nil {
		if err := m.mp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.mp = nil
	}
	m.guard = nil
	return firstErr
}

// Tracer returns a tracer from the installed provider.
func (m *Manager) Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a meter from the installed provider.
func (m *Manager) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Guard returns the exporter guard, or nil when guarding is disabled.
func (m *Manager) Guard() *GuardedSpanExporter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guard
}

func (m *Manager) buildSpanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	primary, err := m.rawSpanExporter(ctx, m.cfg.Exporter.Type)
	if err != nil {
		return nil, err
	}
	if !m.cfg.Guard.Enabled {
		return primary, nil
	}

	fallbackType := m.cfg.Guard.FallbackType
	if fallbackType == "" {
		fallbackType = ExporterNoop
	}
	fallback, err := m.rawSpanExporter(ctx, fallbackType)
	if err != nil {
		return nil, err
	}
	m.guard = NewGuardedSpanExporter(primary, fallback, m.cfg.Guard.Breaker)
	return m.guard, nil
}

func (m *Manager) rawSpanExporter(ctx context.Context, typ string) (sdktrace.SpanExporter, error) {
	switch typ {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(m.cfg.Exporter.Endpoint),
			otlptracegrpc.WithTimeout(m.cfg.Exporter.Timeout),
		}
		if m.cfg.Exporter.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(m.cfg.Exporter.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(m.cfg.Exporter.Headers))
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
		}
		return exp, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("telemetry: create stdout exporter: %w", err)
		}
		return exp, nil
	case ExporterNoop:
		return noopSpanExporter{}, nil
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter type %q", typ)
	}
}

func (m *Manager) buildMetricReader(ctx context.Context) (sdkmetric.Reader, error) {
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch m.cfg.Exporter.Type {
	case ExporterOTLP:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(m.cfg.Exporter.Endpoint),
			otlpmetricgrpc.WithTimeout(m.cfg.Exporter.Timeout),
		}
		if m.cfg.Exporter.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		if len(m.cfg.Exporter.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(m.cfg.Exporter.Headers))
		}
		exp, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		exp, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exp,
		sdkmetric.WithInterval(m.cfg.Metrics.ExportInterval),
	), nil
}

func (m *Manager) sampler() sdktrace.Sampler {
	switch m.cfg.Sampler.Type {
	case SamplerAlwaysOff:
		return sdktrace.NeverSample()
	case SamplerRatio:
		return sdktrace.TraceIDRatioBased(m.cfg.Sampler.Ratio)
	default:
		return sdktrace.AlwaysSample()
	}
}

// noopSpanExporter drops every batch. Used as the default guard
// fallback and as the noop exporter type.
type noopSpanExporter struct{}

func (noopSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopSpanExporter) Shutdown(context.Context) error                             { return nil }
