package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/vibeworks/go-resilience/breaker"
	"github.com/vibeworks/go-resilience/logger"
)

// GuardedSpanExporter routes span batches to a primary exporter through
// a circuit breaker. While the circuit is open, batches go to the
// fallback exporter instead of waiting on a dead collector.
type GuardedSpanExporter struct {
	cb       *breaker.CircuitBreaker
	primary  sdktrace.SpanExporter
	fallback sdktrace.SpanExporter
	log      *logger.CtxLogger
}

var _ sdktrace.SpanExporter = (*GuardedSpanExporter)(nil)

// NewGuardedSpanExporter wraps primary. fallback may be nil, in which
// case batches are dropped while the circuit is open.
func NewGuardedSpanExporter(primary, fallback sdktrace.SpanExporter, cfg breaker.ResourceConfig, opts ...breaker.Option) *GuardedSpanExporter {
	return &GuardedSpanExporter{
		cb:       breaker.New("telemetry.exporter", cfg, opts...),
		primary:  primary,
		fallback: fallback,
		log:      logger.GetLogger("telemetry"),
	}
}

// ExportSpans sends the batch to the primary exporter. Export failures
// and fast-fails divert the batch to the fallback; the batch is never
// lost silently unless no fallback is configured.
func (g *GuardedSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	_, err := g.cb.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, g.primary.ExportSpans(ctx, spans)
	})
	if err == nil {
		return nil
	}
	if g.fallback == nil {
		return err
	}
	if !breaker.IsCircuitOpen(err) {
		g.log.WarnCtx(ctx, "primary span export failed, using fallback",
			zap.Int("spans", len(spans)), zap.Error(err))
	}
	return g.fallback.ExportSpans(ctx, spans)
}

// Breaker exposes the guarding circuit for status surfaces.
func (g *GuardedSpanExporter) Breaker() *breaker.CircuitBreaker { return g.cb }

// Shutdown stops both exporters and the breaker notifier.
func (g *GuardedSpanExporter) Shutdown(ctx context.Context) error {
	g.cb.Close()
	err := g.primary.Shutdown(ctx)
	if g.fallback != nil {
		if ferr := g.fallback.Shutdown(ctx); err == nil {
			err = ferr
		}
	}
	return err
}
