package logger

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CtxLogger is a context-aware zap wrapper. The module name is bound at
// creation; callers pass a ctx and trace identifiers are extracted from the
// active OTel span automatically.
type CtxLogger struct {
	mu     sync.RWMutex
	base   *zap.Logger
	module string
	cfg    Config
}

func (l *CtxLogger) rebind(base *zap.Logger, cfg Config) {
	l.mu.Lock()
	l.base = base
	l.cfg = cfg
	l.mu.Unlock()
}

func (l *CtxLogger) logger() (*zap.Logger, Config) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base, l.cfg
}

// DebugCtx logs at debug level with trace enrichment.
func (l *CtxLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	base, cfg := l.logger()
	base.Debug(msg, enrich(ctx, cfg, fields)...)
}

// InfoCtx logs at info level with trace enrichment.
func (l *CtxLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	base, cfg := l.logger()
	base.Info(msg, enrich(ctx, cfg, fields)...)
}

// WarnCtx logs at warn level with trace enrichment.
func (l *CtxLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	base, cfg := l.logger()
	base.Warn(msg, enrich(ctx, cfg, fields)...)
}

// ErrorCtx logs at error level with trace enrichment.
func (l *CtxLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	base, cfg := l.logger()
	base.Error(msg, enrich(ctx, cfg, fields)...)
}

// Debug logs without a context.
func (l *CtxLogger) Debug(msg string, fields ...zap.Field) {
	l.DebugCtx(context.Background(), msg, fields...)
}

// Info logs without a context.
func (l *CtxLogger) Info(msg string, fields ...zap.Field) {
	l.InfoCtx(context.Background(), msg, fields...)
}

// Warn logs without a context.
func (l *CtxLogger) Warn(msg string, fields ...zap.Field) {
	l.WarnCtx(context.Background(), msg, fields...)
}

// Error logs without a context.
func (l *CtxLogger) Error(msg string, fields ...zap.Field) {
	l.ErrorCtx(context.Background(), msg, fields...)
}

// With returns a logger carrying preset fields.
func (l *CtxLogger) With(fields ...zap.Field) *CtxLogger {
	base, cfg := l.logger()
	return &CtxLogger{
		base:   base.With(fields...),
		module: l.module,
		cfg:    cfg,
	}
}

// Zap exposes the underlying *zap.Logger for third-party integrations.
func (l *CtxLogger) Zap() *zap.Logger {
	base, _ := l.logger()
	return base
}

func enrich(ctx context.Context, cfg Config, fields []zap.Field) []zap.Field {
	enriched := make([]zap.Field, 0, len(fields)+3)
	if cfg.AppName != "" {
		enriched = append(enriched, zap.String("app_name", cfg.AppName))
	}
	if cfg.EnableTraceID && ctx != nil {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			enriched = append(enriched,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()))
		}
	}
	return append(enriched, fields...)
}
