// Package logger provides zap-based structured logging with per-module
// loggers and optional trace-context enrichment.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	rootCfg Config
	modules = make(map[string]*CtxLogger)
)

// Init builds the process root logger from cfg. Module loggers handed out
// before Init write through a no-op core; call Init early.
func Init(cfg Config) error {
	base, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = base
	rootCfg = cfg
	// Rebind already-issued module loggers to the new core.
	for module, l := range modules {
		l.rebind(base.With(zap.String("module", module)), cfg)
	}
	return nil
}

// GetLogger returns the logger for a module, creating it on first use.
// Safe to call before Init; entries are dropped until Init runs.
func GetLogger(module string) *CtxLogger {
	mu.RLock()
	if l, ok := modules[module]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := modules[module]; ok {
		return l
	}

	base := root
	if base == nil {
		base = zap.NewNop()
	}
	l := &CtxLogger{
		base:   base.With(zap.String("module", module)),
		module: module,
		cfg:    rootCfg,
	}
	modules[module] = l
	return l
}

// Sync flushes buffered entries on the root logger.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return nil
	}
	return root.Sync()
}

func build(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	switch cfg.Output {
	case "file":
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	case "stderr":
		sink = zapcore.AddSync(os.Stderr)
	default:
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}
