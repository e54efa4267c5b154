package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a CtxLogger backed by an observer core so tests can
// assert on recorded entries without touching the process registry.
func NewTestLogger() (*CtxLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &CtxLogger{
		base:   zap.New(core),
		module: "test",
		cfg:    Config{Level: "debug"},
	}, logs
}
