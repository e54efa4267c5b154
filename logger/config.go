package logger

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config controls how loggers are built.
type Config struct {
	// Level is the minimum level: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format selects the encoder: json or console
	Format string `mapstructure:"format"`

	// Output is where logs go: stdout, stderr or file
	Output string `mapstructure:"output"`

	// File holds rotation settings, used when Output == "file"
	File FileConfig `mapstructure:"file"`

	// EnableTraceID injects trace_id/span_id from the active OTel span context
	EnableTraceID bool `mapstructure:"enable_trace_id"`

	// AppName is stamped on every entry when set
	AppName string `mapstructure:"app_name"`
}

// FileConfig is the lumberjack rotation config.
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns the development-friendly defaults.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "console",
		Output:        "stdout",
		EnableTraceID: true,
		File: FileConfig{
			Path:       "logs/app.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Validate implements the config.Validator interface.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("", "json", "console")),
		validation.Field(&c.Output, validation.In("", "stdout", "stderr", "file")),
	)
}
