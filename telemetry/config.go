package telemetry

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/vibeworks/go-resilience/breaker"
)

// Exporter types.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNoop   = "noop"
)

// Config configures the telemetry bootstrap.
type Config struct {
	Enabled        bool           `mapstructure:"enabled"`
	ServiceName    string         `mapstructure:"service_name"`
	ServiceVersion string         `mapstructure:"service_version"`
	Exporter       ExporterConfig `mapstructure:"exporter"`
	Sampler        SamplerConfig  `mapstructure:"sampler"`
	Batch          BatchConfig    `mapstructure:"batch"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
	Guard          GuardConfig    `mapstructure:"guard"`
}

// ExporterConfig selects and addresses the exporter.
type ExporterConfig struct {
	// Type is otlp, stdout or noop.
	Type     string            `mapstructure:"type"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Sampler types.
const (
	SamplerAlwaysOn  = "always_on"
	SamplerAlwaysOff = "always_off"
	SamplerRatio     = "ratio"
)

// SamplerConfig selects the head sampling strategy.
type SamplerConfig struct {
	Type string `mapstructure:"type"`
	// Ratio applies when Type is ratio, in [0, 1].
	Ratio float64 `mapstructure:"ratio"`
}

// BatchConfig tunes the span batch processor.
type BatchConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxQueueSize  int           `mapstructure:"max_queue_size"`
	ScheduleDelay time.Duration `mapstructure:"schedule_delay"`
}

// MetricsConfig tunes the meter provider.
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// GuardConfig wraps the span exporter in a circuit breaker so a dead
// collector cannot stall the pipeline; spans fall back to a secondary
// exporter while the circuit is open.
type GuardConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Breaker is the per-exporter circuit policy.
	Breaker breaker.ResourceConfig `mapstructure:"breaker"`

	// FallbackType is stdout or noop.
	FallbackType string `mapstructure:"fallback_type"`
}

// DefaultConfig returns the stock telemetry configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		ServiceName:    "go-resilience",
		ServiceVersion: "dev",
		Exporter: ExporterConfig{
			Type:    ExporterStdout,
			Timeout: 10 * time.Second,
		},
		Sampler: SamplerConfig{
			Type: SamplerAlwaysOn,
		},
		Batch: BatchConfig{
			Enabled:       true,
			MaxQueueSize:  2048,
			ScheduleDelay: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			ExportInterval: time.Minute,
		},
		Guard: GuardConfig{
			Enabled:      false,
			FallbackType: ExporterNoop,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Exporter, validation.By(func(any) error {
			return c.Exporter.validate()
		})),
		validation.Field(&c.Sampler, validation.By(func(any) error {
			return c.Sampler.validate()
		})),
		validation.Field(&c.Guard, validation.By(func(any) error {
			return c.Guard.validate()
		})),
	)
}

func (e ExporterConfig) validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required,
			validation.In(ExporterOTLP, ExporterStdout, ExporterNoop)),
		validation.Field(&e.Endpoint, validation.Required.When(e.Type == ExporterOTLP)),
	)
}

func (s SamplerConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Type,
			validation.In("", SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio)),
		validation.Field(&s.Ratio,
			validation.Min(0.0), validation.Max(1.0)),
	)
}

func (g GuardConfig) validate() error {
	if !g.Enabled {
		return nil
	}
	return validation.ValidateStruct(&g,
		validation.Field(&g.FallbackType,
			validation.In("", ExporterStdout, ExporterNoop)),
	)
}
