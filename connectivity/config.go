package connectivity

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Defaults for the reachability monitor.
const (
	DefaultInterval     = 15 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// Config configures a Monitor.
type Config struct {
	// Interval between scheduled reachability checks.
	Interval time.Duration `mapstructure:"interval"`

	// ProbeTimeout bounds each individual probe.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`

	// Target is the address or URL handed to the prober.
	Target string `mapstructure:"target"`

	// AssumeOnline starts the monitor in the online state. A Go process
	// without an environment signal has no reason to assume it is cut
	// off before the first check says so.
	AssumeOnline bool `mapstructure:"assume_online"`
}

// DefaultConfig returns the stock monitor configuration.
func DefaultConfig() Config {
	return Config{
		Interval:     DefaultInterval,
		ProbeTimeout: DefaultProbeTimeout,
		AssumeOnline: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ProbeTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}
