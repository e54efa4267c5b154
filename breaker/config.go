package breaker

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Tunable defaults. Product-adjustable, not contractually fixed.
const (
	// DefaultFailureThreshold is how many consecutive counted failures
	// open the circuit.
	DefaultFailureThreshold = 5

	// DefaultCoolDown is how long the circuit stays open before a probe
	// window.
	DefaultCoolDown = 30 * time.Second

	// DefaultEventBuffer sizes the per-breaker notification queue hint.
	DefaultEventBuffer = 64
)

// Cool-down policy names accepted in configuration.
const (
	CoolDownFixed       = "fixed"
	CoolDownExponential = "exponential"
)

// Config configures a Manager: a default per-resource policy plus
// per-resource overrides.
type Config struct {
	// EventBuffer hints the notification queue size.
	EventBuffer int `mapstructure:"event_buffer"`

	// Default applies to every resource without an override.
	Default ResourceConfig `mapstructure:"default"`

	// Resources overrides Default per resource name. Zero fields fall
	// back to Default.
	Resources map[string]ResourceConfig `mapstructure:"resources"`
}

// ResourceConfig is the policy for one logical upstream.
type ResourceConfig struct {
	// FailureThreshold opens the circuit when consecutive counted
	// failures reach it.
	FailureThreshold int `mapstructure:"failure_threshold"`

	// CoolDown is the open window length (the initial one under the
	// exponential policy).
	CoolDown time.Duration `mapstructure:"cool_down"`

	// CoolDownPolicy is "fixed" (default) or "exponential".
	CoolDownPolicy string `mapstructure:"cool_down_policy"`

	// CoolDownFactor is the per-episode growth under "exponential".
	CoolDownFactor float64 `mapstructure:"cool_down_factor"`

	// CoolDownMax caps the exponential window.
	CoolDownMax time.Duration `mapstructure:"cool_down_max"`

	// CountCancellations treats caller-cancelled requests as
	// network-class failures. Off by default: a component unmount is not
	// evidence the backend is down.
	CountCancellations bool `mapstructure:"count_cancellations"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		EventBuffer: DefaultEventBuffer,
		Default:     DefaultResourceConfig(),
		Resources:   make(map[string]ResourceConfig),
	}
}

// DefaultResourceConfig returns the stock per-resource policy.
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		FailureThreshold: DefaultFailureThreshold,
		CoolDown:         DefaultCoolDown,
		CoolDownPolicy:   CoolDownFixed,
		CoolDownFactor:   2.0,
		CoolDownMax:      5 * time.Minute,
	}
}

// Validate checks the whole manager configuration.
func (c *Config) Validate() error {
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	if err := c.Default.Validate(); err != nil {
		return err
	}
	for name, rc := range c.Resources {
		merged := c.Default.Merge(rc)
		c.Resources[name] = merged
		if err := merged.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks one resource policy.
func (rc ResourceConfig) Validate() error {
	return validation.ValidateStruct(&rc,
		validation.Field(&rc.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&rc.CoolDown, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&rc.CoolDownPolicy, validation.In("", CoolDownFixed, CoolDownExponential)),
		validation.Field(&rc.CoolDownFactor, validation.Min(1.0)),
	)
}

// Merge overlays non-zero override fields on rc.
func (rc ResourceConfig) Merge(override ResourceConfig) ResourceConfig {
	out := rc
	if override.FailureThreshold > 0 {
		out.FailureThreshold = override.FailureThreshold
	}
	if override.CoolDown > 0 {
		out.CoolDown = override.CoolDown
	}
	if override.CoolDownPolicy != "" {
		out.CoolDownPolicy = override.CoolDownPolicy
	}
	if override.CoolDownFactor > 0 {
		out.CoolDownFactor = override.CoolDownFactor
	}
	if override.CoolDownMax > 0 {
		out.CoolDownMax = override.CoolDownMax
	}
	if override.CountCancellations {
		out.CountCancellations = true
	}
	return out
}

// ResourceFor returns the effective policy for a resource.
func (c *Config) ResourceFor(resource string) ResourceConfig {
	if rc, ok := c.Resources[resource]; ok {
		return c.Default.Merge(rc)
	}
	return c.Default
}

// coolDown builds the CoolDown policy for this resource.
func (rc ResourceConfig) coolDown() CoolDown {
	if rc.CoolDownPolicy == CoolDownExponential {
		return ExponentialCoolDown{
			Initial: rc.CoolDown,
			Factor:  rc.CoolDownFactor,
			Max:     rc.CoolDownMax,
		}
	}
	return FixedCoolDown(rc.CoolDown)
}
