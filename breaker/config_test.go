package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultEventBuffer, cfg.EventBuffer)
	assert.Equal(t, DefaultFailureThreshold, cfg.Default.FailureThreshold)
	assert.Equal(t, DefaultCoolDown, cfg.Default.CoolDown)
	assert.Equal(t, CoolDownFixed, cfg.Default.CoolDownPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Run("zero threshold rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Default.FailureThreshold = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero cool-down rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Default.CoolDown = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown policy rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Default.CoolDownPolicy = "random"
		assert.Error(t, cfg.Validate())
	})

	t.Run("resource overrides are merged before validation", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Resources = map[string]ResourceConfig{
			"api": {FailureThreshold: 3},
		}
		require.NoError(t, cfg.Validate())
		merged := cfg.Resources["api"]
		assert.Equal(t, 3, merged.FailureThreshold)
		assert.Equal(t, DefaultCoolDown, merged.CoolDown)
	})
}

func TestResourceFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default.CoolDown = 10 * time.Second
	cfg.Resources = map[string]ResourceConfig{
		"flaky": {FailureThreshold: 2, CoolDownPolicy: CoolDownExponential},
	}

	t.Run("override wins, defaults fill gaps", func(t *testing.T) {
		rc := cfg.ResourceFor("flaky")
		assert.Equal(t, 2, rc.FailureThreshold)
		assert.Equal(t, 10*time.Second, rc.CoolDown)
		assert.Equal(t, CoolDownExponential, rc.CoolDownPolicy)
	})

	t.Run("unknown resource gets default", func(t *testing.T) {
		rc := cfg.ResourceFor("other")
		assert.Equal(t, cfg.Default, rc)
	})
}

func TestCoolDownPolicies(t *testing.T) {
	t.Run("fixed", func(t *testing.T) {
		cd := FixedCoolDown(30 * time.Second)
		assert.Equal(t, 30*time.Second, cd.Duration(1))
		assert.Equal(t, 30*time.Second, cd.Duration(5))
	})

	t.Run("exponential doubles per episode", func(t *testing.T) {
		cd := ExponentialCoolDown{Initial: 10 * time.Second, Factor: 2, Max: time.Minute}
		assert.Equal(t, 10*time.Second, cd.Duration(1))
		assert.Equal(t, 20*time.Second, cd.Duration(2))
		assert.Equal(t, 40*time.Second, cd.Duration(3))
		assert.Equal(t, time.Minute, cd.Duration(4), "capped at max")
		assert.Equal(t, time.Minute, cd.Duration(10))
	})

	t.Run("exponential from resource config", func(t *testing.T) {
		rc := ResourceConfig{
			FailureThreshold: 1,
			CoolDown:         time.Second,
			CoolDownPolicy:   CoolDownExponential,
			CoolDownFactor:   3,
			CoolDownMax:      time.Hour,
		}
		cd := rc.coolDown()
		assert.Equal(t, time.Second, cd.Duration(1))
		assert.Equal(t, 3*time.Second, cd.Duration(2))
	})
}
