package breaker

import (
	"math"
	"time"
)

// CoolDown decides how long the circuit stays open. The episode counter
// starts at 1 and increments on each consecutive open entry; it resets
// once a probe succeeds or the breaker is manually reset.
type CoolDown interface {
	Duration(episode int) time.Duration
}

// FixedCoolDown keeps every open window the same length.
func FixedCoolDown(d time.Duration) CoolDown {
	return fixedCoolDown(d)
}

type fixedCoolDown time.Duration

func (f fixedCoolDown) Duration(int) time.Duration { return time.Duration(f) }

// ExponentialCoolDown grows the window per consecutive open episode,
// capped at Max.
type ExponentialCoolDown struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// Duration implements CoolDown.
func (e ExponentialCoolDown) Duration(episode int) time.Duration {
	if episode < 1 {
		episode = 1
	}
	factor := e.Factor
	if factor < 1 {
		factor = 2.0
	}
	d := float64(e.Initial) * math.Pow(factor, float64(episode-1))
	if e.Max > 0 && d > float64(e.Max) {
		return e.Max
	}
	return time.Duration(d)
}

// Clock abstracts time for cool-down bookkeeping so tests can drive the
// window without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
