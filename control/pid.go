package control

import (
	"time"

	"github.com/samber/lo"
)

// PID is a discrete PID controller operating on position error. The integral is clamped to
// plus or minus IntegratorLimit when that limit is positive. It is not safe for concurrent use.
type PID struct {
	IntegratorLimit float64

	integral  float64
	lastError float64
	hasLast   bool
}

// Calculate returns kP*e + kI*∫e + kD*de/dt for e = setpoint - measurement.
func (p *PID) Calculate(g Gains, setpoint, measurement float64, dt time.Duration) float64 {
	err := setpoint - measurement
	dtS := dt.Seconds()

	output := g.KP * err
	if g.KI != 0 && dtS > 0 {
		p.integral += err * dtS
		if p.IntegratorLimit > 0 {
			p.integral = lo.Clamp(p.integral, -p.IntegratorLimit, p.IntegratorLimit)
		}
		output += g.KI * p.integral
	}
	if g.KD != 0 && dtS > 0 && p.hasLast {
		output += g.KD * (err - p.lastError) / dtS
	}
	p.lastError = err
	p.hasLast = true
	return output
}

// Reset clears the accumulated integral and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.lastError = 0
	p.hasLast = false
}
