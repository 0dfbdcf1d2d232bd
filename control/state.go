// Package control contains the leaf strategies of the axis controller: the trapezoidal motion
// profile, the feedforward models and PID feedback, along with the value types they share.
//
// All angles are radians and all rates are radians per second.
package control

import (
	"math"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/armctl/utils"
)

// State is a position and velocity pair. It describes a measurement, a goal or a profile
// setpoint depending on who holds it.
type State struct {
	Position float64
	Velocity float64
}

// Constraints bound the velocity and acceleration of a profile.
type Constraints struct {
	MaxVelocity     float64
	MaxAcceleration float64
}

// Validate returns an error unless both limits are finite and strictly positive.
func (c Constraints) Validate() error {
	if !utils.IsFinite(c.MaxVelocity, c.MaxAcceleration) || c.MaxVelocity <= 0 || c.MaxAcceleration <= 0 {
		return NewInvalidConstraintsError(c.MaxVelocity, c.MaxAcceleration)
	}
	return nil
}

// Gains holds the feedback and feedforward coefficients of an axis.
type Gains struct {
	KP float64
	KI float64
	KD float64

	KS float64
	KG float64
	KV float64
	KA float64
}

// Validate checks that every gain is finite and that the feedback gains are non-negative.
func (g Gains) Validate() error {
	var err error
	for _, named := range []struct {
		name        string
		value       float64
		nonNegative bool
	}{
		{"kP", g.KP, true},
		{"kI", g.KI, true},
		{"kD", g.KD, true},
		{"kS", g.KS, false},
		{"kG", g.KG, false},
		{"kV", g.KV, false},
		{"kA", g.KA, false},
	} {
		if !utils.IsFinite(named.value) {
			err = multierr.Append(err, NewNonFiniteGainError(named.name, named.value))
			continue
		}
		if named.nonNegative && named.value < 0 {
			err = multierr.Append(err, NewNegativeGainError(named.name, named.value))
		}
	}
	return err
}

// Tolerances define how close the measurement must be to the goal to count as arrived.
type Tolerances struct {
	Position float64
	Velocity float64
}

// Validate returns an error if either tolerance is negative or NaN.
func (t Tolerances) Validate() error {
	if !(t.Position >= 0) || !(t.Velocity >= 0) {
		return NewInvalidTolerancesError(t.Position, t.Velocity)
	}
	return nil
}

// Within reports whether the measurement is within tolerance of the goal position and at rest.
func (t Tolerances) Within(measurement, goal State) bool {
	return math.Abs(measurement.Position-goal.Position) <= t.Position &&
		math.Abs(measurement.Velocity) <= t.Velocity
}

// Range is the physical travel of a mechanism.
type Range struct {
	Min float64
	Max float64
}

// Validate returns an error unless Min < Max and both are finite.
func (r Range) Validate() error {
	if !utils.IsFinite(r.Min, r.Max) || r.Min >= r.Max {
		return NewInvalidRangeError(r.Min, r.Max)
	}
	return nil
}

// Clamp limits x to the range. NaN clamps to Min.
func (r Range) Clamp(x float64) float64 {
	if math.IsNaN(x) {
		return r.Min
	}
	return lo.Clamp(x, r.Min, r.Max)
}

// Contains reports whether x lies in the closed range.
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}
