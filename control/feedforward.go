package control

import (
	"math"

	"go.viam.com/armctl/utils"
)

// Feedforward computes an open-loop actuator command from a reference state.
type Feedforward interface {
	Calculate(g Gains, position, velocity, acceleration float64) float64
}

// ArmFeedforward models a rotating arm. Position is measured from horizontal, so the gravity term
// is largest with the arm level and vanishes with the arm vertical.
//
//	kS*sign(v) + kG*cos(position) + kV*v + kA*a
type ArmFeedforward struct{}

// Calculate implements Feedforward.
func (ArmFeedforward) Calculate(g Gains, position, velocity, acceleration float64) float64 {
	return g.KS*utils.Sign(velocity) + g.KG*math.Cos(position) + g.KV*velocity + g.KA*acceleration
}

// ElevatorFeedforward models a mechanism whose gravity load does not depend on position.
type ElevatorFeedforward struct{}

// Calculate implements Feedforward.
func (ElevatorFeedforward) Calculate(g Gains, position, velocity, acceleration float64) float64 {
	return g.KS*utils.Sign(velocity) + g.KG + g.KV*velocity + g.KA*acceleration
}

// SimpleFeedforward ignores gravity; kG is unused.
type SimpleFeedforward struct{}

// Calculate implements Feedforward.
func (SimpleFeedforward) Calculate(g Gains, position, velocity, acceleration float64) float64 {
	return g.KS*utils.Sign(velocity) + g.KV*velocity + g.KA*acceleration
}

// FeedforwardByName returns the model registered under name: "arm", "elevator" or "simple". The
// empty name selects the arm model.
func FeedforwardByName(name string) (Feedforward, bool) {
	switch name {
	case "", "arm":
		return ArmFeedforward{}, true
	case "elevator":
		return ElevatorFeedforward{}, true
	case "simple":
		return SimpleFeedforward{}, true
	default:
		return nil, false
	}
}
