package sim

import (
	"math"
)

// Battery models supply sag as a fixed internal resistance.
type Battery struct {
	NominalVoltage   float64
	Resistance       float64
	QuiescentCurrent float64
}

// DefaultBattery is a charged 12V lead acid robot battery.
func DefaultBattery() Battery {
	return Battery{NominalVoltage: 13.2, Resistance: 0.040, QuiescentCurrent: 2}
}

// LoadedVoltage returns the terminal voltage while supplying currents (sign ignored) plus the
// quiescent draw. It never goes below zero.
func (b Battery) LoadedVoltage(currents ...float64) float64 {
	total := b.QuiescentCurrent
	for _, c := range currents {
		total += math.Abs(c)
	}
	return math.Max(0, b.NominalVoltage-total*b.Resistance)
}
