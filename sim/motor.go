// Package sim is a physics model of a single jointed arm driven by DC motors through a gearbox,
// with a simulated sensor/motor capability the axis controller can be pointed at instead of
// real hardware.
//
// Angles are radians from horizontal, positive up.
package sim

import (
	"github.com/pkg/errors"

	"go.viam.com/armctl/utils"
)

// DCMotor is a brushed DC motor, or a gang of identical motors on one shaft, described by its
// datasheet values.
type DCMotor struct {
	Name string
	// NominalVoltage is the voltage the other values were measured at.
	NominalVoltage float64
	// StallTorque in newton meters.
	StallTorque float64
	// StallCurrent in amps.
	StallCurrent float64
	// FreeCurrent in amps.
	FreeCurrent float64
	// FreeSpeed in radians per second.
	FreeSpeed float64
}

func newMotor(name string, volts, stallTorque, stallCurrent, freeCurrent, freeSpeedRPM float64, count int) DCMotor {
	n := float64(count)
	return DCMotor{
		Name:           name,
		NominalVoltage: volts,
		StallTorque:    stallTorque * n,
		StallCurrent:   stallCurrent * n,
		FreeCurrent:    freeCurrent * n,
		FreeSpeed:      utils.RPMToRadsPerSec(freeSpeedRPM),
	}
}

// Vex775Pro returns count 775pro motors.
func Vex775Pro(count int) DCMotor {
	return newMotor("775pro", 12, 0.71, 134, 0.7, 18730, count)
}

// NEO returns count REV NEO motors.
func NEO(count int) DCMotor {
	return newMotor("neo", 12, 2.6, 105, 1.8, 5676, count)
}

// CIM returns count CIM motors.
func CIM(count int) DCMotor {
	return newMotor("cim", 12, 2.42, 133, 2.7, 5310, count)
}

// Falcon500 returns count Falcon 500 motors.
func Falcon500(count int) DCMotor {
	return newMotor("falcon500", 12, 4.69, 257, 1.5, 6380, count)
}

// MotorByName looks up a motor in the catalog.
func MotorByName(name string, count int) (DCMotor, error) {
	if count < 1 {
		return DCMotor{}, errors.Errorf("motor count must be at least 1, got %d", count)
	}
	switch name {
	case "775pro", "vex775pro":
		return Vex775Pro(count), nil
	case "neo":
		return NEO(count), nil
	case "cim":
		return CIM(count), nil
	case "falcon500", "falcon":
		return Falcon500(count), nil
	default:
		return DCMotor{}, errors.Errorf("unknown motor %q", name)
	}
}

// Validate checks that every datasheet value is positive and that the free current is below the
// stall current.
func (m DCMotor) Validate() error {
	if !utils.IsFinite(m.NominalVoltage, m.StallTorque, m.StallCurrent, m.FreeCurrent, m.FreeSpeed) ||
		m.NominalVoltage <= 0 || m.StallTorque <= 0 || m.StallCurrent <= 0 || m.FreeSpeed <= 0 ||
		m.FreeCurrent < 0 || m.FreeCurrent >= m.StallCurrent {
		return errors.Errorf("invalid motor %+v", m)
	}
	return nil
}

// Resistance is the winding resistance in ohms.
func (m DCMotor) Resistance() float64 {
	return m.NominalVoltage / m.StallCurrent
}

// Kv is the speed constant in radians per second per volt.
func (m DCMotor) Kv() float64 {
	return m.FreeSpeed / (m.NominalVoltage - m.Resistance()*m.FreeCurrent)
}

// Kt is the torque constant in newton meters per amp.
func (m DCMotor) Kt() float64 {
	return m.StallTorque / m.StallCurrent
}

// Current returns the current drawn at the given motor shaft speed and applied voltage.
func (m DCMotor) Current(speed, volts float64) float64 {
	return (volts - speed/m.Kv()) / m.Resistance()
}

// Torque returns the shaft torque produced by current.
func (m DCMotor) Torque(current float64) float64 {
	return m.Kt() * current
}
