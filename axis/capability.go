package axis

import (
	"go.viam.com/armctl/dispatch"
)

// Hardware is the motor and relative position sensor of one axis. The controller shares it with
// whoever else holds it (the simulator, in simulation) and never assumes exclusive access.
type Hardware interface {
	// Position returns the sensor position in radians relative to its last reset.
	Position() float64
	// Velocity returns the sensor velocity in radians per second.
	Velocity() float64
	// SetVoltage commands the motor.
	SetVoltage(volts float64)
	// Current returns the motor current draw in amps.
	Current() float64
	// ResetPosition makes the current position read as zero.
	ResetPosition()
}

// Preferences is a source of tunable values keyed by name.
type Preferences interface {
	GetDouble(key string, def float64) float64
}

// PreferenceInitializer is implemented by preference stores that can seed a default value
// without overwriting an existing one.
type PreferenceInitializer interface {
	InitDouble(key string, def float64)
}

// Scheduler is the part of the task dispatcher the controller calls back into.
type Scheduler interface {
	CancelRequiring(req dispatch.Requirement)
	SetDefaultTask(req dispatch.Requirement, task dispatch.Task) error
	RemoveDefaultTask(req dispatch.Requirement)
}
