package sim

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/armctl/telemetry"
	"go.viam.com/armctl/utils"
)

// ArmModel ties an ArmSim to the Hardware a controller drives. Each Update feeds the commanded
// voltage through the physics and writes the result back into the sensors.
type ArmModel struct {
	name    string
	arm     *ArmSim
	hw      *Hardware
	battery Battery
	sink    telemetry.Sink

	batteryVoltage float64
}

// NewArmModel returns a model publishing to sink, which may be nil. The hardware starts at the
// arm's true angle.
func NewArmModel(name string, arm *ArmSim, hw *Hardware, battery Battery, sink telemetry.Sink) *ArmModel {
	if sink == nil {
		sink = telemetry.Discard
	}
	state := arm.State()
	hw.SetSensors(state.Angle, state.Velocity, 0)
	return &ArmModel{
		name:           name,
		arm:            arm,
		hw:             hw,
		battery:        battery,
		sink:           sink,
		batteryVoltage: battery.LoadedVoltage(),
	}
}

// Update advances the simulation by dt. The supply available to the motor is the battery
// voltage under the previous step's load.
func (m *ArmModel) Update(dt time.Duration) error {
	m.arm.SetSupplyVoltage(m.batteryVoltage)
	if err := m.arm.Step(m.hw.CommandedVoltage(), dt); err != nil {
		return errors.Wrapf(err, "%s sim", m.name)
	}
	state := m.arm.State()
	current := m.arm.CurrentDraw()
	m.hw.SetSensors(state.Angle, state.Velocity, current)
	m.batteryVoltage = m.battery.LoadedVoltage(current)

	m.sink.PutNumber(m.name+" Sim Angle", utils.RadToDeg(state.Angle))
	m.sink.PutNumber(m.name+" Sim Current", current)
	m.sink.PutNumber("Battery Voltage", m.batteryVoltage)
	return nil
}

// Arm returns the physics model.
func (m *ArmModel) Arm() *ArmSim {
	return m.arm
}

// Hardware returns the simulated capability.
func (m *ArmModel) Hardware() *Hardware {
	return m.hw
}

// BatteryVoltage returns the loaded battery voltage after the last update.
func (m *ArmModel) BatteryVoltage() float64 {
	return m.batteryVoltage
}
