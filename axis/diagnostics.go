package axis

import (
	"go.viam.com/armctl/control"
	"go.viam.com/armctl/telemetry"
	"go.viam.com/armctl/utils"
)

// Diagnostics is a snapshot of a controller for telemetry.
type Diagnostics struct {
	Name        string
	Enabled     bool
	Goal        control.State
	Setpoint    control.State
	Measurement control.State
	Feedback    float64
	Feedforward float64
	Output      float64
	Current     float64
	Gains       control.Gains
	Constraints control.Constraints
}

// Diagnostics returns the current snapshot.
func (c *Controller) Diagnostics() Diagnostics {
	return Diagnostics{
		Name:        c.cfg.Name,
		Enabled:     c.enabled,
		Goal:        c.goal,
		Setpoint:    c.setpoint,
		Measurement: c.Measurement(),
		Feedback:    c.feedback,
		Feedforward: c.ffOutput,
		Output:      c.output,
		Current:     c.hw.Current(),
		Gains:       c.gains,
		Constraints: c.constraints,
	}
}

// Publish writes the snapshot to sink under "<Name> ..." keys. Angles are in degrees.
func (c *Controller) Publish(sink telemetry.Sink) {
	c.Diagnostics().Publish(sink)
}

// Publish writes the snapshot to sink under "<Name> ..." keys. Angles are in degrees.
func (d Diagnostics) Publish(sink telemetry.Sink) {
	prefix := d.Name + " "
	sink.PutBool(prefix+"Enabled", d.Enabled)
	sink.PutNumber(prefix+"Goal", utils.RadToDeg(d.Goal.Position))
	sink.PutNumber(prefix+"Angle", utils.RadToDeg(d.Measurement.Position))
	sink.PutNumber(prefix+"Velocity", utils.RadToDeg(d.Measurement.Velocity))
	sink.PutNumber(prefix+"Voltage", d.Output)
	sink.PutNumber(prefix+"Current", d.Current)
	sink.PutNumber(prefix+"Feedforward", d.Feedforward)
	sink.PutNumber(prefix+"PID output", d.Feedback)
	sink.PutNumber(prefix+"SetPt Pos", utils.RadToDeg(d.Setpoint.Position))
	sink.PutNumber(prefix+"SetPt Vel", utils.RadToDeg(d.Setpoint.Velocity))
}
