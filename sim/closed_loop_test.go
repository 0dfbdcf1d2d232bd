package sim

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/armctl/axis"
	"go.viam.com/armctl/control"
	"go.viam.com/armctl/dispatch"
	"go.viam.com/armctl/logging"
	"go.viam.com/armctl/telemetry"
	"go.viam.com/armctl/utils"
)

func armAxisConfig() axis.Config {
	return axis.Config{
		Name:   "Arm",
		Range:  control.Range{Min: utils.DegToRad(-75), Max: utils.DegToRad(255)},
		Offset: utils.DegToRad(-75),
		Gains:  control.Gains{KP: 10, KS: 0.1, KG: 1.26, KV: 1.217},
		Constraints: control.Constraints{
			MaxVelocity:     utils.DegToRad(90),
			MaxAcceleration: utils.DegToRad(360),
		},
		Tolerances:     control.Tolerances{Position: utils.DegToRad(2), Velocity: utils.DegToRad(5)},
		Period:         tick,
		ShiftIncrement: utils.DegToRad(5),
	}
}

func TestClosedLoop(t *testing.T) {
	for _, tc := range []struct {
		name  string
		goal  float64
		noise float64
	}{
		{"up to vertical", 90, 0},
		{"level", 0, 0},
		{"over the top", 250, 0},
		{"with encoder noise", 90, EncoderResolution},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logger := logging.NewTestLogger(t)
			logger.SetLevel(logging.INFO)
			arm, err := NewArmSim(defaultArmConfig())
			test.That(t, err, test.ShouldBeNil)
			hw := NewHardware(0, WithPositionNoise(tc.noise, 1))
			table := telemetry.NewTable()
			model := NewArmModel("Arm", arm, hw, DefaultBattery(), table)

			sched := dispatch.NewScheduler(logger)
			ctrl, err := axis.New(armAxisConfig(), hw, logger, axis.WithScheduler(sched))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ctrl.MeasuredPosition(), test.ShouldAlmostEqual, utils.DegToRad(-75), 10*EncoderResolution)

			var simErr error
			sched.AddPeriodic(func() {
				if err := model.Update(tick); err != nil && simErr == nil {
					simErr = err
				}
			})

			goal := utils.DegToRad(tc.goal)
			move := ctrl.MoveTo(goal)
			sched.Schedule(move)

			arrived := -1
			for i := 0; i < 250; i++ {
				sched.Tick()
				setpoint := ctrl.Setpoint()
				test.That(t, setpoint.Velocity, test.ShouldBeLessThanOrEqualTo, utils.DegToRad(90)+1e-9)
				if !sched.IsScheduled(move) {
					arrived = i
					break
				}
			}
			test.That(t, simErr, test.ShouldBeNil)
			test.That(t, arrived, test.ShouldBeGreaterThan, 0)
			test.That(t, ctrl.AtGoal(), test.ShouldBeTrue)
			test.That(t, arm.State().Angle, test.ShouldAlmostEqual, goal, utils.DegToRad(2))

			// the hold task keeps it there
			for i := 0; i < 50; i++ {
				sched.Tick()
			}
			test.That(t, sched.IsScheduled(ctrl.Hold()), test.ShouldBeTrue)
			test.That(t, arm.State().Angle, test.ShouldAlmostEqual, goal, utils.DegToRad(2))

			ctrl.Publish(table)
			angle, _ := table.Number("Arm Angle")
			simAngle, _ := table.Number("Arm Sim Angle")
			test.That(t, angle, test.ShouldAlmostEqual, simAngle, 0.1)

			ctrl.Disable()
			sched.Tick()
			test.That(t, hw.CommandedVoltage(), test.ShouldEqual, 0.0)
		})
	}
}
