package axis

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/armctl/control"
	"go.viam.com/armctl/dispatch"
	"go.viam.com/armctl/logging"
	"go.viam.com/armctl/prefs"
	"go.viam.com/armctl/telemetry"
	"go.viam.com/armctl/utils"
)

type fakeHardware struct {
	position float64
	velocity float64
	volts    float64
	current  float64
	resets   int
	commands int
}

func (f *fakeHardware) Position() float64 { return f.position }
func (f *fakeHardware) Velocity() float64 { return f.velocity }
func (f *fakeHardware) Current() float64  { return f.current }

func (f *fakeHardware) SetVoltage(volts float64) {
	f.volts = volts
	f.commands++
}

func (f *fakeHardware) ResetPosition() {
	f.position = 0
	f.resets++
}

type nanFeedforward struct{}

func (nanFeedforward) Calculate(control.Gains, float64, float64, float64) float64 {
	return math.NaN()
}

func testConfig() Config {
	return Config{
		Name:   "Arm",
		Range:  control.Range{Min: utils.DegToRad(-45), Max: utils.DegToRad(120)},
		Offset: utils.DegToRad(-45),
		Gains: control.Gains{
			KP: 10,
			KS: 0.1,
			KG: 1.26,
			KV: 1.2,
		},
		Constraints: control.Constraints{
			MaxVelocity:     utils.DegToRad(90),
			MaxAcceleration: utils.DegToRad(360),
		},
		Tolerances:     control.Tolerances{Position: utils.DegToRad(2), Velocity: utils.DegToRad(5)},
		Period:         20 * time.Millisecond,
		ShiftIncrement: utils.DegToRad(5),
	}
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *fakeHardware) {
	t.Helper()
	hw := &fakeHardware{position: 0.3, volts: 5}
	c, err := New(testConfig(), hw, logging.NewTestLogger(t), opts...)
	test.That(t, err, test.ShouldBeNil)
	return c, hw
}

func TestNewRejectsBadConfig(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name   string
		modify func(*Config)
		errStr string
	}{
		{"inverted range", func(c *Config) { c.Range = control.Range{Min: 1, Max: -1} }, "invalid range"},
		{"empty range", func(c *Config) { c.Range.Max = c.Range.Min }, "invalid range"},
		{"zero velocity", func(c *Config) { c.Constraints.MaxVelocity = 0 }, "invalid constraints"},
		{"negative acceleration", func(c *Config) { c.Constraints.MaxAcceleration = -1 }, "invalid constraints"},
		{"negative kP", func(c *Config) { c.Gains.KP = -1 }, "kP"},
		{"negative tolerance", func(c *Config) { c.Tolerances.Position = -1 }, "tolerances"},
		{"zero period", func(c *Config) { c.Period = 0 }, "period"},
		{"no name", func(c *Config) { c.Name = "" }, "name"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.modify(&cfg)
			_, err := New(cfg, &fakeHardware{}, logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errStr)
		})
	}

	_, err := New(testConfig(), nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConstruction(t *testing.T) {
	store := prefs.NewStore(logging.NewTestLogger(t))
	store.SetDouble("ArmKP", 15)
	c, hw := newTestController(t, WithPreferences(store))

	test.That(t, hw.resets, test.ShouldEqual, 1)
	test.That(t, hw.volts, test.ShouldEqual, 0.0)
	test.That(t, c.Enabled(), test.ShouldBeFalse)
	test.That(t, c.Output(), test.ShouldEqual, 0.0)
	test.That(t, c.MeasuredPosition(), test.ShouldAlmostEqual, utils.DegToRad(-45))
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, utils.DegToRad(-45))

	// defaults are seeded without overwriting tuned values
	test.That(t, store.Keys(), test.ShouldResemble, []string{
		"ArmAccelerationMax", "ArmKG", "ArmKP", "ArmKS", "ArmKV", "ArmVelocityMax",
	})
	test.That(t, store.GetDouble("ArmKP", 0), test.ShouldEqual, 15.0)
	test.That(t, store.GetDouble("ArmKG", 0), test.ShouldEqual, 1.26)
}

func TestSetGoalClamps(t *testing.T) {
	c, _ := newTestController(t)
	r := c.Range()

	c.SetGoal(utils.DegToRad(200))
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, utils.DegToRad(120), 1e-6)

	for g := -20.0; g <= 20.0; g += 0.173 {
		c.SetGoal(g)
		test.That(t, c.GoalPosition(), test.ShouldEqual, r.Clamp(g))
		test.That(t, r.Contains(c.GoalPosition()), test.ShouldBeTrue)
		test.That(t, c.Goal().Velocity, test.ShouldEqual, 0.0)
	}
	test.That(t, c.Enabled(), test.ShouldBeFalse)
}

func TestEnableIdempotent(t *testing.T) {
	c, hw := newTestController(t)
	hw.position = 0.5
	hw.velocity = 0.2
	c.SetGoal(1)

	c.Enable()
	setpoint, goal := c.Setpoint(), c.Goal()
	test.That(t, setpoint, test.ShouldResemble, control.State{Position: 0.5 + utils.DegToRad(-45)})

	hw.position = 0.7
	c.Enable()
	test.That(t, c.Setpoint(), test.ShouldResemble, setpoint)
	test.That(t, c.Goal(), test.ShouldResemble, goal)
	test.That(t, c.Enabled(), test.ShouldBeTrue)
}

func TestAtRestOutputIsFeedforward(t *testing.T) {
	c, hw := newTestController(t)
	hw.position = utils.DegToRad(75)
	c.SetGoal(c.MeasuredPosition())
	c.Enable()

	test.That(t, c.AtGoal(), test.ShouldBeTrue)
	c.Update()

	expected := control.ArmFeedforward{}.Calculate(c.Gains(), c.GoalPosition(), 0, 0)
	test.That(t, c.Output(), test.ShouldAlmostEqual, expected, 1e-9)
	test.That(t, hw.volts, test.ShouldEqual, c.Output())
	test.That(t, c.Diagnostics().Feedback, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestAtGoal(t *testing.T) {
	c, hw := newTestController(t)
	c.SetGoal(0)
	hw.position = utils.DegToRad(45 + 1.5)
	test.That(t, c.AtGoal(), test.ShouldBeTrue)
	hw.velocity = utils.DegToRad(6)
	test.That(t, c.AtGoal(), test.ShouldBeFalse)
	hw.velocity = 0
	hw.position = utils.DegToRad(45 + 2.5)
	test.That(t, c.AtGoal(), test.ShouldBeFalse)
}

func TestUpdateAndDisable(t *testing.T) {
	c, hw := newTestController(t)
	c.SetGoal(utils.DegToRad(90))

	c.Update()
	test.That(t, hw.volts, test.ShouldEqual, 0.0)
	test.That(t, c.Setpoint().Position, test.ShouldAlmostEqual, c.MeasuredPosition())

	c.Enable()
	for i := 0; i < 5; i++ {
		c.Update()
	}
	test.That(t, c.Output(), test.ShouldNotEqual, 0.0)
	test.That(t, c.Setpoint().Velocity, test.ShouldBeGreaterThan, 0)
	test.That(t, hw.volts, test.ShouldEqual, c.Output())

	hw.position = 0.4
	c.Disable()
	test.That(t, hw.volts, test.ShouldEqual, 0.0)
	test.That(t, c.Output(), test.ShouldEqual, 0.0)
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, 0.4+utils.DegToRad(-45))

	setpoint := c.Setpoint()
	c.Update()
	test.That(t, hw.volts, test.ShouldEqual, 0.0)
	test.That(t, c.Setpoint(), test.ShouldResemble, setpoint)

	c.Disable()
	test.That(t, c.Enabled(), test.ShouldBeFalse)
}

func TestOutputClampedAndFinite(t *testing.T) {
	c, hw := newTestController(t)
	test.That(t, c.SetGains(control.Gains{KP: 1000}), test.ShouldBeNil)
	c.SetGoal(utils.DegToRad(120))
	hw.position = 0
	c.Enable()
	hw.position = -1
	c.Update()
	test.That(t, c.Output(), test.ShouldEqual, DefaultMaxVoltage)

	logger, logs := logging.NewObservedTestLogger(t)
	nan, nanHW := newTestController(t, WithFeedforward(nanFeedforward{}))
	nan.logger = logger
	nan.Enable()
	nan.Update()
	test.That(t, nan.Output(), test.ShouldEqual, 0.0)
	test.That(t, nanHW.volts, test.ShouldEqual, 0.0)
	test.That(t, logs.FilterMessage("non-finite output replaced by zero").Len(), test.ShouldEqual, 1)
}

func TestResetReferenceZero(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	hw := &fakeHardware{}
	c, err := New(testConfig(), hw, logger)
	test.That(t, err, test.ShouldBeNil)

	hw.position = 0.2
	c.Enable()
	c.ResetReferenceZero()
	test.That(t, hw.resets, test.ShouldEqual, 1)
	test.That(t, hw.position, test.ShouldEqual, 0.2)
	test.That(t, logs.FilterLevelExact(logging.WARN.AsZap()).Len(), test.ShouldEqual, 1)

	c.Disable()
	c.ResetReferenceZero()
	test.That(t, hw.resets, test.ShouldEqual, 2)
	test.That(t, c.MeasuredPosition(), test.ShouldAlmostEqual, utils.DegToRad(-45))
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, utils.DegToRad(-45))

	// the old goal was in the previous frame; enabling now must hold still
	c.Enable()
	for i := 0; i < 10; i++ {
		c.Update()
		test.That(t, c.Setpoint().Position, test.ShouldAlmostEqual, utils.DegToRad(-45))
		test.That(t, c.Setpoint().Velocity, test.ShouldEqual, 0.0)
	}
	test.That(t, c.AtGoal(), test.ShouldBeTrue)
}

func TestEnableWhileMoving(t *testing.T) {
	cfg := testConfig()
	for _, velocity := range []float64{-6, 6} {
		hw := &fakeHardware{}
		c, err := New(cfg, hw, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)

		// coasting into a hard stop well above the velocity limit
		if velocity < 0 {
			hw.position = 0
		} else {
			hw.position = cfg.Range.Max - cfg.Offset
		}
		hw.velocity = velocity
		c.SetGoal(c.MeasuredPosition())
		c.Enable()
		test.That(t, c.Setpoint().Velocity, test.ShouldEqual, 0.0)

		for i := 0; i < 200; i++ {
			c.Update()
			setpoint := c.Setpoint()
			test.That(t, math.Abs(setpoint.Velocity), test.ShouldBeLessThanOrEqualTo, cfg.Constraints.MaxVelocity+1e-9)
			test.That(t, cfg.Range.Contains(setpoint.Position), test.ShouldBeTrue)
		}
	}
}

func TestGainsOnlyChangeWhileDisabled(t *testing.T) {
	c, _ := newTestController(t)
	test.That(t, c.SetGains(control.Gains{KP: -1}), test.ShouldNotBeNil)
	test.That(t, c.SetConstraints(control.Constraints{}), test.ShouldNotBeNil)

	c.Enable()
	test.That(t, c.SetGains(control.Gains{KP: 3}), test.ShouldBeNil)
	test.That(t, c.Gains().KP, test.ShouldEqual, 10.0)
	test.That(t, c.SetConstraints(control.Constraints{MaxVelocity: 1, MaxAcceleration: 1}), test.ShouldBeNil)
	test.That(t, c.Constraints().MaxVelocity, test.ShouldAlmostEqual, utils.DegToRad(90))

	c.Disable()
	test.That(t, c.SetGains(control.Gains{KP: 3}), test.ShouldBeNil)
	test.That(t, c.Gains().KP, test.ShouldEqual, 3.0)
}

func TestEnableReloadsPreferences(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	store := prefs.NewStore(logger)
	c, err := New(testConfig(), &fakeHardware{}, logger, WithPreferences(store))
	test.That(t, err, test.ShouldBeNil)

	store.SetDouble("ArmKP", 20)
	store.SetDouble("ArmVelocityMax", 1)
	test.That(t, c.Gains().KP, test.ShouldEqual, 10.0)

	c.Enable()
	test.That(t, c.Gains().KP, test.ShouldEqual, 20.0)
	test.That(t, c.Constraints().MaxVelocity, test.ShouldEqual, 1.0)

	// bad values keep what was there and warn
	c.Disable()
	store.SetDouble("ArmAccelerationMax", -2)
	store.SetDouble("ArmKP", -3)
	c.Enable()
	test.That(t, c.Gains().KP, test.ShouldEqual, 20.0)
	test.That(t, c.Constraints().MaxAcceleration, test.ShouldAlmostEqual, utils.DegToRad(360))
	test.That(t, logs.FilterMessage("ignoring invalid constraints from preferences").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("ignoring invalid gains from preferences").Len(), test.ShouldEqual, 1)
}

func TestPublish(t *testing.T) {
	c, hw := newTestController(t)
	hw.position = utils.DegToRad(45)
	hw.current = 3.5
	c.SetGoal(utils.DegToRad(30))
	c.Enable()
	c.Update()

	table := telemetry.NewTable()
	c.Publish(table)

	enabled, _ := table.Bool("Arm Enabled")
	test.That(t, enabled, test.ShouldBeTrue)
	for key, expected := range map[string]float64{
		"Arm Goal":    30,
		"Arm Angle":   0,
		"Arm Current": 3.5,
		"Arm Voltage": c.Output(),
	} {
		v, ok := table.Number(key)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, v, test.ShouldAlmostEqual, expected, 1e-9)
	}
	test.That(t, len(table.Keys()), test.ShouldEqual, 10)
}

func TestTasks(t *testing.T) {
	logger := logging.NewTestLogger(t)
	sched := dispatch.NewScheduler(logger)
	hw := &fakeHardware{}
	c, err := New(testConfig(), hw, logger, WithScheduler(sched))
	test.That(t, err, test.ShouldBeNil)

	move := c.MoveTo(utils.DegToRad(300))
	sched.Schedule(move)
	test.That(t, c.Enabled(), test.ShouldBeTrue)
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, utils.DegToRad(120))
	hold, ok := sched.DefaultTask(c.Requirement())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hold, test.ShouldEqual, c.Hold())

	sched.Tick()
	test.That(t, hw.commands, test.ShouldBeGreaterThan, 1)
	test.That(t, sched.IsScheduled(move), test.ShouldBeTrue)

	// arriving finishes the move and the hold task takes over
	hw.position = utils.DegToRad(165)
	hw.velocity = 0
	sched.Tick()
	test.That(t, sched.IsScheduled(move), test.ShouldBeFalse)
	test.That(t, sched.IsScheduled(c.Hold()), test.ShouldBeTrue)

	up := c.ShiftUp()
	sched.Schedule(up)
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, utils.DegToRad(120))
	c.SetGoal(utils.DegToRad(100))
	sched.Schedule(c.ShiftDown())
	test.That(t, c.GoalPosition(), test.ShouldAlmostEqual, utils.DegToRad(95))

	// disable cancels everything on this axis and removes the hold default
	c.Disable()
	test.That(t, sched.Scheduled(), test.ShouldBeEmpty)
	_, ok = sched.DefaultTask(c.Requirement())
	test.That(t, ok, test.ShouldBeFalse)
	sched.Tick()
	test.That(t, sched.Scheduled(), test.ShouldBeEmpty)
	test.That(t, hw.volts, test.ShouldEqual, 0.0)
}
