// Package axis implements a motion-profiled position controller for one rotating axis. Each tick
// the controller advances a trapezoidal profile toward the goal, adds proportional feedback on
// the profile setpoint to a feedforward model of the mechanism, and commands the motor voltage.
package axis

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/armctl/control"
	"go.viam.com/armctl/dispatch"
	"go.viam.com/armctl/logging"
	"go.viam.com/armctl/utils"
)

// Option customizes a Controller at construction.
type Option func(*Controller)

// WithProfile replaces the trapezoidal profile.
func WithProfile(p control.Profile) Option {
	return func(c *Controller) {
		c.profile = p
	}
}

// WithFeedforward replaces the arm feedforward model.
func WithFeedforward(ff control.Feedforward) Option {
	return func(c *Controller) {
		c.feedforward = ff
	}
}

// WithPreferences sets the store gains and constraints are reloaded from on enable.
func WithPreferences(p Preferences) Option {
	return func(c *Controller) {
		c.prefs = p
	}
}

// WithScheduler sets the dispatcher that runs this axis' tasks.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// Controller drives one axis. It is not safe for concurrent use; the dispatcher calls it from a
// single goroutine.
type Controller struct {
	cfg    Config
	hw     Hardware
	logger logging.Logger

	profile     control.Profile
	feedforward control.Feedforward
	pid         control.PID
	prefs       Preferences
	scheduler   Scheduler
	hold        dispatch.Task

	gains       control.Gains
	constraints control.Constraints
	enabled     bool
	goal        control.State
	setpoint    control.State
	feedback    float64
	ffOutput    float64
	output      float64
}

// New returns a disabled controller commanding zero volts. The sensor is reset, so the mechanism
// must be resting at its reference position, the one that reads as cfg.Offset.
func New(cfg Config, hw Hardware, logger logging.Logger, opts ...Option) (*Controller, error) {
	if hw == nil {
		return nil, errors.New("axis hardware is required")
	}
	if err := cfg.Validate(cfg.Name); err != nil {
		return nil, errors.Wrap(err, "invalid axis config")
	}
	if cfg.MaxVoltage == 0 {
		cfg.MaxVoltage = DefaultMaxVoltage
	}

	c := &Controller{
		cfg:         cfg,
		hw:          hw,
		logger:      logger,
		profile:     control.NewTrapezoidProfile(),
		feedforward: control.ArmFeedforward{},
		pid:         control.PID{IntegratorLimit: cfg.IntegratorLimit},
		gains:       cfg.Gains,
		constraints: cfg.Constraints,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hold = c.newHoldTask()

	if initializer, ok := c.prefs.(PreferenceInitializer); ok {
		defaults := cfg.PreferenceDefaults()
		keys := lo.Keys(defaults)
		sort.Strings(keys)
		for _, key := range keys {
			initializer.InitDouble(key, defaults[key])
		}
	}

	hw.ResetPosition()
	c.setpoint = c.restingSetpoint()
	c.goal = c.setpoint
	c.Disable()
	return c, nil
}

// Name returns the axis name.
func (c *Controller) Name() string {
	return c.cfg.Name
}

// Requirement is what this axis' tasks require from the dispatcher.
func (c *Controller) Requirement() dispatch.Requirement {
	return dispatch.Requirement(c.cfg.Name)
}

// Range returns the travel limits goals are clamped into.
func (c *Controller) Range() control.Range {
	return c.cfg.Range
}

// Enable starts closed loop control. Gains and constraints are reloaded from the preference store
// and the profile restarts at rest from the measured position, clamped into the range. Enabling
// an enabled controller does nothing.
func (c *Controller) Enable() {
	if c.enabled {
		return
	}
	c.reloadPreferences()
	c.pid.Reset()
	c.setpoint = c.restingSetpoint()
	c.enabled = true

	if c.scheduler != nil {
		if err := c.scheduler.SetDefaultTask(c.Requirement(), c.hold); err != nil {
			c.logger.Warnw("failed to install hold task", "error", err)
		}
	}

	c.logger.Infow("enabled",
		"kP", c.gains.KP, "kI", c.gains.KI, "kD", c.gains.KD,
		"kS", c.gains.KS, "kG", c.gains.KG, "kV", c.gains.KV,
		"goal_deg", utils.RadToDeg(c.goal.Position),
		"position_deg", utils.RadToDeg(c.setpoint.Position),
	)
}

// Disable commands zero volts immediately. On the transition from enabled it also resets the
// goal to the clamped measured position, so a later Enable holds still instead of resuming an
// old move, and cancels every task driving this axis.
func (c *Controller) Disable() {
	c.feedback = 0
	c.ffOutput = 0
	c.output = 0
	c.hw.SetVoltage(0)
	if !c.enabled {
		return
	}
	c.enabled = false
	c.goal = control.State{Position: c.cfg.Range.Clamp(c.MeasuredPosition())}

	if c.scheduler != nil {
		c.scheduler.RemoveDefaultTask(c.Requirement())
		c.scheduler.CancelRequiring(c.Requirement())
	}
	c.logger.Infow("disabled", "position_deg", utils.RadToDeg(c.goal.Position))
}

// Enabled reports whether closed loop control is active.
func (c *Controller) Enabled() bool {
	return c.enabled
}

// SetGoal clamps target into the travel range and makes it the goal. It does not enable.
func (c *Controller) SetGoal(target float64) {
	clamped := c.cfg.Range.Clamp(target)
	if clamped != target {
		c.logger.Debugw("goal clamped", "requested_deg", utils.RadToDeg(target), "goal_deg", utils.RadToDeg(clamped))
	}
	c.goal = control.State{Position: clamped}
}

// Update runs one control tick. While disabled it commands zero and leaves the profile alone.
func (c *Controller) Update() {
	if !c.enabled {
		c.feedback = 0
		c.ffOutput = 0
		c.output = 0
		c.hw.SetVoltage(0)
		return
	}

	previous := c.setpoint
	c.setpoint = c.profile.Next(previous, c.goal, c.constraints, c.cfg.Period)
	accel := (c.setpoint.Velocity - previous.Velocity) / c.cfg.Period.Seconds()

	c.feedback = c.pid.Calculate(c.gains, c.setpoint.Position, c.MeasuredPosition(), c.cfg.Period)
	c.ffOutput = c.feedforward.Calculate(c.gains, c.setpoint.Position, c.setpoint.Velocity, accel)

	out := c.feedback + c.ffOutput
	if !utils.IsFinite(out) {
		c.logger.Warnw("non-finite output replaced by zero",
			"feedback", c.feedback, "feedforward", c.ffOutput, "setpoint", c.setpoint.Position)
		out = 0
	}
	c.output = lo.Clamp(out, -c.cfg.MaxVoltage, c.cfg.MaxVoltage)
	c.hw.SetVoltage(c.output)
}

// AtGoal reports whether the measured position is within tolerance of the goal and the measured
// velocity within the velocity tolerance of rest.
func (c *Controller) AtGoal() bool {
	return c.cfg.Tolerances.Within(c.Measurement(), c.goal)
}

// Measurement returns the sensor state shifted by the mechanical offset.
func (c *Controller) Measurement() control.State {
	return control.State{Position: c.MeasuredPosition(), Velocity: c.hw.Velocity()}
}

// MeasuredPosition returns the sensor position shifted by the mechanical offset.
func (c *Controller) MeasuredPosition() float64 {
	return c.hw.Position() + c.cfg.Offset
}

// ResetReferenceZero makes the current position read as the offset and moves the goal there, so
// the next Enable holds still. It is refused with a warning while enabled.
func (c *Controller) ResetReferenceZero() {
	if c.enabled {
		c.logger.Warn("refusing to reset the position reference while enabled")
		return
	}
	c.hw.ResetPosition()
	c.setpoint = c.restingSetpoint()
	c.goal = c.setpoint
	c.logger.Infow("position reference reset", "position_deg", utils.RadToDeg(c.MeasuredPosition()))
}

// restingSetpoint is the measured position, clamped into the range, with zero velocity. The
// profile restarts from here so a moving mechanism cannot push the reference past its limits.
func (c *Controller) restingSetpoint() control.State {
	return control.State{Position: c.cfg.Range.Clamp(c.MeasuredPosition())}
}

// SetGains replaces the gains. It is refused with a warning while enabled.
func (c *Controller) SetGains(g control.Gains) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if c.enabled {
		c.logger.Warn("refusing to change gains while enabled")
		return nil
	}
	c.gains = g
	return nil
}

// SetConstraints replaces the profile constraints. It is refused with a warning while enabled.
func (c *Controller) SetConstraints(constraints control.Constraints) error {
	if err := constraints.Validate(); err != nil {
		return err
	}
	if c.enabled {
		c.logger.Warn("refusing to change constraints while enabled")
		return nil
	}
	c.constraints = constraints
	return nil
}

// Goal returns the goal state.
func (c *Controller) Goal() control.State {
	return c.goal
}

// GoalPosition returns the goal position.
func (c *Controller) GoalPosition() float64 {
	return c.goal.Position
}

// Setpoint returns the latest profile reference.
func (c *Controller) Setpoint() control.State {
	return c.setpoint
}

// Output returns the last commanded voltage.
func (c *Controller) Output() float64 {
	return c.output
}

// Gains returns the gains in use.
func (c *Controller) Gains() control.Gains {
	return c.gains
}

// Constraints returns the profile constraints in use.
func (c *Controller) Constraints() control.Constraints {
	return c.constraints
}

func (c *Controller) reloadPreferences() {
	if c.prefs == nil {
		return
	}
	name := c.cfg.Name

	gains := c.gains
	gains.KP = c.prefs.GetDouble(name+KeyKP, gains.KP)
	gains.KS = c.prefs.GetDouble(name+KeyKS, gains.KS)
	gains.KG = c.prefs.GetDouble(name+KeyKG, gains.KG)
	gains.KV = c.prefs.GetDouble(name+KeyKV, gains.KV)
	if err := gains.Validate(); err != nil {
		c.logger.Warnw("ignoring invalid gains from preferences", "error", err)
	} else {
		c.gains = gains
	}

	constraints := control.Constraints{
		MaxVelocity:     c.prefs.GetDouble(name+KeyVelocityMax, c.constraints.MaxVelocity),
		MaxAcceleration: c.prefs.GetDouble(name+KeyAccelerationMax, c.constraints.MaxAcceleration),
	}
	if err := constraints.Validate(); err != nil {
		c.logger.Warnw("ignoring invalid constraints from preferences", "error", err)
	} else {
		c.constraints = constraints
	}
}
