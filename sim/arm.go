package sim

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/armctl/control"
	"go.viam.com/armctl/utils"
)

// StandardGravity in meters per second squared.
const StandardGravity = 9.80665

// ArmState is the true angle and angular velocity of the simulated arm.
type ArmState struct {
	Angle    float64
	Velocity float64
}

// ArmSimConfig describes the simulated mechanism.
type ArmSimConfig struct {
	Motor DCMotor
	// Gearing is motor rotations per arm rotation.
	Gearing float64
	// Length of the arm in meters.
	Length float64
	// Mass of the arm in kilograms.
	Mass float64
	// MOI is the moment of inertia about the pivot. Zero estimates it as a rod of Length and Mass.
	MOI float64
	// CenterOfMass is the pivot to center of mass distance. Zero uses half of Length.
	CenterOfMass float64
	// Damping is the viscous friction coefficient in newton meter seconds per radian.
	Damping float64
	// Range is where the hard stops are.
	Range control.Range
	// StartAngle is the initial angle; it is clamped into Range.
	StartAngle     float64
	DisableGravity bool
	// SupplyVoltage limits the input voltage. Zero uses the motor's nominal voltage.
	SupplyVoltage float64
}

// Validate returns every problem with the config.
func (cfg *ArmSimConfig) Validate() error {
	err := cfg.Motor.Validate()
	if !utils.IsFinite(cfg.Gearing, cfg.Length, cfg.Mass, cfg.MOI, cfg.CenterOfMass, cfg.Damping, cfg.StartAngle) {
		err = multierr.Append(err, errors.New("arm sim parameters must be finite"))
	}
	if cfg.Gearing <= 0 {
		err = multierr.Append(err, errors.Errorf("gearing must be positive, got %v", cfg.Gearing))
	}
	if cfg.Length <= 0 || cfg.Mass <= 0 {
		err = multierr.Append(err, errors.Errorf("length and mass must be positive, got %v m and %v kg", cfg.Length, cfg.Mass))
	}
	if cfg.MOI < 0 || cfg.CenterOfMass < 0 || cfg.Damping < 0 || cfg.SupplyVoltage < 0 {
		err = multierr.Append(err, errors.New("moment of inertia, center of mass, damping and supply voltage must not be negative"))
	}
	return multierr.Append(err, cfg.Range.Validate())
}

// EstimateMOI returns the moment of inertia of a uniform rod pivoting at one end.
func EstimateMOI(length, mass float64) float64 {
	return mass * length * length / 3
}

// ArmSim integrates the arm's equation of motion
//
//	J*alpha = G*Kt*I - m*g*r*cos(theta) - B*omega,   I = (V - omega*G/Kv) / R
//
// with semi-implicit Euler. The hard stops are inelastic. It is deterministic and not safe for
// concurrent use.
type ArmSim struct {
	cfg     ArmSimConfig
	moi     float64
	com     float64
	gravity float64

	state   ArmState
	input   float64
	current float64
}

// NewArmSim returns a sim resting at cfg.StartAngle.
func NewArmSim(cfg ArmSimConfig) (*ArmSim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid arm sim config")
	}
	s := &ArmSim{cfg: cfg, moi: cfg.MOI, com: cfg.CenterOfMass, gravity: StandardGravity}
	if s.moi == 0 {
		s.moi = EstimateMOI(cfg.Length, cfg.Mass)
	}
	if s.com == 0 {
		s.com = cfg.Length / 2
	}
	if cfg.DisableGravity {
		s.gravity = 0
	}
	if s.cfg.SupplyVoltage == 0 {
		s.cfg.SupplyVoltage = cfg.Motor.NominalVoltage
	}
	s.state = ArmState{Angle: cfg.Range.Clamp(cfg.StartAngle)}
	return s, nil
}

// Step applies volts for dt. The voltage is clamped to the supply. If the result is not finite
// the state is left untouched and an error is returned.
func (s *ArmSim) Step(volts float64, dt time.Duration) error {
	if !utils.IsFinite(volts) {
		return errors.Errorf("non-finite input voltage %v", volts)
	}
	dtS := dt.Seconds()
	if dtS <= 0 {
		return errors.Errorf("step must be positive, got %v", dt)
	}
	volts = lo.Clamp(volts, -s.cfg.SupplyVoltage, s.cfg.SupplyVoltage)

	motor := s.cfg.Motor
	current := motor.Current(s.state.Velocity*s.cfg.Gearing, volts)
	torque := s.cfg.Gearing*motor.Torque(current) -
		s.cfg.Mass*s.gravity*s.com*math.Cos(s.state.Angle) -
		s.cfg.Damping*s.state.Velocity
	accel := torque / s.moi

	velocity := s.state.Velocity + accel*dtS
	angle := s.state.Angle + velocity*dtS
	if !utils.IsFinite(angle, velocity, current) {
		return errors.Errorf("arm sim diverged: angle %v velocity %v current %v", angle, velocity, current)
	}

	switch {
	case angle >= s.cfg.Range.Max:
		angle, velocity = s.cfg.Range.Max, 0
	case angle <= s.cfg.Range.Min:
		angle, velocity = s.cfg.Range.Min, 0
	}

	s.state = ArmState{Angle: angle, Velocity: velocity}
	s.input = volts
	s.current = current
	return nil
}

// State returns the true state.
func (s *ArmSim) State() ArmState {
	return s.state
}

// SetState moves the arm, clamping the angle into the hard stops.
func (s *ArmSim) SetState(state ArmState) {
	state.Angle = s.cfg.Range.Clamp(state.Angle)
	s.state = state
}

// Input returns the voltage applied on the last step, after clamping.
func (s *ArmSim) Input() float64 {
	return s.input
}

// CurrentDraw returns the signed motor current of the last step.
func (s *ArmSim) CurrentDraw() float64 {
	return s.current
}

// SetSupplyVoltage changes the voltage the input is clamped to.
func (s *ArmSim) SetSupplyVoltage(volts float64) {
	s.cfg.SupplyVoltage = math.Max(0, volts)
}

// HasHitLowerLimit reports whether the arm rests on the lower stop.
func (s *ArmSim) HasHitLowerLimit() bool {
	return s.state.Angle <= s.cfg.Range.Min
}

// HasHitUpperLimit reports whether the arm rests on the upper stop.
func (s *ArmSim) HasHitUpperLimit() bool {
	return s.state.Angle >= s.cfg.Range.Max
}

// MOI returns the moment of inertia in use.
func (s *ArmSim) MOI() float64 {
	return s.moi
}

// FreeSpeed returns the steady state arm speed at volts with no gravity or damping.
func (s *ArmSim) FreeSpeed(volts float64) float64 {
	return volts * s.cfg.Motor.Kv() / s.cfg.Gearing
}
