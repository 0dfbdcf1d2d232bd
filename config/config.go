// Package config defines the arm simulation configuration file. Angles in the file are degrees;
// the typed configs it produces for the controller and simulator are radians.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/armctl/axis"
	"go.viam.com/armctl/control"
	"go.viam.com/armctl/logging"
	"go.viam.com/armctl/sim"
	"go.viam.com/armctl/utils"
)

// Config is the whole file.
type Config struct {
	Period   time.Duration `json:"period"`
	LogLevel string        `json:"log_level"`
	Arm      ArmConfig     `json:"arm"`
	Sim      SimConfig     `json:"sim"`
	Prefs    PrefsConfig   `json:"prefs"`
}

// ArmConfig describes the controlled axis.
type ArmConfig struct {
	Name                   string  `json:"name"`
	MinDeg                 float64 `json:"min_deg"`
	MaxDeg                 float64 `json:"max_deg"`
	OffsetDeg              float64 `json:"offset_deg"`
	KP                     float64 `json:"kp"`
	KI                     float64 `json:"ki"`
	KD                     float64 `json:"kd"`
	KS                     float64 `json:"ks"`
	KG                     float64 `json:"kg"`
	KV                     float64 `json:"kv"`
	KA                     float64 `json:"ka"`
	Feedforward            string  `json:"feedforward"`
	MaxVelocityDegPerSec   float64 `json:"max_velocity_deg_per_sec"`
	MaxAccelerationDegPer2 float64 `json:"max_acceleration_deg_per_sec2"`
	PositionToleranceDeg   float64 `json:"position_tolerance_deg"`
	VelocityToleranceDeg   float64 `json:"velocity_tolerance_deg_per_sec"`
	MaxVoltage             float64 `json:"max_voltage"`
	ShiftIncrementDeg      float64 `json:"shift_increment_deg"`
	IntegratorLimit        float64 `json:"integrator_limit"`
	LowDeg                 float64 `json:"low_deg"`
	HighDeg                float64 `json:"high_deg"`
}

// SimConfig describes the simulated mechanism.
type SimConfig struct {
	Motor            string        `json:"motor"`
	MotorCount       int           `json:"motor_count"`
	Gearing          float64       `json:"gearing"`
	LengthMeters     float64       `json:"length_meters"`
	MassKg           float64       `json:"mass_kg"`
	MOI              float64       `json:"moi"`
	CenterOfMass     float64       `json:"center_of_mass_meters"`
	Damping          float64       `json:"damping"`
	DisableGravity   bool          `json:"disable_gravity"`
	PositionNoiseDeg float64       `json:"position_noise_deg"`
	Seed             uint64        `json:"seed"`
	Battery          BatteryConfig `json:"battery"`
}

// BatteryConfig describes the supply.
type BatteryConfig struct {
	NominalVoltage   float64 `json:"nominal_voltage"`
	Resistance       float64 `json:"resistance"`
	QuiescentCurrent float64 `json:"quiescent_current"`
}

// PrefsConfig points at the tunable preference file.
type PrefsConfig struct {
	Path  string `json:"path"`
	Watch bool   `json:"watch"`
}

// Default returns the configuration of the competition arm: two 775pro motors through a 200:1
// reduction swinging an 8 kg, 30 inch arm between hard stops at -75° and 255°, starting on the
// lower stop.
func Default() Config {
	battery := sim.DefaultBattery()
	return Config{
		Period:   axis.DefaultPeriod,
		LogLevel: "info",
		Arm: ArmConfig{
			Name:                   "Arm",
			MinDeg:                 -75,
			MaxDeg:                 255,
			OffsetDeg:              -75,
			KP:                     10,
			KS:                     0.1,
			KG:                     1.26,
			KV:                     1.217,
			Feedforward:            "arm",
			MaxVelocityDegPerSec:   90,
			MaxAccelerationDegPer2: 360,
			PositionToleranceDeg:   2,
			VelocityToleranceDeg:   5,
			MaxVoltage:             axis.DefaultMaxVoltage,
			ShiftIncrementDeg:      5,
			LowDeg:                 0,
			HighDeg:                90,
		},
		Sim: SimConfig{
			Motor:            "775pro",
			MotorCount:       2,
			Gearing:          200,
			LengthMeters:     utils.InchesToMeters(30),
			MassKg:           8,
			PositionNoiseDeg: utils.RadToDeg(sim.EncoderResolution),
			Seed:             1,
			Battery: BatteryConfig{
				NominalVoltage:   battery.NominalVoltage,
				Resistance:       battery.Resistance,
				QuiescentCurrent: battery.QuiescentCurrent,
			},
		},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if cfg.Period <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: period must be positive, got %v", path, cfg.Period))
	}
	if cfg.LogLevel != "" {
		if _, levelErr := logging.LevelFromString(cfg.LogLevel); levelErr != nil {
			err = multierr.Append(err, utils.NewConfigValidationError(path+".log_level", levelErr))
		}
	}

	axisCfg := cfg.AxisConfig()
	err = multierr.Append(err, axisCfg.Validate(path+".arm"))
	if _, ffErr := cfg.Arm.FeedforwardModel(); ffErr != nil {
		err = multierr.Append(err, utils.NewConfigValidationError(path+".arm.feedforward", ffErr))
	}
	for _, preset := range []float64{cfg.Arm.LowDeg, cfg.Arm.HighDeg} {
		if !axisCfg.Range.Contains(utils.DegToRad(preset)) {
			err = multierr.Append(err, errors.Errorf("%s.arm: preset %v° is outside the range", path, preset))
		}
	}

	if _, simErr := cfg.ArmSimConfig(); simErr != nil {
		err = multierr.Append(err, utils.NewConfigValidationError(path+".sim", simErr))
	}
	if cfg.Sim.PositionNoiseDeg < 0 {
		err = multierr.Append(err, errors.Errorf("%s.sim: position noise must not be negative", path))
	}
	b := cfg.Sim.Battery
	if b.NominalVoltage <= 0 || b.Resistance < 0 || b.QuiescentCurrent < 0 {
		err = multierr.Append(err, errors.Errorf("%s.sim.battery: invalid battery %+v", path, b))
	}
	return err
}

// AxisConfig converts the arm section to controller units.
func (cfg *Config) AxisConfig() axis.Config {
	a := cfg.Arm
	return axis.Config{
		Name:   a.Name,
		Range:  control.Range{Min: utils.DegToRad(a.MinDeg), Max: utils.DegToRad(a.MaxDeg)},
		Offset: utils.DegToRad(a.OffsetDeg),
		Gains: control.Gains{
			KP: a.KP, KI: a.KI, KD: a.KD,
			KS: a.KS, KG: a.KG, KV: a.KV, KA: a.KA,
		},
		Constraints: control.Constraints{
			MaxVelocity:     utils.DegsPerSecToRadsPerSec(a.MaxVelocityDegPerSec),
			MaxAcceleration: utils.DegsPerSecToRadsPerSec(a.MaxAccelerationDegPer2),
		},
		Tolerances: control.Tolerances{
			Position: utils.DegToRad(a.PositionToleranceDeg),
			Velocity: utils.DegsPerSecToRadsPerSec(a.VelocityToleranceDeg),
		},
		Period:          cfg.Period,
		MaxVoltage:      a.MaxVoltage,
		ShiftIncrement:  utils.DegToRad(a.ShiftIncrementDeg),
		IntegratorLimit: a.IntegratorLimit,
	}
}

// FeedforwardModel returns the configured feedforward strategy.
func (a *ArmConfig) FeedforwardModel() (control.Feedforward, error) {
	ff, ok := control.FeedforwardByName(a.Feedforward)
	if !ok {
		return nil, errors.Errorf("unknown feedforward %q", a.Feedforward)
	}
	return ff, nil
}

// ArmSimConfig converts the sim section to simulator units. The hard stops are the arm's range
// and the arm starts resting at its offset, the angle its encoder is zeroed at.
func (cfg *Config) ArmSimConfig() (sim.ArmSimConfig, error) {
	motor, err := sim.MotorByName(cfg.Sim.Motor, cfg.Sim.MotorCount)
	if err != nil {
		return sim.ArmSimConfig{}, err
	}
	simCfg := sim.ArmSimConfig{
		Motor:          motor,
		Gearing:        cfg.Sim.Gearing,
		Length:         cfg.Sim.LengthMeters,
		Mass:           cfg.Sim.MassKg,
		MOI:            cfg.Sim.MOI,
		CenterOfMass:   cfg.Sim.CenterOfMass,
		Damping:        cfg.Sim.Damping,
		Range:          control.Range{Min: utils.DegToRad(cfg.Arm.MinDeg), Max: utils.DegToRad(cfg.Arm.MaxDeg)},
		StartAngle:     utils.DegToRad(cfg.Arm.OffsetDeg),
		DisableGravity: cfg.Sim.DisableGravity,
	}
	return simCfg, simCfg.Validate()
}

// Battery returns the supply model.
func (cfg *Config) Battery() sim.Battery {
	b := cfg.Sim.Battery
	return sim.Battery{NominalVoltage: b.NominalVoltage, Resistance: b.Resistance, QuiescentCurrent: b.QuiescentCurrent}
}

// PositionNoise returns the sensor noise standard deviation in radians.
func (cfg *Config) PositionNoise() float64 {
	return utils.DegToRad(cfg.Sim.PositionNoiseDeg)
}
