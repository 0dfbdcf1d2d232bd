package axis

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/armctl/control"
	"go.viam.com/armctl/utils"
)

const (
	// DefaultPeriod is the control tick.
	DefaultPeriod = 20 * time.Millisecond
	// DefaultMaxVoltage bounds the commanded output when Config.MaxVoltage is zero.
	DefaultMaxVoltage = 12.0
)

// Config describes one axis. Angles are radians.
type Config struct {
	Name        string
	Range       control.Range
	Offset      float64
	Gains       control.Gains
	Constraints control.Constraints
	Tolerances  control.Tolerances
	Period      time.Duration
	MaxVoltage  float64
	// ShiftIncrement is the goal change of ShiftUp and ShiftDown.
	ShiftIncrement float64
	// IntegratorLimit clamps the integral term when positive.
	IntegratorLimit float64
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if cfg.Name == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "name"))
	}
	for _, check := range []struct {
		field string
		err   error
	}{
		{"range", cfg.Range.Validate()},
		{"gains", cfg.Gains.Validate()},
		{"constraints", cfg.Constraints.Validate()},
		{"tolerances", cfg.Tolerances.Validate()},
	} {
		if check.err != nil {
			err = multierr.Append(err, utils.NewConfigValidationError(path+"."+check.field, check.err))
		}
	}
	if cfg.Period <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: period must be positive, got %v", path, cfg.Period))
	}
	if cfg.MaxVoltage < 0 || !utils.IsFinite(cfg.MaxVoltage) {
		err = multierr.Append(err, errors.Errorf("%s: max voltage must be non-negative, got %v", path, cfg.MaxVoltage))
	}
	if !utils.IsFinite(cfg.Offset, cfg.ShiftIncrement, cfg.IntegratorLimit) {
		err = multierr.Append(err, errors.Errorf("%s: offset, shift increment and integrator limit must be finite", path))
	}
	return err
}

// Preference key suffixes for the values reloaded on enable.
const (
	KeyKP              = "KP"
	KeyKS              = "KS"
	KeyKG              = "KG"
	KeyKV              = "KV"
	KeyVelocityMax     = "VelocityMax"
	KeyAccelerationMax = "AccelerationMax"
)

// PreferenceDefaults returns the tunable values of cfg keyed by their preference keys.
func (cfg *Config) PreferenceDefaults() map[string]float64 {
	return map[string]float64{
		cfg.Name + KeyKP:              cfg.Gains.KP,
		cfg.Name + KeyKS:              cfg.Gains.KS,
		cfg.Name + KeyKG:              cfg.Gains.KG,
		cfg.Name + KeyKV:              cfg.Gains.KV,
		cfg.Name + KeyVelocityMax:     cfg.Constraints.MaxVelocity,
		cfg.Name + KeyAccelerationMax: cfg.Constraints.MaxAcceleration,
	}
}
