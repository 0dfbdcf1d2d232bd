package control

import (
	"github.com/pkg/errors"
)

// NewInvalidRangeError is returned when a travel range has min >= max or a non-finite bound.
func NewInvalidRangeError(lower, upper float64) error {
	return errors.Errorf("invalid range [%v, %v]: min must be finite and less than max", lower, upper)
}

// NewInvalidConstraintsError is returned when a velocity or acceleration limit is not strictly
// positive.
func NewInvalidConstraintsError(maxVel, maxAcc float64) error {
	return errors.Errorf(
		"invalid constraints (max velocity %v, max acceleration %v): both must be finite and greater than zero",
		maxVel, maxAcc)
}

// NewNegativeGainError is returned when a gain that must be non-negative is negative.
func NewNegativeGainError(name string, value float64) error {
	return errors.Errorf("gain %s must be non-negative, got %v", name, value)
}

// NewNonFiniteGainError is returned when a gain is NaN or infinite.
func NewNonFiniteGainError(name string, value float64) error {
	return errors.Errorf("gain %s must be finite, got %v", name, value)
}

// NewInvalidTolerancesError is returned when an arrival tolerance is negative.
func NewInvalidTolerancesError(position, velocity float64) error {
	return errors.Errorf(
		"invalid tolerances (position %v, velocity %v): both must be non-negative", position, velocity)
}
