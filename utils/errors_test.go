package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestUnexpectedTypeError(t *testing.T) {
	err := NewUnexpectedTypeError(1.0, "one")
	test.That(t, err.Error(), test.ShouldEqual, "expected float64 but got string")
}

func TestConfigValidationErrors(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("arm", "name")
	test.That(t, err.Error(), test.ShouldEqual, `arm: "name" is required`)

	inner := errors.New("min must be less than max")
	err = NewConfigValidationError("arm.range", inner)
	test.That(t, err.Error(), test.ShouldEqual, `error validating "arm.range": min must be less than max`)
	test.That(t, errors.Cause(err), test.ShouldEqual, inner)
}
