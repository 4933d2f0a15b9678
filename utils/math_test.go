package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestFloat64AlmostEqual(t *testing.T) {
	test.That(t, Float64AlmostEqual(1.0, 1.0+1e-9, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1.0, 1.1, 1e-6), test.ShouldBeFalse)
	test.That(t, Float64AlmostEqual(-1.0, 1.0, 3), test.ShouldBeTrue)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(5, 0, 10), test.ShouldEqual, 5)
	test.That(t, Clamp(-5, 0, 10), test.ShouldEqual, 0)
	test.That(t, Clamp(15, 0, 10), test.ShouldEqual, 10)
}
