package sdf

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewFieldValidation(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := NewField(0, 1, 5, 5, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewField(0.1, 1, 0, 5, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewField(0.1, 1, 5, -1, logger)
	test.That(t, err, test.ShouldNotBeNil)
	// Background must dominate the exterior band so stored distances are
	// distinguishable from it.
	_, err = NewField(0.1, 0.3, 5, 5, logger)
	test.That(t, err, test.ShouldNotBeNil)

	f, err := NewField(0.1, 1, 5, 5, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.VoxelSize(), test.ShouldEqual, 0.1)
	test.That(t, f.Background(), test.ShouldEqual, 1.0)
	test.That(t, f.ExteriorBandWidth(), test.ShouldEqual, 5.0)
	test.That(t, f.InteriorBandWidth(), test.ShouldEqual, 5.0)
	test.That(t, f.IsEmpty(), test.ShouldBeTrue)
}

func TestSetMinBandFilter(t *testing.T) {
	f, err := NewField(0.1, 1, 5, 5, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// Values at or beyond either band bound are dropped.
	f.setMin(VoxelCoord{I: 1}, 0.5)
	f.setMin(VoxelCoord{I: 2}, -0.5)
	test.That(t, f.IsEmpty(), test.ShouldBeTrue)

	f.setMin(VoxelCoord{I: 1}, 0.49)
	f.setMin(VoxelCoord{I: 2}, -0.49)
	test.That(t, f.ActiveVoxels(), test.ShouldEqual, 2)
	test.That(t, f.DistanceAtCoord(VoxelCoord{I: 1}), test.ShouldAlmostEqual, 0.49, 1e-6)
	test.That(t, f.DistanceAtCoord(VoxelCoord{I: 2}), test.ShouldAlmostEqual, -0.49, 1e-6)

	// Repeated writes keep the signed minimum.
	f.setMin(VoxelCoord{I: 1}, 0.1)
	f.setMin(VoxelCoord{I: 1}, 0.3)
	test.That(t, f.DistanceAtCoord(VoxelCoord{I: 1}), test.ShouldAlmostEqual, 0.1, 1e-6)
	test.That(t, f.ActiveVoxels(), test.ShouldEqual, 2)

	// Unset voxels read as the background sentinel.
	test.That(t, f.DistanceAtCoord(VoxelCoord{I: 100}), test.ShouldEqual, 1.0)
}

func TestEmptyFieldReads(t *testing.T) {
	f, err := NewField(0.1, 1, 5, 5, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Distance(r3.Vector{X: 1}), test.ShouldEqual, 0.0)
	_, ok := f.Gradient(r3.Vector{X: 1})
	test.That(t, ok, test.ShouldBeFalse)

	a := f.NewAccessor()
	test.That(t, a.Distance(r3.Vector{X: 1}), test.ShouldEqual, 0.0)
	_, ok = a.GradientAtCoord(VoxelCoord{})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestVisitVoxelsCoordRoundTrip(t *testing.T) {
	f, err := NewField(0.1, 1, 5, 5, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	want := map[VoxelCoord]float64{
		{I: -1, J: -9, K: 7}:  0.25,
		{I: 3, J: 0, K: -12}:  -0.3,
		{I: 17, J: 17, K: 17}: 0.125,
	}
	for c, v := range want {
		f.setMin(c, v)
	}

	got := map[VoxelCoord]float64{}
	f.VisitVoxels(func(c VoxelCoord, v float64) bool {
		got[c] = v
		return true
	})
	test.That(t, len(got), test.ShouldEqual, len(want))
	for c, v := range want {
		test.That(t, got[c], test.ShouldAlmostEqual, v, 1e-6)
	}

	// Early termination.
	visits := 0
	f.VisitVoxels(func(VoxelCoord, float64) bool {
		visits++
		return false
	})
	test.That(t, visits, test.ShouldEqual, 1)
}

func TestAccessorAgreesWithField(t *testing.T) {
	f, err := NewField(0.05, 0.3, 4, 4, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	f.addLevelSetSphere(r3.Vector{X: 0.2, Y: -0.1}, 0.1)
	test.That(t, f.IsEmpty(), test.ShouldBeFalse)

	a := f.NewAccessor()
	f.VisitVoxels(func(c VoxelCoord, v float64) bool {
		test.That(t, a.DistanceAtCoord(c), test.ShouldEqual, f.DistanceAtCoord(c))
		return true
	})
	// Background reads agree too, including after the cache has been primed.
	far := VoxelCoord{I: 1000, J: 1000, K: 1000}
	test.That(t, a.DistanceAtCoord(far), test.ShouldEqual, f.DistanceAtCoord(far))

	grad, ok := a.Gradient(r3.Vector{X: 0.35, Y: -0.1})
	fieldGrad, fieldOK := f.Gradient(r3.Vector{X: 0.35, Y: -0.1})
	test.That(t, ok, test.ShouldEqual, fieldOK)
	test.That(t, grad, test.ShouldResemble, fieldGrad)
}

func TestGradientDirection(t *testing.T) {
	f, err := NewField(0.05, 0.3, 4, 4, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	f.addLevelSetSphere(r3.Vector{}, 0.1)

	// On the +X axis outside the surface, distance grows with +X.
	grad, ok := f.Gradient(r3.Vector{X: 0.15})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, grad.X, test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, grad.Y, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, grad.Z, test.ShouldAlmostEqual, 0, 1e-3)
}

func TestUnionWith(t *testing.T) {
	logger := golog.NewTestLogger(t)
	a, err := NewField(0.05, 0.3, 4, 4, logger)
	test.That(t, err, test.ShouldBeNil)
	b, err := NewField(0.05, 0.3, 4, 4, logger)
	test.That(t, err, test.ShouldBeNil)

	a.addLevelSetSphere(r3.Vector{}, 0.1)
	b.addLevelSetSphere(r3.Vector{X: 0.5}, 0.1)

	test.That(t, a.UnionWith(b), test.ShouldBeNil)
	// Both interiors are present in the merged field; far away only the
	// sentinel remains.
	test.That(t, a.Distance(r3.Vector{}), test.ShouldAlmostEqual, -0.1, 1e-6)
	test.That(t, a.Distance(r3.Vector{X: 0.5}), test.ShouldAlmostEqual, -0.1, 1e-6)
	test.That(t, a.Distance(r3.Vector{X: 2}), test.ShouldEqual, a.Background())

	// Union order does not change any voxel value.
	reversed, err := NewField(0.05, 0.3, 4, 4, logger)
	test.That(t, err, test.ShouldBeNil)
	reversed.addLevelSetSphere(r3.Vector{X: 0.5}, 0.1)
	other, err := NewField(0.05, 0.3, 4, 4, logger)
	test.That(t, err, test.ShouldBeNil)
	other.addLevelSetSphere(r3.Vector{}, 0.1)
	test.That(t, reversed.UnionWith(other), test.ShouldBeNil)
	test.That(t, reversed.ActiveVoxels(), test.ShouldEqual, a.ActiveVoxels())
	a.VisitVoxels(func(c VoxelCoord, v float64) bool {
		test.That(t, reversed.DistanceAtCoord(c), test.ShouldEqual, v)
		return true
	})

	// Union is idempotent under setMin.
	before := a.ActiveVoxels()
	test.That(t, a.UnionWith(b), test.ShouldBeNil)
	test.That(t, a.ActiveVoxels(), test.ShouldEqual, before)

	test.That(t, a.UnionWith(nil), test.ShouldNotBeNil)
	mismatched, err := NewField(0.1, 0.5, 4, 4, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.UnionWith(mismatched), test.ShouldNotBeNil)
}

func TestMemoryFootprint(t *testing.T) {
	f, err := NewField(0.05, 0.3, 4, 4, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	empty := f.MemoryFootprint()
	f.addLevelSetSphere(r3.Vector{}, 0.1)
	test.That(t, f.MemoryFootprint(), test.ShouldBeGreaterThan, empty)
}
