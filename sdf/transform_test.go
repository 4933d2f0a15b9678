package sdf

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestWorldToIndexNodeCentered(t *testing.T) {
	f, err := NewField(0.1, 1, 5, 5, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, f.WorldToIndexNodeCentered(r3.Vector{}), test.ShouldResemble, VoxelCoord{})
	test.That(t, f.WorldToIndexNodeCentered(r3.Vector{X: 0.26}), test.ShouldResemble, VoxelCoord{I: 3})
	test.That(t, f.WorldToIndexNodeCentered(r3.Vector{X: -0.26}), test.ShouldResemble, VoxelCoord{I: -3})
	test.That(t, f.WorldToIndexNodeCentered(r3.Vector{X: 0.24, Y: -0.04, Z: 1.09}),
		test.ShouldResemble, VoxelCoord{I: 2, J: 0, K: 11})
}

func TestIndexToWorldRoundTrip(t *testing.T) {
	f, err := NewField(0.05, 1, 5, 5, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	for _, c := range []VoxelCoord{{}, {I: 7, J: -3, K: 12}, {I: -100, J: 0, K: 1}} {
		test.That(t, f.WorldToIndexNodeCentered(f.IndexToWorld(c)), test.ShouldResemble, c)
	}
}

func TestVoxelCoordOffsetBy(t *testing.T) {
	c := VoxelCoord{I: 1, J: 2, K: 3}
	test.That(t, c.OffsetBy(-1, 0, 2), test.ShouldResemble, VoxelCoord{I: 0, J: 2, K: 5})
}
