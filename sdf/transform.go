package sdf

import (
	"math"

	"github.com/golang/geo/r3"
)

// VoxelCoord is an integer voxel coordinate in a field's index space.
type VoxelCoord struct {
	I, J, K int
}

// OffsetBy returns the coordinate offset by the given deltas.
func (c VoxelCoord) OffsetBy(i, j, k int) VoxelCoord {
	return VoxelCoord{I: c.I + i, J: c.J + j, K: c.K + k}
}

// WorldToIndex maps a world-space point into continuous index space. The
// field's transform is a pure uniform scale; rigid offsets are supplied by
// the poses under which shapes are added and queries are made.
func (f *Field) WorldToIndex(pt r3.Vector) r3.Vector {
	return pt.Mul(1.0 / f.voxelSize)
}

// WorldToIndexNodeCentered maps a world-space point to the coordinate of the
// voxel whose center encloses it.
func (f *Field) WorldToIndexNodeCentered(pt r3.Vector) VoxelCoord {
	idx := f.WorldToIndex(pt)
	return VoxelCoord{
		I: int(math.Round(idx.X)),
		J: int(math.Round(idx.Y)),
		K: int(math.Round(idx.Z)),
	}
}

// IndexToWorld returns the world-space center of the given voxel.
func (f *Field) IndexToWorld(c VoxelCoord) r3.Vector {
	return r3.Vector{
		X: float64(c.I) * f.voxelSize,
		Y: float64(c.J) * f.voxelSize,
		Z: float64(c.K) * f.voxelSize,
	}
}
