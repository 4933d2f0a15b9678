// Package sdf implements sparse narrow-band signed distance fields built from
// collision shapes, along with bounding-sphere approximations of them.
//
// A Field stores signed distances (negative inside a surface) for voxels
// within a narrow band around the zero isosurface. Voxels outside the band
// read as the field's background sentinel. Band widths are expressed in
// voxel units; stored distances and the background sentinel are in world
// units.
package sdf

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/distancefield/utils"
)

const (
	leafDim   = 8
	leafCount = leafDim * leafDim * leafDim
)

// leafKey identifies an 8x8x8 block of voxels by its block coordinate.
type leafKey struct {
	i, j, k int
}

// leaf is a dense block of voxel values. Unset voxels hold the background
// sentinel.
type leaf struct {
	values [leafCount]float32
}

func keyFor(c VoxelCoord) leafKey {
	return leafKey{i: c.I >> 3, j: c.J >> 3, k: c.K >> 3}
}

func offsetFor(c VoxelCoord) int {
	return (c.I&(leafDim-1))*leafDim*leafDim + (c.J&(leafDim-1))*leafDim + (c.K & (leafDim - 1))
}

// Field is a sparse narrow-band signed distance field. It is built up by
// AddShape and UnionWith during construction and must be treated as immutable
// once queries begin. All read methods on Field itself are safe for
// concurrent use against an immutable field; the cheaper cached reads go
// through per-caller Accessors.
type Field struct {
	voxelSize  float64
	background float64
	exBand     float64 // voxel units
	inBand     float64 // voxel units
	leaves     map[leafKey]*leaf
	active     int
	logger     golog.Logger
}

// NewField creates an empty field with the given voxel size, background
// sentinel, and exterior/interior narrow-band half-widths in voxel units.
// The background must be at least the world-unit width of the exterior band
// so that it is distinguishable from any stored distance.
func NewField(voxelSize, background, exBand, inBand float64, logger golog.Logger) (*Field, error) {
	if voxelSize <= 0 {
		return nil, errors.Errorf("voxel size must be positive, got %f", voxelSize)
	}
	if exBand <= 0 || inBand <= 0 {
		return nil, errors.Errorf("narrow-band widths must be positive, got exterior %f interior %f", exBand, inBand)
	}
	if background < exBand*voxelSize {
		return nil, errors.Errorf("background sentinel %f must be at least the exterior band width %f", background, exBand*voxelSize)
	}
	return &Field{
		voxelSize:  voxelSize,
		background: background,
		exBand:     exBand,
		inBand:     inBand,
		leaves:     map[leafKey]*leaf{},
		logger:     logger,
	}, nil
}

// VoxelSize returns the world-unit size of one voxel.
func (f *Field) VoxelSize() float64 { return f.voxelSize }

// Background returns the sentinel value reported for voxels with no reliable
// distance.
func (f *Field) Background() float64 { return f.background }

// ExteriorBandWidth returns the exterior narrow-band half-width in voxel units.
func (f *Field) ExteriorBandWidth() float64 { return f.exBand }

// InteriorBandWidth returns the interior narrow-band half-width in voxel units.
func (f *Field) InteriorBandWidth() float64 { return f.inBand }

// IsEmpty returns whether the field has no stored voxels, i.e. no shape was
// ever successfully rasterized into it.
func (f *Field) IsEmpty() bool { return f.active == 0 }

// ActiveVoxels returns the number of voxels with a stored distance.
func (f *Field) ActiveVoxels() int { return f.active }

// setMin stores the signed minimum of the current and given values at the
// coordinate, dropping values outside the open band interval so that stored
// values always lie strictly between the band bounds.
func (f *Field) setMin(c VoxelCoord, v float64) {
	if v >= f.exBand*f.voxelSize || v <= -f.inBand*f.voxelSize {
		return
	}
	key := keyFor(c)
	lf, ok := f.leaves[key]
	if !ok {
		lf = &leaf{}
		bg := float32(f.background)
		for i := range lf.values {
			lf.values[i] = bg
		}
		f.leaves[key] = lf
	}
	off := offsetFor(c)
	cur := lf.values[off]
	if cur == float32(f.background) {
		f.active++
		lf.values[off] = float32(v)
		return
	}
	if float32(v) < cur {
		lf.values[off] = float32(v)
	}
}

// valueAtCoord reads a voxel straight out of the sparse structure.
func (f *Field) valueAtCoord(c VoxelCoord) float64 {
	lf, ok := f.leaves[keyFor(c)]
	if !ok {
		return f.background
	}
	return float64(lf.values[offsetFor(c)])
}

// DistanceAtCoord returns the stored distance at the voxel coordinate, or the
// background sentinel if unset. This is the synchronized access mode: it is
// safe for concurrent callers but pays a tree lookup per call.
func (f *Field) DistanceAtCoord(c VoxelCoord) float64 {
	if f.IsEmpty() {
		f.logger.Debug("distance lookup on an empty field")
		return 0
	}
	return f.valueAtCoord(c)
}

// Distance returns the stored distance at the voxel enclosing the world-space
// point, or the background sentinel if unset. Synchronized access mode.
func (f *Field) Distance(pt r3.Vector) float64 {
	return f.DistanceAtCoord(f.WorldToIndexNodeCentered(pt))
}

// gradientAtCoord computes a second-order central-difference gradient
// estimate at the voxel. The returned vector is normalized; ok is false when
// the estimate is the zero vector.
func (f *Field) gradientAtCoord(value func(VoxelCoord) float64, c VoxelCoord) (r3.Vector, bool) {
	g := r3.Vector{
		X: (value(c.OffsetBy(1, 0, 0)) - value(c.OffsetBy(-1, 0, 0))) / (2 * f.voxelSize),
		Y: (value(c.OffsetBy(0, 1, 0)) - value(c.OffsetBy(0, -1, 0))) / (2 * f.voxelSize),
		Z: (value(c.OffsetBy(0, 0, 1)) - value(c.OffsetBy(0, 0, -1))) / (2 * f.voxelSize),
	}
	if g.Norm2() == 0 {
		return r3.Vector{}, false
	}
	return g.Normalize(), true
}

// GradientAtCoord estimates the normalized distance gradient at the voxel
// coordinate. Synchronized access mode.
func (f *Field) GradientAtCoord(c VoxelCoord) (r3.Vector, bool) {
	if f.IsEmpty() {
		f.logger.Debug("gradient lookup on an empty field")
		return r3.Vector{}, false
	}
	return f.gradientAtCoord(f.valueAtCoord, c)
}

// Gradient estimates the normalized distance gradient at the voxel enclosing
// the world-space point. Synchronized access mode.
func (f *Field) Gradient(pt r3.Vector) (r3.Vector, bool) {
	return f.GradientAtCoord(f.WorldToIndexNodeCentered(pt))
}

// UnionWith merges another field into this one as a constructive solid
// geometry union: the value at each voxel becomes the signed minimum of the
// two. Both fields must share the same voxel size. Values outside this
// field's band interval are dropped. Only valid during construction.
func (f *Field) UnionWith(other *Field) error {
	if other == nil {
		return errors.New("cannot union with a nil field")
	}
	if !utils.Float64AlmostEqual(f.voxelSize, other.voxelSize, 1e-12) {
		return errors.Errorf("cannot union fields with different voxel sizes %f and %f", f.voxelSize, other.voxelSize)
	}
	other.VisitVoxels(func(c VoxelCoord, v float64) bool {
		f.setMin(c, v)
		return true
	})
	return nil
}

// VisitVoxels visits every stored voxel until fn returns false. Iteration
// order is unspecified.
func (f *Field) VisitVoxels(fn func(c VoxelCoord, v float64) bool) {
	bg := float32(f.background)
	for key, lf := range f.leaves {
		for off, v := range lf.values {
			if v == bg {
				continue
			}
			c := VoxelCoord{
				I: key.i*leafDim + off/(leafDim*leafDim),
				J: key.j*leafDim + (off/leafDim)%leafDim,
				K: key.k*leafDim + off%leafDim,
			}
			if !fn(c, float64(v)) {
				return
			}
		}
	}
}

// MemoryFootprint returns an estimate of the bytes resident for the sparse
// structure. Diagnostic only.
func (f *Field) MemoryFootprint() uint64 {
	const perLeafOverhead = 64 // map bucket + key + pointer
	var total uint64 = 128     // Field struct itself
	total += uint64(len(f.leaves)) * (leafCount*4 + perLeafOverhead)
	return total
}

// Accessor provides the cached access mode: reads that remember the last leaf
// block touched, skipping the tree lookup for coherent access patterns. An
// Accessor is NOT safe for concurrent use; every concurrent caller must
// obtain its own via NewAccessor.
type Accessor struct {
	f     *Field
	key   leafKey
	lf    *leaf
	valid bool
}

// NewAccessor returns a new cached accessor over the field. Accessors must
// not be shared between goroutines.
func (f *Field) NewAccessor() *Accessor {
	return &Accessor{f: f}
}

func (a *Accessor) valueAtCoord(c VoxelCoord) float64 {
	key := keyFor(c)
	if !a.valid || key != a.key {
		lf, ok := a.f.leaves[key]
		if !ok {
			return a.f.background
		}
		a.key = key
		a.lf = lf
		a.valid = true
	}
	return float64(a.lf.values[offsetFor(c)])
}

// DistanceAtCoord returns the stored distance at the voxel coordinate, or the
// background sentinel if unset.
func (a *Accessor) DistanceAtCoord(c VoxelCoord) float64 {
	if a.f.IsEmpty() {
		a.f.logger.Debug("distance lookup on an empty field")
		return 0
	}
	return a.valueAtCoord(c)
}

// Distance returns the stored distance at the voxel enclosing the world-space
// point, or the background sentinel if unset.
func (a *Accessor) Distance(pt r3.Vector) float64 {
	return a.DistanceAtCoord(a.f.WorldToIndexNodeCentered(pt))
}

// GradientAtCoord estimates the normalized distance gradient at the voxel
// coordinate.
func (a *Accessor) GradientAtCoord(c VoxelCoord) (r3.Vector, bool) {
	if a.f.IsEmpty() {
		a.f.logger.Debug("gradient lookup on an empty field")
		return r3.Vector{}, false
	}
	return a.f.gradientAtCoord(a.valueAtCoord, c)
}

// Gradient estimates the normalized distance gradient at the voxel enclosing
// the world-space point.
func (a *Accessor) Gradient(pt r3.Vector) (r3.Vector, bool) {
	return a.GradientAtCoord(a.f.WorldToIndexNodeCentered(pt))
}
