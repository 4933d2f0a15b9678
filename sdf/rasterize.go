package sdf

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/distancefield/spatialmath"
)

// UnsupportedShapeError is returned when a shape kind has no volumetric
// rasterization. The offending shape contributes nothing to the field.
type UnsupportedShapeError struct {
	Kind string
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("cannot rasterize unsupported shape kind %q", e.Kind)
}

// AddShape rasterizes a collision shape into the field under the given pose
// and unions the result with whatever the field already holds. Primitive
// shapes are tessellated into triangle meshes (spheres take an analytic
// path) and a narrow-band level set is computed from the mesh. Returns an
// UnsupportedShapeError for shape kinds with no rasterization.
func (f *Field) AddShape(shape spatialmath.CollisionShape, poseInField spatialmath.Pose) error {
	pose := spatialmath.Compose(poseInField, shape.Pose())
	switch s := shape.(type) {
	case *spatialmath.Sphere:
		f.addLevelSetSphere(pose.Point(), s.Radius())
	case *spatialmath.Box:
		f.addTriangles(boxMesh(s.HalfSize(), pose))
	case *spatialmath.Cylinder:
		f.addTriangles(cylinderMesh(s.Radius(), s.Length(), f.sideCount(s.Radius()), pose))
	case *spatialmath.Cone:
		f.addTriangles(coneMesh(s.Radius(), s.Length(), f.sideCount(s.Radius()), pose))
	case *spatialmath.TriangleMesh:
		tris := make([]*spatialmath.Triangle, 0, len(s.Triangles()))
		for _, tri := range s.Triangles() {
			tris = append(tris, tri.Transform(pose))
		}
		f.addTriangles(tris)
	case *spatialmath.UnsupportedShape:
		return &UnsupportedShapeError{Kind: s.Kind()}
	default:
		return &UnsupportedShapeError{Kind: fmt.Sprintf("%T", shape)}
	}
	return nil
}

// sideCount derives the tessellation side count for a radius such that the
// chordal deviation of the surface stays within one voxel.
func (f *Field) sideCount(radius float64) int {
	sides := int(math.Ceil(2 * math.Pi / (f.voxelSize / radius)))
	if sides < 3 {
		sides = 3
	}
	return sides
}

// addLevelSetSphere rasterizes a sphere analytically, voxel by voxel over the
// banded neighborhood of its surface.
func (f *Field) addLevelSetSphere(center r3.Vector, radius float64) {
	reach := radius + f.exBand*f.voxelSize
	lo := f.WorldToIndexNodeCentered(center.Sub(r3.Vector{X: reach, Y: reach, Z: reach}))
	hi := f.WorldToIndexNodeCentered(center.Add(r3.Vector{X: reach, Y: reach, Z: reach}))
	for i := lo.I; i <= hi.I; i++ {
		for j := lo.J; j <= hi.J; j++ {
			for k := lo.K; k <= hi.K; k++ {
				c := VoxelCoord{I: i, J: j, K: k}
				f.setMin(c, f.IndexToWorld(c).Sub(center).Norm()-radius)
			}
		}
	}
}

// addTriangles computes a narrow-band level set from a closed triangle mesh
// with outward normals and unions it into the field. Sign is taken from the
// pseudonormal of the nearest surface feature.
func (f *Field) addTriangles(tris []*spatialmath.Triangle) {
	if len(tris) == 0 {
		return
	}
	band := math.Max(f.exBand, f.inBand) * f.voxelSize

	// Candidate voxels come from each triangle's bounding box dilated by the
	// band width.
	candidates := map[VoxelCoord]struct{}{}
	for _, tri := range tris {
		lo, hi := triangleBounds(tri, band)
		loC := f.WorldToIndexNodeCentered(lo)
		hiC := f.WorldToIndexNodeCentered(hi)
		for i := loC.I; i <= hiC.I; i++ {
			for j := loC.J; j <= hiC.J; j++ {
				for k := loC.K; k <= hiC.K; k++ {
					candidates[VoxelCoord{I: i, J: j, K: k}] = struct{}{}
				}
			}
		}
	}

	for c := range candidates {
		p := f.IndexToWorld(c)
		best := math.Inf(1)
		var bestPt, normalSum r3.Vector
		for _, tri := range tris {
			cp := tri.ClosestPointToPoint(p)
			d2 := p.Sub(cp).Norm2()
			switch {
			case d2 < best*(1-1e-9):
				best = d2
				bestPt = cp
				normalSum = tri.Normal()
			case d2 <= best*(1+1e-9):
				// Accumulate normals only when the tied triangle shares the
				// same closest point, i.e. a shared edge or vertex. Ties at
				// distinct points (medial-axis voxels between opposite faces)
				// must not cancel the pseudonormal.
				if cp.Sub(bestPt).Norm2() <= 1e-18 {
					normalSum = normalSum.Add(tri.Normal())
				}
			}
		}
		dist := math.Sqrt(best)
		if p.Sub(bestPt).Dot(normalSum) < 0 {
			dist = -dist
		}
		f.setMin(c, dist)
	}
}

func triangleBounds(tri *spatialmath.Triangle, dilation float64) (r3.Vector, r3.Vector) {
	pts := tri.Points()
	lo := pts[0]
	hi := pts[0]
	for _, pt := range pts[1:] {
		lo = r3.Vector{X: math.Min(lo.X, pt.X), Y: math.Min(lo.Y, pt.Y), Z: math.Min(lo.Z, pt.Z)}
		hi = r3.Vector{X: math.Max(hi.X, pt.X), Y: math.Max(hi.Y, pt.Y), Z: math.Max(hi.Z, pt.Z)}
	}
	d := r3.Vector{X: dilation, Y: dilation, Z: dilation}
	return lo.Sub(d), hi.Add(d)
}

// boxMesh tessellates a box into 12 triangles with outward winding.
func boxMesh(halfSize r3.Vector, pose spatialmath.Pose) []*spatialmath.Triangle {
	x, y, z := halfSize.X, halfSize.Y, halfSize.Z
	v := [8]r3.Vector{
		{X: -x, Y: -y, Z: -z},
		{X: x, Y: -y, Z: -z},
		{X: x, Y: y, Z: -z},
		{X: -x, Y: y, Z: -z},
		{X: -x, Y: -y, Z: z},
		{X: x, Y: -y, Z: z},
		{X: x, Y: y, Z: z},
		{X: -x, Y: y, Z: z},
	}
	quads := [6][4]int{
		{0, 3, 2, 1}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4}, // front
		{2, 3, 7, 6}, // back
		{0, 4, 7, 3}, // left
		{1, 2, 6, 5}, // right
	}
	tris := make([]*spatialmath.Triangle, 0, 12)
	for _, q := range quads {
		a, b, c, d := pose.TransformPoint(v[q[0]]), pose.TransformPoint(v[q[1]]), pose.TransformPoint(v[q[2]]), pose.TransformPoint(v[q[3]])
		tris = append(tris, spatialmath.NewTriangle(a, b, c), spatialmath.NewTriangle(a, c, d))
	}
	return tris
}

// cylinderMesh tessellates a cylinder aligned with the pose Z axis into wall
// quads and cap fans.
func cylinderMesh(radius, length float64, sides int, pose spatialmath.Pose) []*spatialmath.Triangle {
	dh := length / 2
	top := make([]r3.Vector, sides)
	bottom := make([]r3.Vector, sides)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / float64(sides)
		x := radius * math.Cos(theta)
		y := radius * math.Sin(theta)
		top[i] = pose.TransformPoint(r3.Vector{X: x, Y: y, Z: dh})
		bottom[i] = pose.TransformPoint(r3.Vector{X: x, Y: y, Z: -dh})
	}
	topCenter := pose.TransformPoint(r3.Vector{Z: dh})
	bottomCenter := pose.TransformPoint(r3.Vector{Z: -dh})

	tris := make([]*spatialmath.Triangle, 0, 4*sides)
	for i := 0; i < sides; i++ {
		next := (i + 1) % sides
		// wall
		tris = append(tris,
			spatialmath.NewTriangle(bottom[i], bottom[next], top[next]),
			spatialmath.NewTriangle(bottom[i], top[next], top[i]),
		)
		// caps
		tris = append(tris,
			spatialmath.NewTriangle(topCenter, top[i], top[next]),
			spatialmath.NewTriangle(bottomCenter, bottom[next], bottom[i]),
		)
	}
	return tris
}

// coneMesh tessellates a cone with its base at -length/2 and apex at
// +length/2 along the pose Z axis.
func coneMesh(radius, length float64, sides int, pose spatialmath.Pose) []*spatialmath.Triangle {
	dh := length / 2
	base := make([]r3.Vector, sides)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / float64(sides)
		base[i] = pose.TransformPoint(r3.Vector{X: radius * math.Cos(theta), Y: radius * math.Sin(theta), Z: -dh})
	}
	apex := pose.TransformPoint(r3.Vector{Z: dh})
	baseCenter := pose.TransformPoint(r3.Vector{Z: -dh})

	tris := make([]*spatialmath.Triangle, 0, 2*sides)
	for i := 0; i < sides; i++ {
		next := (i + 1) % sides
		tris = append(tris,
			spatialmath.NewTriangle(base[i], base[next], apex),
			spatialmath.NewTriangle(baseCenter, base[next], base[i]),
		)
	}
	return tris
}
