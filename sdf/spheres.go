package sdf

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// BoundingSphere is one sphere of a bounding-sphere approximation, expressed
// in the owning field's local frame with a world-unit radius.
type BoundingSphere struct {
	Center r3.Vector
	Radius float64
}

// SpherePackConfig parameterizes PackSpheres. Radius bounds are in voxel
// units; they filter candidate spheres and never extend the packing loop.
type SpherePackConfig struct {
	// MaxSpheres is the most spheres the packer will emit.
	MaxSpheres int
	// AllowOverlap permits emitted spheres to intersect one another.
	AllowOverlap bool
	// Isovalue is the field value at which the surface exists; 0 for solids.
	Isovalue float64
	// SampleCount caps the number of interior voxels considered.
	SampleCount int
	// MinRadius and MaxRadius bound emitted sphere radii, in voxel units.
	MinRadius float64
	MaxRadius float64
}

// DefaultSpherePackConfig returns the packing parameters used for active
// parts.
func DefaultSpherePackConfig() SpherePackConfig {
	return SpherePackConfig{
		MaxSpheres:   20,
		AllowOverlap: true,
		Isovalue:     0,
		SampleCount:  100000,
		MinRadius:    1,
		MaxRadius:    math.Inf(1),
	}
}

type sphereCandidate struct {
	coord  VoxelCoord
	center r3.Vector
	radius float64
}

// PackSpheres fits up to MaxSpheres spheres approximating the interior of the
// field's isosurface. Candidates are stored voxels below the isovalue, with
// radius equal to their depth below it. Each round greedily takes the largest
// remaining candidate and discards candidates it fully covers. The result may
// legitimately be a single sphere for geometrically simple shapes, and is
// empty only when the field has no interior voxels deep enough to satisfy
// MinRadius; callers needing a finer approximation must rebuild the field at
// a smaller voxel size and pack again.
func (f *Field) PackSpheres(cfg SpherePackConfig) []BoundingSphere {
	minRadius := cfg.MinRadius * f.voxelSize
	maxRadius := cfg.MaxRadius * f.voxelSize
	if math.IsInf(cfg.MaxRadius, 1) {
		maxRadius = math.Inf(1)
	}

	var candidates []sphereCandidate
	f.VisitVoxels(func(c VoxelCoord, v float64) bool {
		if v >= cfg.Isovalue {
			return true
		}
		radius := cfg.Isovalue - v
		if radius < minRadius {
			return true
		}
		if radius > maxRadius {
			radius = maxRadius
		}
		candidates = append(candidates, sphereCandidate{coord: c, center: f.IndexToWorld(c), radius: radius})
		return true
	})
	if len(candidates) == 0 {
		return nil
	}

	// Map iteration order is randomized; sort for a deterministic packing.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].coord, candidates[j].coord
		if a.I != b.I {
			return a.I < b.I
		}
		if a.J != b.J {
			return a.J < b.J
		}
		return a.K < b.K
	})
	if cfg.SampleCount > 0 && len(candidates) > cfg.SampleCount {
		stride := (len(candidates) + cfg.SampleCount - 1) / cfg.SampleCount
		sampled := make([]sphereCandidate, 0, cfg.SampleCount)
		for i := 0; i < len(candidates); i += stride {
			sampled = append(sampled, candidates[i])
		}
		candidates = sampled
	}

	var spheres []BoundingSphere
	for len(spheres) < cfg.MaxSpheres && len(candidates) > 0 {
		best := 0
		for i, c := range candidates {
			if c.radius > candidates[best].radius {
				best = i
			}
		}
		chosen := candidates[best]
		spheres = append(spheres, BoundingSphere{Center: chosen.center, Radius: chosen.radius})

		remaining := candidates[:0]
		for _, c := range candidates {
			d := c.center.Sub(chosen.center).Norm()
			// Slack absorbs the float32 rounding of stored distances.
			if d+c.radius <= chosen.radius+1e-6 {
				continue // fully covered
			}
			if !cfg.AllowOverlap {
				if free := d - chosen.radius; free < c.radius {
					c.radius = free
				}
				if c.radius < minRadius {
					continue
				}
			}
			remaining = append(remaining, c)
		}
		candidates = remaining
	}
	return spheres
}
