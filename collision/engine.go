package collision

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/distancefield/sdf"
	"go.viam.com/distancefield/spatialmath"
	"go.viam.com/distancefield/utils"
)

// backgroundEpsilon distinguishes a genuine measured clearance from the
// background sentinel read back out of a field.
const backgroundEpsilon = 1e-5

// adjacencyTarget is one part an active parent must be checked against.
type adjacencyTarget struct {
	name     string
	category PartCategory
	index    int
}

// adjacencyEntry is the precomputed check list for one active parent,
// ordered active, then dynamic, then static. Parents with no bounding
// spheres keep an empty list.
type adjacencyEntry struct {
	targets []adjacencyTarget
}

// createAdjacency precomputes, for every active part, the parts it must be
// checked against: every other part whose pairing is not always-allowed by
// the gate. Computed once; reused every query.
func (cr *CollisionRobot) createAdjacency() {
	cr.adjacency = make([]adjacencyEntry, len(cr.active))
	for j, parent := range cr.active {
		if len(parent.Spheres) == 0 {
			continue
		}
		var targets []adjacencyTarget
		for i, rec := range cr.active {
			if i != j && !cr.gate.IsAllowed(rec.Name, parent.Name) {
				targets = append(targets, adjacencyTarget{name: rec.Name, category: CategoryActive, index: i})
			}
		}
		for i, rec := range cr.dynamic {
			if !cr.gate.IsAllowed(rec.Name, parent.Name) {
				targets = append(targets, adjacencyTarget{name: rec.Name, category: CategoryDynamic, index: i})
			}
		}
		for i, rec := range cr.static {
			if !cr.gate.IsAllowed(rec.Name, parent.Name) {
				targets = append(targets, adjacencyTarget{name: rec.Name, category: CategoryStatic, index: i})
			}
		}
		cr.adjacency[j] = adjacencyEntry{targets: targets}
	}
}

// DistanceRequest parameterizes one self-distance query.
type DistanceRequest struct {
	// Configuration is the joint state under which part poses are resolved.
	Configuration Configuration
	// GroupName restricts the query's parent parts to the named joint
	// group's members. Empty means every active part.
	GroupName string
	// Exclude removes the named parts from both parent and target roles for
	// this query.
	Exclude []string
	// Gradient requests the weighted surface-normal estimate.
	Gradient bool
}

// PartDistance is the query result for one active parent part.
type PartDistance struct {
	// Parent is the active part the result belongs to.
	Parent string
	// Nearest is the identity of the closest other part, when Valid.
	Nearest string
	// Distance is the minimum signed clearance found, or the background
	// sentinel when no target produced data.
	Distance float64
	// Gradient is the weighted unit surface-normal estimate, when
	// HasGradient.
	Gradient    r3.Vector
	HasGradient bool
	// Valid reports whether any target produced a genuine measured
	// clearance.
	Valid bool
}

// DistanceResult is the output of one self-distance query.
type DistanceResult struct {
	// Distances holds the per-parent results, keyed by parent part name.
	Distances map[string]PartDistance
	// Minimum is the valid per-parent result with the smallest clearance.
	Minimum PartDistance
}

// SelfDistance computes, for each active parent part, the minimum clearance
// to the parts in its precomputed adjacency under the requested
// configuration, along with the optional repulsion-gradient estimate.
// Returns ErrNoValidDistance when no parent produced usable data.
//
// Queries are read-only over the field library and safe to issue
// concurrently: each call resolves poses afresh and builds its own private
// field accessors.
func (cr *CollisionRobot) SelfDistance(req DistanceRequest) (*DistanceResult, error) {
	var inGroup map[string]bool
	if req.GroupName != "" {
		for _, group := range cr.model.JointGroups() {
			if group.Name != req.GroupName {
				continue
			}
			inGroup = map[string]bool{}
			for _, name := range group.Parts {
				inGroup[name] = true
			}
		}
		if inGroup == nil {
			return nil, newUnknownGroupError(req.GroupName)
		}
	}
	excluded := map[string]bool{}
	for _, name := range req.Exclude {
		excluded[name] = true
	}

	poses, err := cr.resolvePoses(req.Configuration)
	if err != nil {
		return nil, err
	}

	result := &DistanceResult{Distances: map[string]PartDistance{}}
	minFound := false
	for j, parent := range cr.active {
		if excluded[parent.Name] || (inGroup != nil && !inGroup[parent.Name]) {
			continue
		}
		entry := cr.adjacency[j]
		if len(parent.Spheres) == 0 || len(entry.targets) == 0 {
			continue
		}
		pd := cr.distanceForParent(parent, poses.active[j], entry, poses, excluded, req.Gradient)
		result.Distances[parent.Name] = pd
		if pd.Valid && (!minFound || pd.Distance < result.Minimum.Distance) {
			result.Minimum = pd
			minFound = true
		}
	}
	if !minFound {
		return nil, ErrNoValidDistance
	}
	return result, nil
}

// queryPoses caches every part pose needed by one query.
type queryPoses struct {
	active  []spatialmath.Pose
	dynamic []spatialmath.Pose
	root    spatialmath.Pose
}

func (cr *CollisionRobot) resolvePoses(cfg Configuration) (*queryPoses, error) {
	poses := &queryPoses{
		active:  make([]spatialmath.Pose, len(cr.active)),
		dynamic: make([]spatialmath.Pose, len(cr.dynamic)),
		root:    spatialmath.NewZeroPose(),
	}
	var err error
	for i, rec := range cr.active {
		if poses.active[i], err = cr.model.PartPose(cfg, rec.Name); err != nil {
			return nil, errors.Wrapf(err, "posing active part %q", rec.Name)
		}
	}
	for i, rec := range cr.dynamic {
		if poses.dynamic[i], err = cr.model.PartPose(cfg, rec.Name); err != nil {
			return nil, errors.Wrapf(err, "posing dynamic part %q", rec.Name)
		}
	}
	if len(cr.static) > 0 {
		// Static fields live in the body-root frame; one pose covers them all.
		if poses.root, err = cr.model.PartPose(cfg, cr.model.RootPart()); err != nil {
			return nil, errors.Wrapf(err, "posing root part %q", cr.model.RootPart())
		}
	}
	return poses, nil
}

func (cr *CollisionRobot) targetRecord(tgt adjacencyTarget, poses *queryPoses) (*PartRecord, spatialmath.Pose) {
	switch tgt.category {
	case CategoryActive:
		return cr.active[tgt.index], poses.active[tgt.index]
	case CategoryDynamic:
		return cr.dynamic[tgt.index], poses.dynamic[tgt.index]
	case CategoryStatic:
		return cr.static[tgt.index], poses.root
	}
	return nil, spatialmath.NewZeroPose()
}

// distanceForParent runs the per-parent minimum search: the parent's spheres
// are posed into world space, each target maps them into its local index
// space and reads its field, and the smallest sphere-adjusted clearance
// wins. Gradient contributions are accumulated per target at the minimizing
// voxel, weighted by the configured weighting function.
func (cr *CollisionRobot) distanceForParent(
	parent *PartRecord,
	parentPose spatialmath.Pose,
	entry adjacencyEntry,
	poses *queryPoses,
	excluded map[string]bool,
	wantGradient bool,
) PartDistance {
	pd := PartDistance{Parent: parent.Name, Distance: cr.cfg.Background}

	worldSpheres := make([]sdf.BoundingSphere, len(parent.Spheres))
	for i, s := range parent.Spheres {
		worldSpheres[i] = sdf.BoundingSphere{Center: parentPose.TransformPoint(s.Center), Radius: s.Radius}
	}

	var gradientSum r3.Vector
	var totalWeight float64

	for _, tgt := range entry.targets {
		if excluded[tgt.name] {
			continue
		}
		rec, pose := cr.targetRecord(tgt, poses)
		if rec == nil || rec.Field == nil || rec.Field.IsEmpty() {
			continue
		}
		toLocal := spatialmath.PoseInverse(pose)
		accessor := rec.Field.NewAccessor()

		targetMin := cr.cfg.Background
		var minCoord sdf.VoxelCoord
		found := false
		for _, s := range worldSpheres {
			coord := rec.Field.WorldToIndexNodeCentered(toLocal.TransformPoint(s.Center))
			value := accessor.DistanceAtCoord(coord)
			if utils.Float64AlmostEqual(value, cr.cfg.Background, backgroundEpsilon) {
				continue
			}
			if clearance := value - s.Radius; clearance < targetMin {
				targetMin = clearance
				minCoord = coord
				found = true
			}
		}
		if !found {
			continue
		}
		pd.Valid = true
		if targetMin < pd.Distance {
			pd.Distance = targetMin
			pd.Nearest = tgt.name
		}
		if wantGradient {
			if grad, ok := accessor.GradientAtCoord(minCoord); ok {
				weight := cr.cfg.GradientWeight(cr.cfg.Background, targetMin)
				totalWeight += weight
				// Field index axes are aligned with the target's local frame;
				// only the target's rotation is needed to express the
				// gradient in world orientation.
				gradientSum = gradientSum.Add(pose.RotateVector(grad).Mul(weight))
				pd.HasGradient = true
			}
		}
	}

	if pd.HasGradient {
		if totalWeight == 0 {
			pd.Gradient = r3.Vector{}
		} else {
			pd.Gradient = gradientSum.Mul(1 / totalWeight)
			if pd.Gradient.Norm2() > 0 {
				pd.Gradient = pd.Gradient.Normalize()
			}
		}
	}
	return pd
}

// WorldSpheres returns every active part's bounding spheres posed into world
// space under the given configuration. Diagnostic.
func (cr *CollisionRobot) WorldSpheres(cfg Configuration) (map[string][]sdf.BoundingSphere, error) {
	out := map[string][]sdf.BoundingSphere{}
	for _, rec := range cr.active {
		pose, err := cr.model.PartPose(cfg, rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "posing active part %q", rec.Name)
		}
		posed := make([]sdf.BoundingSphere, len(rec.Spheres))
		for i, s := range rec.Spheres {
			posed[i] = sdf.BoundingSphere{Center: pose.TransformPoint(s.Center), Radius: s.Radius}
		}
		out[rec.Name] = posed
	}
	return out, nil
}

// VoxelPoints returns the world-space centers of every stored voxel across
// the library's fields under the given configuration, split into interior
// (negative) and exterior (non-negative) points. Parts named in exclude are
// skipped. Diagnostic.
func (cr *CollisionRobot) VoxelPoints(cfg Configuration, exclude []string) (inside, outside []r3.Vector, err error) {
	excluded := map[string]bool{}
	for _, name := range exclude {
		excluded[name] = true
	}

	dump := func(field *sdf.Field, pose spatialmath.Pose) {
		field.VisitVoxels(func(c sdf.VoxelCoord, v float64) bool {
			pt := pose.TransformPoint(field.IndexToWorld(c))
			if v < 0 {
				inside = append(inside, pt)
			} else {
				outside = append(outside, pt)
			}
			return true
		})
	}

	poses, err := cr.resolvePoses(cfg)
	if err != nil {
		return nil, nil, err
	}
	for i, rec := range cr.active {
		if excluded[rec.Name] || rec.Field == nil {
			continue
		}
		dump(rec.Field, poses.active[i])
	}
	for i, rec := range cr.dynamic {
		if excluded[rec.Name] || rec.Field == nil {
			continue
		}
		dump(rec.Field, poses.dynamic[i])
	}
	// Static parts share one merged field; dump it once unless every static
	// part is excluded.
	seen := map[*sdf.Field]bool{}
	for _, rec := range cr.static {
		if excluded[rec.Name] || rec.Field == nil || seen[rec.Field] {
			continue
		}
		seen[rec.Field] = true
		dump(rec.Field, poses.root)
	}
	return inside, outside, nil
}
