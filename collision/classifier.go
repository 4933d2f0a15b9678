package collision

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/distancefield/sdf"
	"go.viam.com/distancefield/spatialmath"
)

// PartCategory classifies a part by its kinematic mobility relative to the
// body root and its expected query frequency.
type PartCategory int

// The three field-representation strategies.
const (
	// CategoryStatic parts are fixed relative to the root; they share one
	// merged field in the body-root frame.
	CategoryStatic PartCategory = iota
	// CategoryActive parts belong to movable joint groups; they own a private
	// field plus a bounding-sphere approximation and act as query parents.
	CategoryActive
	// CategoryDynamic parts are the remaining collision-bearing parts; they
	// own a private field and act only as query targets.
	CategoryDynamic
)

func (c PartCategory) String() string {
	switch c {
	case CategoryStatic:
		return "static"
	case CategoryActive:
		return "active"
	case CategoryDynamic:
		return "dynamic"
	}
	return "unknown"
}

// Config parameterizes field construction for a robot.
type Config struct {
	// VoxelSize is the nominal world-unit size of one voxel.
	VoxelSize float64
	// Background is the sentinel distance reported outside the narrow band.
	Background float64
	// ExteriorBandWidth and InteriorBandWidth are the narrow-band half-widths
	// in voxel units at the nominal voxel size.
	ExteriorBandWidth float64
	InteriorBandWidth float64
	// SphereRetryLimit caps the voxel-halving retries of sphere packing for
	// active parts. Defaults to 10.
	SphereRetryLimit int
	// SpherePack overrides the packing parameters for active parts. Nil uses
	// sdf.DefaultSpherePackConfig.
	SpherePack *sdf.SpherePackConfig
	// GradientWeight weights a target's gradient contribution by its
	// clearance. Defaults to background - clearance, privileging nearer
	// surfaces.
	GradientWeight func(background, clearance float64) float64
}

func (c *Config) applyDefaults() {
	if c.SphereRetryLimit == 0 {
		c.SphereRetryLimit = 10
	}
	if c.GradientWeight == nil {
		c.GradientWeight = func(background, clearance float64) float64 {
			return background - clearance
		}
	}
}

// PartRecord is the library's record of one classified part.
type PartRecord struct {
	// Name is the part's identity in the kinematic model.
	Name string
	// Category is the part's classification.
	Category PartCategory
	// Field is the part's signed distance field. All static parts share one
	// merged field; active and dynamic parts own private fields built in the
	// part's local frame at identity pose.
	Field *sdf.Field
	// Spheres is the bounding-sphere approximation, active parts only. May be
	// empty after packing exhaustion, in which case the part contributes no
	// self-distance data as a parent.
	Spheres []sdf.BoundingSphere
	// FixedTransform is the part's fixed offset from the body root, static
	// parts only.
	FixedTransform spatialmath.Pose
}

// CollisionRobot owns the classified per-part fields of one robot and
// answers self-distance queries against them. Construction is
// single-threaded; once built, the fields are immutable and queries may be
// issued concurrently.
type CollisionRobot struct {
	model  Model
	cfg    Config
	logger golog.Logger

	gate    *AllowanceGate
	static  []*PartRecord
	active  []*PartRecord
	dynamic []*PartRecord

	adjacency []adjacencyEntry
}

// NewCollisionRobot classifies the model's collision-bearing parts, builds
// one signed distance field per part (one merged field for all static
// parts), packs bounding spheres for active parts, and precomputes the
// query adjacency. The model must be fully defined before this call; the
// allowance policy is read once and never re-read.
func NewCollisionRobot(model Model, cfg Config, logger golog.Logger) (*CollisionRobot, error) {
	cfg.applyDefaults()
	cr := &CollisionRobot{
		model:  model,
		cfg:    cfg,
		logger: logger,
		gate:   NewAllowanceGate(model.AllowancePolicy()),
	}

	byName := map[string]Part{}
	for _, part := range model.CollisionParts() {
		byName[part.Name] = part
	}

	if err := cr.createStaticFields(byName); err != nil {
		return nil, errors.Wrap(err, "building static fields")
	}
	if err := cr.createActiveFields(byName); err != nil {
		return nil, errors.Wrap(err, "building active fields")
	}
	if err := cr.createDynamicFields(byName); err != nil {
		return nil, errors.Wrap(err, "building dynamic fields")
	}
	cr.createAdjacency()
	return cr, nil
}

// Gate returns the robot's allowance gate.
func (cr *CollisionRobot) Gate() *AllowanceGate { return cr.gate }

// Parts returns the records of every classified part, static first, then
// active, then dynamic.
func (cr *CollisionRobot) Parts() []*PartRecord {
	out := make([]*PartRecord, 0, len(cr.static)+len(cr.active)+len(cr.dynamic))
	out = append(out, cr.static...)
	out = append(out, cr.active...)
	out = append(out, cr.dynamic...)
	return out
}

// PartRecord returns the record for the named part.
func (cr *CollisionRobot) PartRecord(name string) (*PartRecord, error) {
	for _, rec := range cr.Parts() {
		if rec.Name == name {
			return rec, nil
		}
	}
	return nil, newUnknownPartError(name)
}

// buildPartField rasterizes all of a part's shapes into a fresh field under
// the given pose. Unsupported shapes are skipped with a diagnostic; the
// field is built from the remaining shapes and may end up empty.
func (cr *CollisionRobot) buildPartField(
	part Part,
	poseInField spatialmath.Pose,
	voxelSize, exBand, inBand float64,
) (*sdf.Field, error) {
	field, err := sdf.NewField(voxelSize, cr.cfg.Background, exBand, inBand, cr.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "part %q", part.Name)
	}
	var skipped error
	for _, shape := range part.Shapes {
		if err := field.AddShape(shape, poseInField); err != nil {
			skipped = multierr.Combine(skipped, err)
		}
	}
	if skipped != nil {
		cr.logger.Warnw("skipped shapes during field construction", "part", part.Name, "error", skipped)
	}
	return field, nil
}

// createStaticFields records the root part (if collision-bearing) and every
// part reachable from it exclusively through fixed joints, merging them all
// into one body-root-frame field built at their fixed offsets. The fixed
// attachment structure is treated as a DAG: a visited set guarantees
// termination and keeps a part's first-found offset.
func (cr *CollisionRobot) createStaticFields(byName map[string]Part) error {
	merged, err := sdf.NewField(
		cr.cfg.VoxelSize, cr.cfg.Background, cr.cfg.ExteriorBandWidth, cr.cfg.InteriorBandWidth, cr.logger)
	if err != nil {
		return err
	}

	root := cr.model.RootPart()
	visited := map[string]bool{root: true}

	record := func(name string, offset spatialmath.Pose) error {
		part, ok := byName[name]
		if !ok {
			return nil
		}
		partField, err := cr.buildPartField(
			part, offset, cr.cfg.VoxelSize, cr.cfg.ExteriorBandWidth, cr.cfg.InteriorBandWidth)
		if err != nil {
			return err
		}
		if err := merged.UnionWith(partField); err != nil {
			return errors.Wrapf(err, "merging static part %q", name)
		}
		cr.static = append(cr.static, &PartRecord{
			Name:           name,
			Category:       CategoryStatic,
			FixedTransform: offset,
		})
		return nil
	}

	if err := record(root, spatialmath.NewZeroPose()); err != nil {
		return err
	}

	var walk func(parent string, base spatialmath.Pose) error
	walk = func(parent string, base spatialmath.Pose) error {
		for _, attachment := range cr.model.FixedChildren(parent) {
			if visited[attachment.Name] {
				continue
			}
			visited[attachment.Name] = true
			offset := spatialmath.Compose(base, attachment.Transform)
			if err := record(attachment.Name, offset); err != nil {
				return err
			}
			if err := walk(attachment.Name, offset); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, spatialmath.NewZeroPose()); err != nil {
		return err
	}

	for _, rec := range cr.static {
		rec.Field = merged
	}
	return nil
}

// createActiveFields builds a private local-frame field for every
// collision-bearing part referenced by a movable joint group, plus its
// bounding-sphere set. Sphere packing retries with halved voxel sizes, the
// band widths scaled inversely so their world-unit thickness is constant,
// until more than one sphere is found or the retry limit is hit.
func (cr *CollisionRobot) createActiveFields(byName map[string]Part) error {
	isStatic := map[string]bool{}
	for _, rec := range cr.static {
		isStatic[rec.Name] = true
	}

	seen := map[string]bool{}
	var names []string
	for _, group := range cr.model.JointGroups() {
		for _, name := range group.Parts {
			if seen[name] || isStatic[name] {
				continue
			}
			if _, ok := byName[name]; !ok {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}

	packCfg := sdf.DefaultSpherePackConfig()
	if cr.cfg.SpherePack != nil {
		packCfg = *cr.cfg.SpherePack
	}

	for _, name := range names {
		part := byName[name]

		var field *sdf.Field
		var spheres []sdf.BoundingSphere
		voxelSize := cr.cfg.VoxelSize
		for attempt := 0; attempt < cr.cfg.SphereRetryLimit; attempt++ {
			// Scaling the bands by (nominal/current) keeps the band's
			// world-unit thickness constant as the voxels shrink.
			scale := cr.cfg.VoxelSize / voxelSize
			var err error
			field, err = cr.buildPartField(
				part, spatialmath.NewZeroPose(),
				voxelSize, cr.cfg.ExteriorBandWidth*scale, cr.cfg.InteriorBandWidth*scale)
			if err != nil {
				return err
			}
			spheres = field.PackSpheres(packCfg)
			if len(spheres) > 1 {
				break
			}
			voxelSize *= 0.5
		}
		if len(spheres) <= 1 {
			spheres = nil
			cr.logger.Errorw("sphere packing exhausted; part will contribute no self-distance data as a parent",
				"part", name, "retries", cr.cfg.SphereRetryLimit)
		}

		cr.active = append(cr.active, &PartRecord{
			Name:     name,
			Category: CategoryActive,
			Field:    field,
			Spheres:  spheres,
		})
	}
	return nil
}

// createDynamicFields builds a private local-frame field for every remaining
// collision-bearing part.
func (cr *CollisionRobot) createDynamicFields(byName map[string]Part) error {
	classified := map[string]bool{}
	for _, rec := range cr.static {
		classified[rec.Name] = true
	}
	for _, rec := range cr.active {
		classified[rec.Name] = true
	}

	for _, part := range cr.model.CollisionParts() {
		if classified[part.Name] {
			continue
		}
		field, err := cr.buildPartField(
			part, spatialmath.NewZeroPose(),
			cr.cfg.VoxelSize, cr.cfg.ExteriorBandWidth, cr.cfg.InteriorBandWidth)
		if err != nil {
			return err
		}
		cr.dynamic = append(cr.dynamic, &PartRecord{
			Name:     part.Name,
			Category: CategoryDynamic,
			Field:    field,
		})
	}
	return nil
}

// MemoryFootprint returns the estimated resident bytes of every distinct
// field in the library. Diagnostic only.
func (cr *CollisionRobot) MemoryFootprint() uint64 {
	var total uint64
	seen := map[*sdf.Field]bool{}
	for _, rec := range cr.Parts() {
		if rec.Field == nil || seen[rec.Field] {
			continue
		}
		seen[rec.Field] = true
		total += rec.Field.MemoryFootprint()
	}
	return total
}
