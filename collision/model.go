// Package collision maintains sparse signed distance field representations of
// a robot's own parts and answers minimum-clearance and repulsion-gradient
// queries between them as the robot moves.
//
// The kinematic model supplying part geometry, joint groupings, fixed
// attachments, and per-configuration poses is an external collaborator
// consumed through the Model interface; this package never implements it.
package collision

import (
	"go.viam.com/distancefield/spatialmath"
)

// Configuration is an opaque joint state of the robot, interpreted only by
// the kinematic model through Model.PartPose.
type Configuration interface{}

// Part is one collision-bearing body of the robot, with its shapes expressed
// in the part's local frame.
type Part struct {
	Name   string
	Shapes []spatialmath.CollisionShape
}

// JointGroup names a movable grouping of parts, e.g. an arm.
type JointGroup struct {
	Name  string
	Parts []string
}

// FixedAttachment is a child part connected to its parent through a
// non-moving joint, with the child's frame expressed relative to the parent.
type FixedAttachment struct {
	Name      string
	Transform spatialmath.Pose
}

// PairAllowance is one declared entry of the pairwise collision-allowance
// policy. Pairs are unordered. Pairs with no entry must always be checked.
type PairAllowance struct {
	First   string
	Second  string
	Allowed bool
}

// Model is the kinematic-model collaborator this package consumes.
type Model interface {
	// Name returns the name of the robot model.
	Name() string
	// RootPart returns the name of the kinematic root.
	RootPart() string
	// CollisionParts returns every part carrying collision geometry.
	CollisionParts() []Part
	// JointGroups returns the movable joint groupings of the robot.
	JointGroups() []JointGroup
	// FixedChildren returns the parts attached to the given part through
	// fixed joints. The fixed-attachment structure may be a DAG; walkers must
	// guard against revisiting.
	FixedChildren(part string) []FixedAttachment
	// PartPose returns the world pose of the named part under the given
	// configuration.
	PartPose(cfg Configuration, part string) (spatialmath.Pose, error)
	// AllowancePolicy returns the robot's declared pairwise collision
	// allowances.
	AllowancePolicy() []PairAllowance
}
