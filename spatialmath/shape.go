package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// CollisionShape is the closed set of collision geometries a part may carry.
// Each shape is immutable and holds its local-to-part offset pose. The
// interface is sealed so that the set of shape kinds a distance field must
// handle is fixed at compile time; geometry kinds with no volumetric
// representation are modeled with UnsupportedShape.
type CollisionShape interface {
	// Pose returns the shape's offset within its owning part's frame.
	Pose() Pose
	// Label returns the name of the shape, if any.
	Label() string

	collisionShape()
}

func newBadShapeDimensionsError(kind string) error {
	return errors.Errorf("all dimensions of a %s must be positive", kind)
}

// Box is a rectangular prism defined by its full extents along each axis.
type Box struct {
	pose     Pose
	halfSize r3.Vector
	label    string
}

// NewBox instantiates a new Box shape from its pose and full dimensions.
func NewBox(pose Pose, dims r3.Vector, label string) (*Box, error) {
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, newBadShapeDimensionsError("box")
	}
	return &Box{pose: pose, halfSize: dims.Mul(0.5), label: label}, nil
}

// Pose returns the pose of the box.
func (b *Box) Pose() Pose { return b.pose }

// Label returns the label of the box.
func (b *Box) Label() string { return b.label }

// HalfSize returns the half extents of the box along each axis.
func (b *Box) HalfSize() r3.Vector { return b.halfSize }

// String returns a human readable string that represents the box.
func (b *Box) String() string {
	return fmt.Sprintf("Type: Box | Dims: X:%.3f, Y:%.3f, Z:%.3f", 2*b.halfSize.X, 2*b.halfSize.Y, 2*b.halfSize.Z)
}

func (b *Box) collisionShape() {}

// Sphere is a sphere defined by its radius.
type Sphere struct {
	pose   Pose
	radius float64
	label  string
}

// NewSphere instantiates a new Sphere shape from its pose and radius.
func NewSphere(pose Pose, radius float64, label string) (*Sphere, error) {
	if radius <= 0 {
		return nil, newBadShapeDimensionsError("sphere")
	}
	return &Sphere{pose: pose, radius: radius, label: label}, nil
}

// Pose returns the pose of the sphere.
func (s *Sphere) Pose() Pose { return s.pose }

// Label returns the label of the sphere.
func (s *Sphere) Label() string { return s.label }

// Radius returns the radius of the sphere.
func (s *Sphere) Radius() float64 { return s.radius }

// String returns a human readable string that represents the sphere.
func (s *Sphere) String() string {
	return fmt.Sprintf("Type: Sphere | Radius: %.3f", s.radius)
}

func (s *Sphere) collisionShape() {}

// Cylinder is a cylinder whose axis of symmetry is the Z axis of its pose,
// defined by its radius and overall length.
type Cylinder struct {
	pose   Pose
	radius float64
	length float64
	label  string
}

// NewCylinder instantiates a new Cylinder shape from its pose, radius, and length.
func NewCylinder(pose Pose, radius, length float64, label string) (*Cylinder, error) {
	if radius <= 0 || length <= 0 {
		return nil, newBadShapeDimensionsError("cylinder")
	}
	return &Cylinder{pose: pose, radius: radius, length: length, label: label}, nil
}

// Pose returns the pose of the cylinder.
func (c *Cylinder) Pose() Pose { return c.pose }

// Label returns the label of the cylinder.
func (c *Cylinder) Label() string { return c.label }

// Radius returns the radius of the cylinder.
func (c *Cylinder) Radius() float64 { return c.radius }

// Length returns the overall length of the cylinder along its axis.
func (c *Cylinder) Length() float64 { return c.length }

// String returns a human readable string that represents the cylinder.
func (c *Cylinder) String() string {
	return fmt.Sprintf("Type: Cylinder | Radius: %.3f | Length: %.3f", c.radius, c.length)
}

func (c *Cylinder) collisionShape() {}

// Cone is a cone whose axis of symmetry is the Z axis of its pose, with its
// base centered at -length/2 and its apex at +length/2.
type Cone struct {
	pose   Pose
	radius float64
	length float64
	label  string
}

// NewCone instantiates a new Cone shape from its pose, base radius, and length.
func NewCone(pose Pose, radius, length float64, label string) (*Cone, error) {
	if radius <= 0 || length <= 0 {
		return nil, newBadShapeDimensionsError("cone")
	}
	return &Cone{pose: pose, radius: radius, length: length, label: label}, nil
}

// Pose returns the pose of the cone.
func (c *Cone) Pose() Pose { return c.pose }

// Label returns the label of the cone.
func (c *Cone) Label() string { return c.label }

// Radius returns the base radius of the cone.
func (c *Cone) Radius() float64 { return c.radius }

// Length returns the overall length of the cone along its axis.
func (c *Cone) Length() float64 { return c.length }

// String returns a human readable string that represents the cone.
func (c *Cone) String() string {
	return fmt.Sprintf("Type: Cone | Radius: %.3f | Length: %.3f", c.radius, c.length)
}

func (c *Cone) collisionShape() {}

// TriangleMesh is a closed triangulated surface.
type TriangleMesh struct {
	pose      Pose
	triangles []*Triangle
	label     string
}

// NewTriangleMesh instantiates a new TriangleMesh from its pose and triangles.
// The triangles are expected to form a closed surface with outward-facing
// normals; signed distances computed against an open or inverted mesh are
// unreliable.
func NewTriangleMesh(pose Pose, triangles []*Triangle, label string) (*TriangleMesh, error) {
	if len(triangles) == 0 {
		return nil, errors.New("a triangle mesh must have at least one triangle")
	}
	return &TriangleMesh{pose: pose, triangles: triangles, label: label}, nil
}

// Pose returns the pose of the mesh.
func (m *TriangleMesh) Pose() Pose { return m.pose }

// Label returns the label of the mesh.
func (m *TriangleMesh) Label() string { return m.label }

// Triangles returns the triangles of the mesh.
func (m *TriangleMesh) Triangles() []*Triangle { return m.triangles }

// String returns a human readable string that represents the mesh.
func (m *TriangleMesh) String() string {
	return fmt.Sprintf("Type: Mesh | Triangles: %d", len(m.triangles))
}

func (m *TriangleMesh) collisionShape() {}

// UnsupportedShape stands in for geometry kinds that have no volumetric
// rasterization, e.g. octrees or infinite planes. Distance field construction
// rejects it by kind.
type UnsupportedShape struct {
	pose  Pose
	kind  string
	label string
}

// NewUnsupportedShape creates a placeholder shape for the named geometry kind.
func NewUnsupportedShape(pose Pose, kind, label string) *UnsupportedShape {
	return &UnsupportedShape{pose: pose, kind: kind, label: label}
}

// Pose returns the pose of the shape.
func (u *UnsupportedShape) Pose() Pose { return u.pose }

// Label returns the label of the shape.
func (u *UnsupportedShape) Label() string { return u.label }

// Kind returns the name of the unsupported geometry kind.
func (u *UnsupportedShape) Kind() string { return u.kind }

// String returns a human readable string that represents the shape.
func (u *UnsupportedShape) String() string {
	return fmt.Sprintf("Type: Unsupported(%s)", u.kind)
}

func (u *UnsupportedShape) collisionShape() {}
