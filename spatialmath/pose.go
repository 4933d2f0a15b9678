// Package spatialmath defines spatial mathematical operations and the collision
// shapes consumed by signed distance field construction.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/distancefield/utils"
)

// defaultDistanceEpsilon represents the acceptable discrepancy between two
// poses' translations for them to be considered coincident.
const defaultDistanceEpsilon = 1e-8

// Pose represents a rigid transform in 3D space: a rotation followed by a
// translation. The zero value is not a valid Pose; use NewZeroPose.
type Pose struct {
	o  quat.Number
	pt r3.Vector
}

// Orientation is implemented by the supported rotation parameterizations.
type Orientation interface {
	// Quaternion returns the unit rotation quaternion for the orientation.
	Quaternion() quat.Number
}

// R4AA represents an R4 axis-angle rotation: an axis vector and a rotation
// about it in radians.
type R4AA struct {
	Theta float64
	RX    float64
	RY    float64
	RZ    float64
}

// Quaternion returns the unit quaternion for the axis-angle rotation.
func (a *R4AA) Quaternion() quat.Number {
	axis := r3.Vector{X: a.RX, Y: a.RY, Z: a.RZ}
	if axis.Norm2() == 0 {
		return quat.Number{Real: 1}
	}
	axis = axis.Normalize()
	s := math.Sin(a.Theta / 2)
	return quat.Number{
		Real: math.Cos(a.Theta / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

type zeroOrientation struct{}

func (zeroOrientation) Quaternion() quat.Number {
	return quat.Number{Real: 1}
}

// NewZeroOrientation returns an identity rotation.
func NewZeroOrientation() Orientation {
	return zeroOrientation{}
}

// NewZeroPose returns an identity pose.
func NewZeroPose() Pose {
	return Pose{o: quat.Number{Real: 1}}
}

// NewPoseFromPoint takes a cartesian point and returns a Pose with that
// translation and an identity rotation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{o: quat.Number{Real: 1}, pt: pt}
}

// NewPose takes a cartesian point and an orientation and returns the Pose
// combining the two.
func NewPose(pt r3.Vector, o Orientation) Pose {
	return Pose{o: o.Quaternion(), pt: pt}
}

// NewPoseFromAxisAngle takes a cartesian point, an axis, and an angle in
// radians, and returns the pose rotating by the angle about the axis at that
// point.
func NewPoseFromAxisAngle(pt, axis r3.Vector, theta float64) Pose {
	aa := &R4AA{Theta: theta, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	return Pose{o: aa.Quaternion(), pt: pt}
}

// Point returns the translation of the pose.
func (p Pose) Point() r3.Vector {
	return p.pt
}

// Quaternion returns the rotation quaternion of the pose.
func (p Pose) Quaternion() quat.Number {
	return p.o
}

// TransformPoint applies the pose to the given point.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return rotateVectorByQuaternion(p.o, pt).Add(p.pt)
}

// RotateVector applies only the rotation of the pose to the given vector,
// leaving translation out. Used to move directions, e.g. gradients, between
// frames.
func (p Pose) RotateVector(v r3.Vector) r3.Vector {
	return rotateVectorByQuaternion(p.o, v)
}

// Compose treats Poses as functions and returns the result of applying b and
// then a, such that Compose(a, b).TransformPoint(pt) == a.TransformPoint(b.TransformPoint(pt)).
func Compose(a, b Pose) Pose {
	return Pose{
		o:  quat.Mul(a.o, b.o),
		pt: a.TransformPoint(b.pt),
	}
}

// PoseInverse returns the pose that undoes the given pose.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.o)
	return Pose{
		o:  inv,
		pt: rotateVectorByQuaternion(inv, p.pt.Mul(-1)),
	}
}

// PoseAlmostCoincident checks whether two poses' translations are within the
// default epsilon of each other, ignoring rotation.
func PoseAlmostCoincident(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, defaultDistanceEpsilon)
}

// PoseAlmostCoincidentEps checks whether two poses' translations are within a
// supplied epsilon of each other, ignoring rotation.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.pt, b.pt, epsilon)
}

// PoseAlmostEqual checks whether two poses are within the default epsilon of
// each other in both translation and rotation.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincident(a, b) && quaternionAlmostEqual(a.o, b.o, 1e-8)
}

// R3VectorAlmostEqual compares two r3.Vectors and returns whether all of their
// components are within epsilon of each other.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return utils.Float64AlmostEqual(a.X, b.X, epsilon) &&
		utils.Float64AlmostEqual(a.Y, b.Y, epsilon) &&
		utils.Float64AlmostEqual(a.Z, b.Z, epsilon)
}

// quaternionAlmostEqual accounts for the double cover of rotation quaternions.
func quaternionAlmostEqual(a, b quat.Number, epsilon float64) bool {
	eq := func(a, b quat.Number) bool {
		return utils.Float64AlmostEqual(a.Real, b.Real, epsilon) &&
			utils.Float64AlmostEqual(a.Imag, b.Imag, epsilon) &&
			utils.Float64AlmostEqual(a.Jmag, b.Jmag, epsilon) &&
			utils.Float64AlmostEqual(a.Kmag, b.Kmag, epsilon)
	}
	return eq(a, b) || eq(a, quat.Scale(-1, b))
}

// rotateVectorByQuaternion computes q * v * q^-1 for a unit quaternion q.
func rotateVectorByQuaternion(q quat.Number, v r3.Vector) r3.Vector {
	if v.X == 0 && v.Y == 0 && v.Z == 0 {
		return v
	}
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rq := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: rq.Imag, Y: rq.Jmag, Z: rq.Kmag}
}
