package engine3D

import "cogentcore.org/core/math32"

// Positions, matrices and rays are the math32 types. Matrices are
// column-major, the layout OpenGL expects.
type (
	Vec3 = math32.Vector3
	Mat4 = math32.Matrix4
	Ray  = math32.Ray
)

func V3(x, y, z float32) Vec3 { return math32.Vec3(x, y, z) }

var (
	axisX = math32.Vec3(1, 0, 0)
	axisY = math32.Vec3(0, 1, 0)
	axisZ = math32.Vec3(0, 0, 1)
	unit  = math32.Vec3(1, 1, 1)
)

// Rotation turns the XYZ Euler angles r (radians) into a quaternion
// applying Rx * Ry * Rz.
func Rotation(r Vec3) math32.Quat {
	q := math32.NewQuatAxisAngle(axisX, r.X)
	q.SetMul(math32.NewQuatAxisAngle(axisY, r.Y))
	q.SetMul(math32.NewQuatAxisAngle(axisZ, r.Z))
	return q
}

// Transform builds the world matrix of an object at pos rotated by q.
func Transform(pos Vec3, q math32.Quat) *Mat4 {
	m := &Mat4{}
	m.SetTransform(pos, q, unit)
	return m
}

// Apply transforms p as a point (w = 1) by every matrix in order and divides by w.
func Apply(p Vec3, ms ...*Mat4) Vec3 {
	v := math32.Vector4FromVector3(p, 1)
	for _, m := range ms {
		v = v.MulMatrix4(m)
	}
	return v.PerspDiv()
}
