package math

import "github.com/chewxy/math32"

func NewQuatIdentity() Quaternion {
	return Quaternion{0, 0, 0, 1}
}

func (q Quaternion) Normal() float32 {
	return math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalize() Quaternion {
	n := q.Normal()
	if n == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Mul returns the Hamilton product q * other.
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.X*other.W + q.Y*other.Z - q.Z*other.Y + q.W*other.X,
		Y: -q.X*other.Z + q.Y*other.W + q.Z*other.X + q.W*other.Y,
		Z: q.X*other.Y - q.Y*other.X + q.Z*other.W + q.W*other.Z,
		W: -q.X*other.X - q.Y*other.Y - q.Z*other.Z + q.W*other.W,
	}
}

/**
 * @brief Creates a rotation matrix from the given quaternion, laid out for row vectors.
 */
func (q Quaternion) ToMat4() Mat4 {
	n := q.Normalize()
	x, y, z, w := n.X, n.Y, n.Z, n.W

	m := NewMat4Identity()
	m.Data[0] = 1 - 2*(y*y+z*z)
	m.Data[1] = 2 * (x*y + w*z)
	m.Data[2] = 2 * (x*z - w*y)

	m.Data[4] = 2 * (x*y - w*z)
	m.Data[5] = 1 - 2*(x*x+z*z)
	m.Data[6] = 2 * (y*z + w*x)

	m.Data[8] = 2 * (x*z + w*y)
	m.Data[9] = 2 * (y*z - w*x)
	m.Data[10] = 1 - 2*(x*x+y*y)
	return m
}

/**
 * @brief Creates a quaternion from the given axis and angle.
 *
 * @param axis The axis of rotation.
 * @param angle The angle of rotation in radians.
 * @param normalize Indicates if the quaternion should be normalized.
 */
func NewQuatFromAxisAngle(axis Vec3, angle float32, normalize bool) Quaternion {
	a := axis.Normalized()
	half := 0.5 * angle
	s := math32.Sin(half)
	c := math32.Cos(half)
	q := Quaternion{s * a.X, s * a.Y, s * a.Z, c}
	if normalize {
		return q.Normalize()
	}
	return q
}
