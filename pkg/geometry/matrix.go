package geometry

import "math"

// Matrix44 is a row-major 4x4 affine transform. The last row of a
// placement transform is always (0 0 0 1).
type Matrix44 [4][4]float64

// Identity returns the identity transform.
func Identity() Matrix44 {
	return Matrix44{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a transform that translates by v.
func Translation(v Vec3) Matrix44 {
	return Matrix44{
		{1, 0, 0, v.X},
		{0, 1, 0, v.Y},
		{0, 0, 1, v.Z},
		{0, 0, 0, 1},
	}
}

// RotationAbout returns a transform rotating by angle radians around the
// axis through origin. The axis need not be normalized; a zero axis
// yields the identity.
func RotationAbout(origin, axis Vec3, angle float64) Matrix44 {
	u := axis.Unit()
	if u.IsZero() {
		return Identity()
	}
	c := math.Cos(angle)
	s := math.Sin(angle)
	t := 1 - c

	// Rodrigues rotation about the origin.
	r := Matrix44{
		{t*u.X*u.X + c, t*u.X*u.Y - s*u.Z, t*u.X*u.Z + s*u.Y, 0},
		{t*u.X*u.Y + s*u.Z, t*u.Y*u.Y + c, t*u.Y*u.Z - s*u.X, 0},
		{t*u.X*u.Z - s*u.Y, t*u.Y*u.Z + s*u.X, t*u.Z*u.Z + c, 0},
		{0, 0, 0, 1},
	}

	if origin.IsZero() {
		return r
	}
	// Conjugate by the origin offset so the axis passes through origin.
	return Translation(origin).Mul(r).Mul(Translation(origin.Scale(-1)))
}

// Mul returns m * n (n applied first).
func (m Matrix44) Mul(n Matrix44) Matrix44 {
	var out Matrix44
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i][k] * n[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// ApplyPoint transforms p as a point (w = 1).
func (m Matrix44) ApplyPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// ApplyDirection transforms d as a direction (w = 0, translation ignored).
func (m Matrix44) ApplyDirection(d Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*d.X + m[0][1]*d.Y + m[0][2]*d.Z,
		Y: m[1][0]*d.X + m[1][1]*d.Y + m[1][2]*d.Z,
		Z: m[2][0]*d.X + m[2][1]*d.Y + m[2][2]*d.Z,
	}
}

// Translation returns the translation column of m.
func (m Matrix44) Translation() Vec3 {
	return Vec3{m[0][3], m[1][3], m[2][3]}
}

// IsIdentity reports whether m is the identity within tol.
func (m Matrix44) IsIdentity(tol float64) bool {
	return m.NearEqual(Identity(), tol)
}

// NearEqual reports whether every entry of m and n differs by at most tol.
func (m Matrix44) NearEqual(n Matrix44, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-n[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
