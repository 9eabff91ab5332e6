package geometry

// Plane is a 2D sketch plane embedded in 3D space. DirX and DirY are
// orthonormal in-plane directions; the plane normal is DirX x DirY.
type Plane struct {
	Origin Vec3 `json:"origin"`
	DirX   Vec3 `json:"dir_x"`
	DirY   Vec3 `json:"dir_y"`
}

// XYPlane returns the standard plane at z=0.
func XYPlane() Plane {
	return Plane{
		DirX: Vec3{X: 1},
		DirY: Vec3{Y: 1},
	}
}

// PlaneAt returns an XY-oriented plane with the given origin.
func PlaneAt(origin Vec3) Plane {
	p := XYPlane()
	p.Origin = origin
	return p
}

// Normal returns the plane normal DirX x DirY.
func (p Plane) Normal() Vec3 {
	return p.DirX.Cross(p.DirY)
}

// ToWorld maps a 2D plane-local point into 3D world space.
func (p Plane) ToWorld(v Vec2) Vec3 {
	return p.Origin.Add(p.DirX.Scale(v.X)).Add(p.DirY.Scale(v.Y))
}
