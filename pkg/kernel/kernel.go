// Package kernel defines the abstract geometry kernel interface used by
// the in-process modeling service. Implementations (sdfx) provide solid
// modeling and boolean operations behind this interface so that backends
// can be swapped without changing the service.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid

	// ExtrudePolygon extrudes a closed 2D polygon (counter-clockwise
	// points in the XY plane) upward along +Z by height.
	ExtrudePolygon(points [][2]float64, height float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	// RotateAxis rotates s by angle radians about the axis (ax, ay, az)
	// through the origin.
	RotateAxis(s Solid, ax, ay, az, angle float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
