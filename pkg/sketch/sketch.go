// Package sketch provides a fluent 2D construction API. A sketch is an
// ordered list of edges and faces on a plane; it exists only to build the
// serializable profile payload consumed by component-level extrude and
// surface operations. No curve math happens here.
package sketch

import (
	"fmt"

	"github.com/chazu/tenon/pkg/geometry"
)

// EdgeKind enumerates sketch edge types.
type EdgeKind int

const (
	EdgeSegment EdgeKind = iota
	EdgeArc
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeSegment:
		return "segment"
	case EdgeArc:
		return "arc"
	default:
		return "unknown"
	}
}

// Edge is a single sketch edge in plane-local coordinates.
type Edge struct {
	Kind      EdgeKind      `json:"kind"`
	Start     geometry.Vec2 `json:"start"`
	End       geometry.Vec2 `json:"end"`
	Center    geometry.Vec2 `json:"center,omitempty"`    // arc only
	Clockwise bool          `json:"clockwise,omitempty"` // arc only
	Tag       string        `json:"tag,omitempty"`
}

// FaceKind enumerates sketch face types.
type FaceKind int

const (
	FaceCircle FaceKind = iota
	FacePolygon
)

func (k FaceKind) String() string {
	switch k {
	case FaceCircle:
		return "circle"
	case FacePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Face is a closed sketch region in plane-local coordinates.
type Face struct {
	Kind   FaceKind        `json:"kind"`
	Center geometry.Vec2   `json:"center,omitempty"` // circle only
	Radius float64         `json:"radius,omitempty"` // circle only
	Points []geometry.Vec2 `json:"points,omitempty"` // polygon only
	Tag    string          `json:"tag,omitempty"`
}

// Payload is the finite, ordered, serializable description of a sketch
// sent to the modeling service.
type Payload struct {
	Plane geometry.Plane `json:"plane"`
	Edges []Edge         `json:"edges,omitempty"`
	Faces []Face         `json:"faces,omitempty"`
}

// Sketch accumulates edges and faces on a plane. Methods chain; the first
// invalid call latches an error that Payload reports. The "current point"
// starts at the plane origin and advances to the end of each added edge,
// which is what the *To variants chain from.
type Sketch struct {
	plane   geometry.Plane
	edges   []Edge
	faces   []Face
	current geometry.Vec2
	err     error
}

// New creates an empty sketch on the given plane.
func New(plane geometry.Plane) *Sketch {
	return &Sketch{plane: plane}
}

// OnXY creates an empty sketch on the standard XY plane.
func OnXY() *Sketch {
	return New(geometry.XYPlane())
}

// Err returns the first error recorded by a chained call, or nil.
func (s *Sketch) Err() error {
	return s.err
}

// Plane returns the sketch plane.
func (s *Sketch) Plane() geometry.Plane {
	return s.plane
}

// Edges returns the accumulated edges in insertion order.
func (s *Sketch) Edges() []Edge {
	return s.edges
}

// Faces returns the accumulated faces in insertion order.
func (s *Sketch) Faces() []Face {
	return s.faces
}

func (s *Sketch) fail(format string, args ...interface{}) *Sketch {
	if s.err == nil {
		s.err = fmt.Errorf("sketch: "+format, args...)
	}
	return s
}

func firstTag(tags []string) string {
	if len(tags) > 0 {
		return tags[0]
	}
	return ""
}

// Segment adds a line segment between two explicit points.
func (s *Sketch) Segment(from, to geometry.Vec2, tags ...string) *Sketch {
	if s.err != nil {
		return s
	}
	if from == to {
		return s.fail("degenerate segment at %v", from)
	}
	s.edges = append(s.edges, Edge{Kind: EdgeSegment, Start: from, End: to, Tag: firstTag(tags)})
	s.current = to
	return s
}

// SegmentTo adds a segment from the current point to the given point.
func (s *Sketch) SegmentTo(to geometry.Vec2, tags ...string) *Sketch {
	return s.Segment(s.current, to, tags...)
}

// SegmentBy adds a segment from the current point along the given vector.
func (s *Sketch) SegmentBy(v geometry.Vec2, tags ...string) *Sketch {
	return s.Segment(s.current, s.current.Add(v), tags...)
}

// Arc adds a circular arc between two explicit points about center.
func (s *Sketch) Arc(from, to, center geometry.Vec2, clockwise bool, tags ...string) *Sketch {
	if s.err != nil {
		return s
	}
	r1 := from.Sub(center).Norm()
	r2 := to.Sub(center).Norm()
	if r1 == 0 || r2 == 0 {
		return s.fail("arc endpoint coincides with center %v", center)
	}
	s.edges = append(s.edges, Edge{
		Kind:      EdgeArc,
		Start:     from,
		End:       to,
		Center:    center,
		Clockwise: clockwise,
		Tag:       firstTag(tags),
	})
	s.current = to
	return s
}

// ArcTo adds an arc from the current point to the given point about center.
func (s *Sketch) ArcTo(to, center geometry.Vec2, clockwise bool, tags ...string) *Sketch {
	return s.Arc(s.current, to, center, clockwise, tags...)
}

// Circle adds a circular face.
func (s *Sketch) Circle(center geometry.Vec2, radius float64, tags ...string) *Sketch {
	if s.err != nil {
		return s
	}
	if radius <= 0 {
		return s.fail("circle radius must be positive, got %v", radius)
	}
	s.faces = append(s.faces, Face{Kind: FaceCircle, Center: center, Radius: radius, Tag: firstTag(tags)})
	return s
}

// Box adds an axis-aligned rectangular face centered at center.
func (s *Sketch) Box(center geometry.Vec2, width, height float64, tags ...string) *Sketch {
	if s.err != nil {
		return s
	}
	if width <= 0 || height <= 0 {
		return s.fail("box dimensions must be positive, got %v x %v", width, height)
	}
	hw, hh := width/2, height/2
	pts := []geometry.Vec2{
		{X: center.X - hw, Y: center.Y - hh},
		{X: center.X + hw, Y: center.Y - hh},
		{X: center.X + hw, Y: center.Y + hh},
		{X: center.X - hw, Y: center.Y + hh},
	}
	s.faces = append(s.faces, Face{Kind: FacePolygon, Points: pts, Tag: firstTag(tags)})
	return s
}

// Polygon adds a closed polygonal face from explicit points.
func (s *Sketch) Polygon(points []geometry.Vec2, tags ...string) *Sketch {
	if s.err != nil {
		return s
	}
	if len(points) < 3 {
		return s.fail("polygon needs at least 3 points, got %d", len(points))
	}
	pts := make([]geometry.Vec2, len(points))
	copy(pts, points)
	s.faces = append(s.faces, Face{Kind: FacePolygon, Points: pts, Tag: firstTag(tags)})
	return s
}

// Triangle adds a triangular face.
func (s *Sketch) Triangle(p1, p2, p3 geometry.Vec2, tags ...string) *Sketch {
	return s.Polygon([]geometry.Vec2{p1, p2, p3}, tags...)
}

// Payload returns the serializable sketch description, or the first error
// recorded by a chained call.
func (s *Sketch) Payload() (*Payload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Payload{
		Plane: s.plane,
		Edges: s.edges,
		Faces: s.faces,
	}, nil
}

// IsEmpty reports whether the payload describes no geometry.
func (p *Payload) IsEmpty() bool {
	return len(p.Edges) == 0 && len(p.Faces) == 0
}
