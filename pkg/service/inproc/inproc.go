// Package inproc implements the service.Modeler contract against a local
// geometry kernel. It is a faithful stand-in for the remote modeling
// service: it issues its own entity IDs, owns the authoritative solids,
// and enforces the same error taxonomy. Used by tests, the example
// program, and offline work.
package inproc

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/kernel"
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/sketch"
)

// Compile-time interface check.
var _ service.Modeler = (*Service)(nil)

// emptyVolume is the threshold below which a boolean result counts as
// empty. Marching cubes on a truly empty SDF emits no triangles at all,
// so this only guards near-degenerate slivers.
const emptyVolume = 1e-6

// surfaceThickness is the nominal thickness used to represent surface
// bodies, which the SDF kernel cannot express as true zero-thickness
// sheets.
const surfaceThickness = 0.2

// bodyRecord is the authoritative state of one master body. The same
// record is resolvable through both the occurrence and the master ID.
type bodyRecord struct {
	body    service.EntityID
	master  service.EntityID
	solid   kernel.Solid
	surface bool
}

// Service is an in-process Modeler. All state is behind one mutex,
// matching the synchronous single-caller model of the contract.
type Service struct {
	mu      sync.Mutex
	k       kernel.Kernel
	log     zerolog.Logger
	records map[service.EntityID]*bodyRecord
	known   map[service.EntityID]string // kind by ID for non-body entities
}

// New creates an in-process service on the given kernel. Pass
// zerolog.Nop() to silence logging.
func New(k kernel.Kernel, log zerolog.Logger) *Service {
	return &Service{
		k:       k,
		log:     log.With().Str("component", "inproc").Logger(),
		records: make(map[service.EntityID]*bodyRecord),
		known:   make(map[service.EntityID]string),
	}
}

func newID() service.EntityID {
	return service.EntityID(uuid.NewString())
}

// checkCtx maps context cancellation onto the transport error kind, the
// same way a dropped connection would surface.
func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return service.Transportf(op, err)
	}
	return nil
}

func (s *Service) resolve(id service.EntityID) *bodyRecord {
	return s.records[id]
}

func (s *Service) register(rec *bodyRecord) {
	s.records[rec.body] = rec
	s.records[rec.master] = rec
}

func (s *Service) unregister(rec *bodyRecord) {
	delete(s.records, rec.body)
	delete(s.records, rec.master)
}

// --- tree structure ---

func (s *Service) CreateDesign(ctx context.Context, name string) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_design"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	s.known[id] = "design"
	s.log.Debug().Str("name", name).Str("id", id.Short()).Msg("design created")
	return id, nil
}

func (s *Service) CreateComponent(ctx context.Context, parentID service.EntityID, name string, templateID service.EntityID) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_component"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[parentID]; !ok {
		return "", service.ErrNotFound
	}
	if !templateID.IsZero() {
		if _, ok := s.known[templateID]; !ok {
			return "", service.ErrNotFound
		}
	}
	id := newID()
	s.known[id] = "component"
	s.log.Debug().Str("name", name).Str("id", id.Short()).Msg("component created")
	return id, nil
}

func (s *Service) SetSharedTopology(ctx context.Context, componentID service.EntityID, kind service.SharedTopology) error {
	if err := checkCtx(ctx, "set_shared_topology"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[componentID]; !ok {
		return service.ErrNotFound
	}
	s.log.Debug().Str("component", componentID.Short()).Stringer("kind", kind).Msg("shared topology set")
	return nil
}

// --- geometry-producing operations ---

func (s *Service) CreateBodyFromSketch(ctx context.Context, parentID service.EntityID, name string, profile *sketch.Payload, distance float64) (service.EntityID, service.EntityID, error) {
	if err := checkCtx(ctx, "create_body_from_sketch"); err != nil {
		return "", "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[parentID]; !ok {
		return "", "", service.ErrNotFound
	}
	if distance <= 0 {
		return "", "", service.Semanticf(service.ReasonInvalidArgument,
			"extrude distance must be positive, got %v", distance)
	}
	solid, err := s.solidFromProfile(profile, distance)
	if err != nil {
		return "", "", err
	}

	rec := &bodyRecord{body: newID(), master: newID(), solid: solid}
	s.register(rec)
	s.known[rec.body] = "body"
	s.log.Debug().Str("name", name).Str("body", rec.body.Short()).
		Str("master", rec.master.Short()).Msg("body extruded")
	return rec.body, rec.master, nil
}

func (s *Service) CreateSurfaceBody(ctx context.Context, parentID service.EntityID, name string, profile *sketch.Payload) (service.EntityID, service.EntityID, error) {
	if err := checkCtx(ctx, "create_surface_body"); err != nil {
		return "", "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[parentID]; !ok {
		return "", "", service.ErrNotFound
	}
	solid, err := s.solidFromProfile(profile, surfaceThickness)
	if err != nil {
		return "", "", err
	}

	rec := &bodyRecord{body: newID(), master: newID(), solid: solid, surface: true}
	s.register(rec)
	s.known[rec.body] = "body"
	s.log.Debug().Str("name", name).Str("body", rec.body.Short()).Msg("surface body created")
	return rec.body, rec.master, nil
}

func (s *Service) CopyBody(ctx context.Context, sourceMasterID, parentID service.EntityID, name string) (service.EntityID, service.EntityID, error) {
	if err := checkCtx(ctx, "copy_body"); err != nil {
		return "", "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.resolve(sourceMasterID)
	if src == nil {
		return "", "", service.ErrNotFound
	}
	if _, ok := s.known[parentID]; !ok {
		return "", "", service.ErrNotFound
	}
	// Kernel solids are immutable expression graphs, so the copy can
	// share the solid until a boolean replaces it.
	rec := &bodyRecord{body: newID(), master: newID(), solid: src.solid, surface: src.surface}
	s.register(rec)
	s.known[rec.body] = "body"
	s.log.Debug().Str("source", sourceMasterID.Short()).Str("copy", rec.master.Short()).Msg("body copied")
	return rec.body, rec.master, nil
}

// --- geometry-mutating operations ---

func (s *Service) BooleanOp(ctx context.Context, op service.BooleanKind, targetID, otherID service.EntityID) error {
	if err := checkCtx(ctx, "boolean_op"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.resolve(targetID)
	other := s.resolve(otherID)
	if target == nil || other == nil {
		return service.ErrNotFound
	}

	var result kernel.Solid
	switch op {
	case service.BooleanIntersect:
		result = s.k.Intersection(target.solid, other.solid)
	case service.BooleanSubtract:
		result = s.k.Difference(target.solid, other.solid)
	case service.BooleanUnite:
		result = s.k.Union(target.solid, other.solid)
	default:
		return service.Semanticf(service.ReasonInvalidArgument, "unknown boolean op %q", op)
	}

	mesh, err := s.k.ToMesh(result)
	if err != nil {
		return service.Semanticf(service.ReasonEmptyResult, "%s produced unmeshable geometry: %v", op, err)
	}
	if mesh.IsEmpty() || math.Abs(mesh.Volume()) < emptyVolume {
		return service.Semanticf(service.ReasonEmptyResult,
			"%s of %s and %s is empty", op, targetID.Short(), otherID.Short())
	}

	target.solid = result
	s.unregister(other)
	delete(s.known, other.body)
	s.log.Debug().Str("op", string(op)).Str("target", targetID.Short()).
		Str("consumed", otherID.Short()).Msg("boolean applied")
	return nil
}

func (s *Service) TranslateBody(ctx context.Context, bodyID service.EntityID, direction geometry.Vec3, distance float64) error {
	if err := checkCtx(ctx, "translate_body"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.resolve(bodyID)
	if rec == nil {
		return service.ErrNotFound
	}
	if !direction.IsUnit() {
		return service.Semanticf(service.ReasonInvalidArgument, "direction %v is not a unit vector", direction)
	}
	if distance < 0 {
		return service.Semanticf(service.ReasonInvalidArgument, "distance must be non-negative, got %v", distance)
	}
	d := direction.Scale(distance)
	rec.solid = s.k.Translate(rec.solid, d.X, d.Y, d.Z)
	return nil
}

func (s *Service) ImprintCurves(ctx context.Context, bodyID service.EntityID, profile *sketch.Payload) ([]service.FaceDescriptor, error) {
	if err := checkCtx(ctx, "imprint_curves"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.resolve(bodyID)
	if rec == nil {
		return nil, service.ErrNotFound
	}
	if profile == nil || profile.IsEmpty() {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "imprint profile is empty")
	}
	// The SDF backend cannot split faces, so imprinting only reports the
	// faces that would be created.
	n := len(profile.Faces) + len(profile.Edges)
	faces := make([]service.FaceDescriptor, 0, n)
	for i := 0; i < n; i++ {
		faces = append(faces, service.FaceDescriptor{ID: newID(), Surface: "plane"})
	}
	return faces, nil
}

// --- lifecycle ---

func (s *Service) Delete(ctx context.Context, entityID service.EntityID) error {
	if err := checkCtx(ctx, "delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.resolve(entityID); rec != nil {
		s.unregister(rec)
		delete(s.known, rec.body)
		s.log.Debug().Str("id", entityID.Short()).Msg("body deleted")
		return nil
	}
	if _, ok := s.known[entityID]; ok {
		delete(s.known, entityID)
		s.log.Debug().Str("id", entityID.Short()).Msg("entity deleted")
		return nil
	}
	return service.ErrNotFound
}

// --- read operations ---

func (s *Service) GetFaces(ctx context.Context, bodyID service.EntityID) ([]service.FaceDescriptor, error) {
	if err := checkCtx(ctx, "get_faces"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.resolve(bodyID)
	if rec == nil {
		return nil, service.ErrNotFound
	}
	min, max := rec.solid.BoundingBox()
	dx, dy, dz := max[0]-min[0], max[1]-min[1], max[2]-min[2]

	if rec.surface {
		return []service.FaceDescriptor{
			{ID: rec.master + "/face/0", Surface: "plane", Area: dx * dy},
		}, nil
	}
	// Six bounding faces; the SDF backend has no B-rep, so descriptors
	// are synthesized from the bounding box.
	areas := []float64{dy * dz, dy * dz, dx * dz, dx * dz, dx * dy, dx * dy}
	faces := make([]service.FaceDescriptor, len(areas))
	for i, a := range areas {
		faces[i] = service.FaceDescriptor{
			ID:      service.EntityID(fmt.Sprintf("%s/face/%d", rec.master, i)),
			Surface: "plane",
			Area:    a,
		}
	}
	return faces, nil
}

func (s *Service) GetEdges(ctx context.Context, bodyID service.EntityID) ([]service.EdgeDescriptor, error) {
	if err := checkCtx(ctx, "get_edges"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.resolve(bodyID)
	if rec == nil {
		return nil, service.ErrNotFound
	}
	min, max := rec.solid.BoundingBox()
	dims := [3]float64{max[0] - min[0], max[1] - min[1], max[2] - min[2]}

	// Twelve bounding edges, four per axis.
	edges := make([]service.EdgeDescriptor, 0, 12)
	for axis, d := range dims {
		for i := 0; i < 4; i++ {
			edges = append(edges, service.EdgeDescriptor{
				ID:     service.EntityID(fmt.Sprintf("%s/edge/%d", rec.master, axis*4+i)),
				Curve:  "line",
				Length: d,
			})
		}
	}
	return edges, nil
}

func (s *Service) GetVolume(ctx context.Context, bodyID service.EntityID) (float64, error) {
	if err := checkCtx(ctx, "get_volume"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.resolve(bodyID)
	if rec == nil {
		return 0, service.ErrNotFound
	}
	if rec.surface {
		return 0, nil
	}
	mesh, err := s.k.ToMesh(rec.solid)
	if err != nil {
		return 0, service.Semanticf(service.ReasonEmptyResult, "volume of %s: %v", bodyID.Short(), err)
	}
	return math.Abs(mesh.Volume()), nil
}

func (s *Service) Tessellate(ctx context.Context, bodyID service.EntityID, merge bool, transform geometry.Matrix44) (*service.MeshPayload, error) {
	if err := checkCtx(ctx, "tessellate"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.resolve(bodyID)
	if rec == nil {
		return nil, service.ErrNotFound
	}
	mesh, err := s.k.ToMesh(rec.solid)
	if err != nil {
		return nil, service.Semanticf(service.ReasonEmptyResult, "tessellate %s: %v", bodyID.Short(), err)
	}
	mesh = applyTransform(mesh, transform)

	if merge {
		return &service.MeshPayload{Merged: mesh}, nil
	}
	return &service.MeshPayload{Faces: mesh.SplitByNormal()}, nil
}

// --- aggregates and auxiliary entities ---

func (s *Service) CreateNamedSelection(ctx context.Context, name string, memberIDs []service.EntityID) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_named_selection"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Members are weak references; they are not validated here.
	id := newID()
	s.known[id] = "named_selection"
	s.log.Debug().Str("name", name).Int("members", len(memberIDs)).Msg("named selection created")
	return id, nil
}

func (s *Service) CreateBeamProfile(ctx context.Context, name string, radius float64) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_beam_profile"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if radius <= 0 {
		return "", service.Semanticf(service.ReasonInvalidArgument, "beam profile radius must be positive, got %v", radius)
	}
	id := newID()
	s.known[id] = "beam_profile"
	return id, nil
}

func (s *Service) CreateBeam(ctx context.Context, parentID service.EntityID, start, end geometry.Vec3, profileID service.EntityID) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_beam"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[parentID]; !ok {
		return "", service.ErrNotFound
	}
	if _, ok := s.known[profileID]; !ok {
		return "", service.ErrNotFound
	}
	if start == end {
		return "", service.Semanticf(service.ReasonInvalidArgument, "beam start and end coincide at %v", start)
	}
	id := newID()
	s.known[id] = "beam"
	return id, nil
}

func (s *Service) CreateCoordinateSystem(ctx context.Context, parentID service.EntityID, name string, frame service.Frame) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_coordinate_system"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[parentID]; !ok {
		return "", service.ErrNotFound
	}
	if !frame.DirX.IsUnit() || !frame.DirY.IsUnit() {
		return "", service.Semanticf(service.ReasonInvalidArgument, "frame axes must be unit vectors")
	}
	id := newID()
	s.known[id] = "coordinate_system"
	return id, nil
}

func (s *Service) CreateDesignPoint(ctx context.Context, parentID service.EntityID, name string, point geometry.Vec3) (service.EntityID, error) {
	if err := checkCtx(ctx, "create_design_point"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[parentID]; !ok {
		return "", service.ErrNotFound
	}
	id := newID()
	s.known[id] = "design_point"
	return id, nil
}

// --- profile evaluation ---

// solidFromProfile builds a solid by extruding every closed region of the
// profile along the sketch plane normal. Faces are used when present;
// otherwise a closed chain of segments is treated as a polygon.
func (s *Service) solidFromProfile(profile *sketch.Payload, distance float64) (kernel.Solid, error) {
	if profile == nil || profile.IsEmpty() {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "profile is empty")
	}

	var solid kernel.Solid
	add := func(next kernel.Solid) {
		if solid == nil {
			solid = next
		} else {
			solid = s.k.Union(solid, next)
		}
	}

	for _, f := range profile.Faces {
		switch f.Kind {
		case sketch.FaceCircle:
			c := s.k.Cylinder(distance, f.Radius)
			add(s.k.Translate(c, f.Center.X, f.Center.Y, 0))
		case sketch.FacePolygon:
			pts := make([][2]float64, len(f.Points))
			for i, p := range f.Points {
				pts[i] = [2]float64{p.X, p.Y}
			}
			e, err := s.k.ExtrudePolygon(pts, distance)
			if err != nil {
				return nil, service.Semanticf(service.ReasonInvalidArgument, "bad polygon face: %v", err)
			}
			add(e)
		default:
			return nil, service.Semanticf(service.ReasonInvalidArgument, "unknown face kind %v", f.Kind)
		}
	}

	if solid == nil {
		pts, ok := closedChain(profile.Edges)
		if !ok {
			return nil, service.Semanticf(service.ReasonInvalidArgument,
				"profile has no faces and its edges do not form a closed loop")
		}
		e, err := s.k.ExtrudePolygon(pts, distance)
		if err != nil {
			return nil, service.Semanticf(service.ReasonInvalidArgument, "bad edge loop: %v", err)
		}
		solid = e
	}

	return s.placeOnPlane(solid, profile.Plane), nil
}

// closedChain returns the polygon formed by the edges if every edge is a
// segment, each starts where the previous ended, and the last closes back
// to the first.
func closedChain(edges []sketch.Edge) ([][2]float64, bool) {
	if len(edges) < 3 {
		return nil, false
	}
	pts := make([][2]float64, 0, len(edges))
	for i, e := range edges {
		if e.Kind != sketch.EdgeSegment {
			return nil, false
		}
		if i > 0 && e.Start != edges[i-1].End {
			return nil, false
		}
		pts = append(pts, [2]float64{e.Start.X, e.Start.Y})
	}
	if edges[len(edges)-1].End != edges[0].Start {
		return nil, false
	}
	return pts, true
}

// placeOnPlane orients a solid built in the XY plane onto the sketch
// plane: rotate +Z onto the plane normal, then translate to the origin.
// In-plane rotation (DirX) is not honored by this backend.
func (s *Service) placeOnPlane(solid kernel.Solid, plane geometry.Plane) kernel.Solid {
	n := plane.Normal().Unit()
	z := geometry.Vec3{Z: 1}

	if d := n.Sub(z).Norm(); d > 1e-12 {
		axis := z.Cross(n)
		if axis.Norm() < 1e-12 {
			// Anti-parallel: flip about X.
			axis = geometry.Vec3{X: 1}
		}
		angle := math.Acos(math.Max(-1, math.Min(1, z.Dot(n))))
		a := axis.Unit()
		solid = s.k.RotateAxis(solid, a.X, a.Y, a.Z, angle)
	}
	o := plane.Origin
	if !o.IsZero() {
		solid = s.k.Translate(solid, o.X, o.Y, o.Z)
	}
	return solid
}

// applyTransform maps a mesh through a placement transform. Identity is
// returned unchanged.
func applyTransform(m *kernel.Mesh, t geometry.Matrix44) *kernel.Mesh {
	if t.IsIdentity(1e-12) || (t == geometry.Matrix44{}) {
		return m
	}
	out := &kernel.Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  make([]float32, len(m.Normals)),
		Indices:  append([]uint32(nil), m.Indices...),
		Label:    m.Label,
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		v := t.ApplyPoint(geometry.Vec3{
			X: float64(m.Vertices[i]),
			Y: float64(m.Vertices[i+1]),
			Z: float64(m.Vertices[i+2]),
		})
		out.Vertices[i] = float32(v.X)
		out.Vertices[i+1] = float32(v.Y)
		out.Vertices[i+2] = float32(v.Z)
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := t.ApplyDirection(geometry.Vec3{
			X: float64(m.Normals[i]),
			Y: float64(m.Normals[i+1]),
			Z: float64(m.Normals[i+2]),
		}).Unit()
		out.Normals[i] = float32(n.X)
		out.Normals[i+1] = float32(n.Y)
		out.Normals[i+2] = float32(n.Z)
	}
	return out
}
