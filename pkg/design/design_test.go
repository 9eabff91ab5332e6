package design_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/tenon/pkg/design"
	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/kernel"
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/sketch"
	"github.com/chazu/tenon/pkg/units"
)

// stubModeler records every call and hands out sequential IDs. Tests
// use the counts to assert which operations reached the service and
// the fail map to inject failures.
type stubModeler struct {
	mu    sync.Mutex
	seq   int
	calls map[string]int
	fail  map[string]error
}

var _ service.Modeler = (*stubModeler)(nil)

func newStub() *stubModeler {
	return &stubModeler{calls: make(map[string]int), fail: make(map[string]error)}
}

func (s *stubModeler) record(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.fail[method]
}

func (s *stubModeler) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *stubModeler) next(prefix string) service.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return service.EntityID(fmt.Sprintf("%s-%d", prefix, s.seq))
}

func (s *stubModeler) CreateDesign(ctx context.Context, name string) (service.EntityID, error) {
	if err := s.record("create_design"); err != nil {
		return "", err
	}
	return s.next("design"), nil
}

func (s *stubModeler) CreateComponent(ctx context.Context, parentID service.EntityID, name string, templateID service.EntityID) (service.EntityID, error) {
	if err := s.record("create_component"); err != nil {
		return "", err
	}
	return s.next("comp"), nil
}

func (s *stubModeler) SetSharedTopology(ctx context.Context, componentID service.EntityID, kind service.SharedTopology) error {
	return s.record("set_shared_topology")
}

func (s *stubModeler) CreateBodyFromSketch(ctx context.Context, parentID service.EntityID, name string, profile *sketch.Payload, distance float64) (service.EntityID, service.EntityID, error) {
	if err := s.record("create_body_from_sketch"); err != nil {
		return "", "", err
	}
	return s.next("body"), s.next("master"), nil
}

func (s *stubModeler) CreateSurfaceBody(ctx context.Context, parentID service.EntityID, name string, profile *sketch.Payload) (service.EntityID, service.EntityID, error) {
	if err := s.record("create_surface_body"); err != nil {
		return "", "", err
	}
	return s.next("body"), s.next("master"), nil
}

func (s *stubModeler) CopyBody(ctx context.Context, sourceMasterID, parentID service.EntityID, name string) (service.EntityID, service.EntityID, error) {
	if err := s.record("copy_body"); err != nil {
		return "", "", err
	}
	return s.next("body"), s.next("master"), nil
}

func (s *stubModeler) BooleanOp(ctx context.Context, op service.BooleanKind, targetID, otherID service.EntityID) error {
	return s.record("boolean_op")
}

func (s *stubModeler) TranslateBody(ctx context.Context, bodyID service.EntityID, direction geometry.Vec3, distance float64) error {
	return s.record("translate_body")
}

func (s *stubModeler) ImprintCurves(ctx context.Context, bodyID service.EntityID, profile *sketch.Payload) ([]service.FaceDescriptor, error) {
	if err := s.record("imprint_curves"); err != nil {
		return nil, err
	}
	return []service.FaceDescriptor{{ID: s.next("face"), Surface: "plane"}}, nil
}

func (s *stubModeler) Delete(ctx context.Context, entityID service.EntityID) error {
	return s.record("delete")
}

func (s *stubModeler) GetFaces(ctx context.Context, bodyID service.EntityID) ([]service.FaceDescriptor, error) {
	if err := s.record("get_faces"); err != nil {
		return nil, err
	}
	return []service.FaceDescriptor{{ID: bodyID + "/face/0", Surface: "plane", Area: 100}}, nil
}

func (s *stubModeler) GetEdges(ctx context.Context, bodyID service.EntityID) ([]service.EdgeDescriptor, error) {
	if err := s.record("get_edges"); err != nil {
		return nil, err
	}
	return []service.EdgeDescriptor{{ID: bodyID + "/edge/0", Curve: "line", Length: 10}}, nil
}

func (s *stubModeler) GetVolume(ctx context.Context, bodyID service.EntityID) (float64, error) {
	if err := s.record("get_volume"); err != nil {
		return 0, err
	}
	return 1000, nil
}

func (s *stubModeler) Tessellate(ctx context.Context, bodyID service.EntityID, merge bool, transform geometry.Matrix44) (*service.MeshPayload, error) {
	if err := s.record("tessellate"); err != nil {
		return nil, err
	}
	return &service.MeshPayload{
		Merged: &kernel.Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
			Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
			Indices:  []uint32{0, 1, 2},
		},
	}, nil
}

func (s *stubModeler) CreateNamedSelection(ctx context.Context, name string, memberIDs []service.EntityID) (service.EntityID, error) {
	if err := s.record("create_named_selection"); err != nil {
		return "", err
	}
	return s.next("ns"), nil
}

func (s *stubModeler) CreateBeamProfile(ctx context.Context, name string, radius float64) (service.EntityID, error) {
	if err := s.record("create_beam_profile"); err != nil {
		return "", err
	}
	return s.next("profile"), nil
}

func (s *stubModeler) CreateBeam(ctx context.Context, parentID service.EntityID, start, end geometry.Vec3, profileID service.EntityID) (service.EntityID, error) {
	if err := s.record("create_beam"); err != nil {
		return "", err
	}
	return s.next("beam"), nil
}

func (s *stubModeler) CreateCoordinateSystem(ctx context.Context, parentID service.EntityID, name string, frame service.Frame) (service.EntityID, error) {
	if err := s.record("create_coordinate_system"); err != nil {
		return "", err
	}
	return s.next("csys"), nil
}

func (s *stubModeler) CreateDesignPoint(ctx context.Context, parentID service.EntityID, name string, point geometry.Vec3) (service.EntityID, error) {
	if err := s.record("create_design_point"); err != nil {
		return "", err
	}
	return s.next("point"), nil
}

// --- helpers ---

const tol = 1e-9

func newDesign(t *testing.T) (*design.Design, *stubModeler) {
	t.Helper()
	stub := newStub()
	d, err := design.New(context.Background(), stub, "test", zerolog.Nop())
	require.NoError(t, err)
	return d, stub
}

func boxSketch(size float64) *sketch.Sketch {
	return sketch.OnXY().Box(geometry.Vec2{}, size, size)
}

func addBox(t *testing.T, c *design.Component, name string, size float64) *design.Body {
	t.Helper()
	b, err := c.ExtrudeSketch(context.Background(), name, boxSketch(size), units.MM(size))
	require.NoError(t, err)
	return b
}

var unitX = geometry.Vec3{X: 1}

// --- tests ---

func TestWorldTransformComposition(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	c2, err := c1.AddComponent(ctx, "c2")
	require.NoError(t, err)

	require.NoError(t, c1.ModifyPlacement(geometry.Vec3{X: 1, Y: 2, Z: 3}, geometry.Vec3{}, geometry.Vec3{}, 0))
	require.NoError(t, c2.ModifyPlacement(geometry.Vec3{X: 10}, geometry.Vec3{}, geometry.Vec3{}, 0))

	want := c1.Placement().Mul(c2.Placement())
	assert.True(t, c2.WorldTransform().NearEqual(want, tol))
	assert.Equal(t, geometry.Vec3{X: 11, Y: 2, Z: 3}, c2.WorldTransform().Translation())

	// Changing an ancestor's placement changes the descendant's world
	// transform accordingly.
	require.NoError(t, c1.ModifyPlacement(geometry.Vec3{Z: 5}, geometry.Vec3{}, geometry.Vec3{}, 0))
	assert.Equal(t, geometry.Vec3{X: 11, Y: 2, Z: 8}, c2.WorldTransform().Translation())

	require.NoError(t, c1.ResetPlacement())
	assert.True(t, c1.Placement().IsIdentity(tol))
	assert.Equal(t, geometry.Vec3{X: 10}, c2.WorldTransform().Translation())
}

func TestModifyPlacementRotation(t *testing.T) {
	d, _ := newDesign(t)
	c, err := d.AddComponent(context.Background(), "c")
	require.NoError(t, err)

	// Quarter turn about Z through the origin, then shift in X. The
	// rotation applies first.
	require.NoError(t, c.ModifyPlacement(geometry.Vec3{X: 10}, geometry.Vec3{}, geometry.Vec3{Z: 1}, math.Pi/2))
	got := c.WorldTransform().ApplyPoint(geometry.Vec3{X: 1})
	assert.InDelta(t, 10, got.X, tol)
	assert.InDelta(t, 1, got.Y, tol)
	assert.InDelta(t, 0, got.Z, tol)
}

func TestInstancingSharesGeometricChildren(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	b1 := addBox(t, c1, "b1", 10)

	c2, err := d.AddComponentFrom(ctx, "c2", c1)
	require.NoError(t, err)

	// The instance sees the template's body through the same master.
	c2Bodies := c2.Bodies()
	require.Len(t, c2Bodies, 1)
	assert.Same(t, b1.Master(), c2Bodies[0].Master())
	assert.NotEqual(t, b1.ID(), c2Bodies[0].ID(), "occurrences have distinct identities")

	// A body added to the template after instancing shows up in both.
	b2 := addBox(t, c1, "b2", 4)
	require.Len(t, c1.Bodies(), 2)
	require.Len(t, c2.Bodies(), 2)
	synth := c2.ID() + "/" + b2.Master().ID()
	assert.NotNil(t, c2.SearchBody(synth))
	assert.NotNil(t, d.SearchBody(b2.ID()))

	// Moving the instance leaves the template alone and costs no
	// service call.
	translates := stub.count("translate_body")
	require.NoError(t, c2.ModifyPlacement(geometry.Vec3{X: 5}, geometry.Vec3{}, geometry.Vec3{}, 0))
	assert.True(t, c1.WorldTransform().IsIdentity(tol))
	assert.Equal(t, translates, stub.count("translate_body"))
}

func TestTemplateInstanceScenario(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "C1")
	require.NoError(t, err)
	b1 := addBox(t, c1, "b1", 10)

	c2, err := d.AddComponentFrom(ctx, "C2", c1)
	require.NoError(t, err)
	require.Len(t, c2.Bodies(), 1)
	require.Same(t, b1.Master(), c2.Bodies()[0].Master())

	require.NoError(t, c2.ModifyPlacement(geometry.Vec3{X: 5}, geometry.Vec3{}, geometry.Vec3{}, 0))

	assert.True(t, b1.Parent().WorldTransform().IsIdentity(tol), "template stays at the origin")
	assert.Equal(t, geometry.Vec3{X: 5}, c2.Bodies()[0].Parent().WorldTransform().Translation())
}

func TestDeleteBodySubtreeRules(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	c2, err := d.AddComponent(ctx, "c2")
	require.NoError(t, err)
	b := addBox(t, c1, "b", 10)

	// Outside the receiver's subtree: no-op, no service call.
	require.NoError(t, c2.DeleteBody(ctx, b))
	assert.True(t, b.IsAlive())
	assert.Equal(t, 0, stub.count("delete"))

	// Inside: one delete call, body unsearchable and stale.
	require.NoError(t, c1.DeleteBody(ctx, b))
	assert.Equal(t, 1, stub.count("delete"))
	assert.False(t, b.IsAlive())
	assert.Nil(t, d.SearchBody(b.ID()))

	// Deleting again is a no-op, not a second call.
	require.NoError(t, c1.DeleteBody(ctx, b))
	assert.Equal(t, 1, stub.count("delete"))
}

func TestDeleteComponentSubtree(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	nested, err := c1.AddComponent(ctx, "nested")
	require.NoError(t, err)
	b := addBox(t, nested, "b", 10)

	require.NoError(t, d.DeleteComponent(ctx, c1))
	assert.Equal(t, 1, stub.count("delete"))
	assert.False(t, c1.IsAlive())
	assert.False(t, nested.IsAlive())
	assert.False(t, b.IsAlive())
	assert.Nil(t, d.SearchComponent(nested.ID()))
	assert.Empty(t, d.Components())

	// Operations on the dead subtree go stale.
	_, err = nested.AddComponent(ctx, "x")
	assert.True(t, design.IsStaleReference(err))
	assert.True(t, design.IsStaleReference(nested.ModifyPlacement(unitX, geometry.Vec3{}, geometry.Vec3{}, 0)))

	// The root itself is not deletable.
	err = d.DeleteComponent(ctx, d.Component)
	se, ok := service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonInvalidArgument, se.Reason)
}

func TestBooleanConsumesTool(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	a := addBox(t, c, "a", 10)
	b := addBox(t, c, "b", 8)

	require.NoError(t, a.Subtract(ctx, b))
	assert.True(t, a.IsAlive())
	assert.False(t, b.IsAlive())

	// Any mutation on the consumed tool is a stale-reference error.
	err = b.Translate(ctx, unitX, units.MM(1))
	assert.True(t, design.IsStaleReference(err))
	assert.True(t, design.IsStaleReference(a.Unite(ctx, b)))

	// A body cannot be combined with itself.
	err = a.Subtract(ctx, a)
	se, ok := service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonInvalidArgument, se.Reason)
}

func TestMutationOnInstancedBodyForks(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	b1 := addBox(t, c1, "b1", 10)
	c2, err := d.AddComponentFrom(ctx, "c2", c1)
	require.NoError(t, err)

	occ := c2.Bodies()[0]
	require.Same(t, b1.Master(), occ.Master())

	require.NoError(t, occ.Translate(ctx, unitX, units.MM(5)))

	// The occurrence now owns a private master; the template is
	// untouched and the instance does not grow a second body.
	assert.Equal(t, 1, stub.count("copy_body"))
	assert.NotSame(t, b1.Master(), occ.Master())
	require.Len(t, c2.Bodies(), 1)
	require.Len(t, c1.Bodies(), 1)
	assert.Same(t, b1.Master(), c1.Bodies()[0].Master())

	// Further mutations stay on the private master without re-forking.
	require.NoError(t, occ.Translate(ctx, unitX, units.MM(1)))
	assert.Equal(t, 1, stub.count("copy_body"))
}

func TestCopyBreaksSharing(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	c2, err := d.AddComponent(ctx, "c2")
	require.NoError(t, err)
	b := addBox(t, c1, "b", 10)

	dup, err := b.Copy(ctx, c2, "dup")
	require.NoError(t, err)
	assert.Equal(t, 1, stub.count("copy_body"))
	assert.NotSame(t, b.Master(), dup.Master())
	assert.NotNil(t, c2.SearchBody(dup.ID()))

	// Mutating the copy never touches the source.
	require.NoError(t, dup.Translate(ctx, unitX, units.MM(3)))
	assert.True(t, b.IsAlive())
	assert.Equal(t, 1, stub.count("copy_body"), "copies are already private, no fork")
}

func TestMutatingOpsFailAtomically(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	a := addBox(t, c, "a", 10)
	b := addBox(t, c, "b", 8)

	stub.fail["create_component"] = service.Transportf("create_component", fmt.Errorf("gone"))
	_, err = c.AddComponent(ctx, "child")
	assert.True(t, service.IsTransport(err))
	assert.Empty(t, c.Components())

	stub.fail["boolean_op"] = service.Semanticf(service.ReasonEmptyResult, "nothing intersects")
	err = a.Intersect(ctx, b)
	se, ok := service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonEmptyResult, se.Reason)
	assert.True(t, a.IsAlive(), "failed boolean consumes nothing")
	assert.True(t, b.IsAlive())

	stub.fail["delete"] = service.Transportf("delete", fmt.Errorf("gone"))
	err = c.DeleteBody(ctx, b)
	assert.True(t, service.IsTransport(err))
	assert.True(t, b.IsAlive(), "failed delete leaves the tree unchanged")
}

func TestTessellationCache(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	b := addBox(t, c, "b", 10)

	m1, err := b.Tessellate(ctx, true)
	require.NoError(t, err)
	m2, err := b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Same(t, m1, m2, "second call served from cache")
	assert.Equal(t, 1, stub.count("tessellate"))

	// Translating the body invalidates.
	require.NoError(t, b.Translate(ctx, unitX, units.MM(2)))
	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count("tessellate"))

	// An ancestor placement change invalidates too.
	require.NoError(t, c.ModifyPlacement(geometry.Vec3{Y: 3}, geometry.Vec3{}, geometry.Vec3{}, 0))
	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, stub.count("tessellate"))

	// The merge flag is part of the key.
	_, err = b.Tessellate(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, stub.count("tessellate"))
	_, err = b.Tessellate(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, stub.count("tessellate"))
}

func TestImprintInvalidatesCache(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	b := addBox(t, c, "b", 10)

	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)

	faces, err := b.ImprintCurves(ctx, sketch.OnXY().Segment(geometry.Vec2{}, geometry.Vec2{X: 5}))
	require.NoError(t, err)
	require.NotEmpty(t, faces)

	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count("tessellate"))
}

func TestNamedSelectionWeakReferences(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	b1 := addBox(t, c, "b1", 10)
	b2 := addBox(t, c, "b2", 8)

	ns, err := d.CreateNamedSelection(ctx, "pair", design.Members{Bodies: []*design.Body{b1, b2}})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.count("create_named_selection"))
	assert.Len(t, ns.Bodies(), 2)
	assert.True(t, ns.Resolve(b2.ID()))

	// Deleting a member leaves the selection intact; the member just
	// stops resolving.
	require.NoError(t, c.DeleteBody(ctx, b2))
	assert.True(t, ns.IsAlive())
	assert.False(t, ns.Resolve(b2.ID()))
	got := ns.Bodies()
	require.Len(t, got, 1)
	assert.Equal(t, b1.ID(), got[0].ID())

	assert.False(t, ns.Resolve("never-a-member"))

	// Deleting the selection leaves the members alone.
	require.NoError(t, d.DeleteNamedSelection(ctx, ns))
	assert.False(t, ns.IsAlive())
	assert.True(t, b1.IsAlive())
	assert.Empty(t, d.NamedSelections())

	_, err = d.CreateNamedSelection(ctx, "empty", design.Members{})
	se, ok := service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonInvalidArgument, se.Reason)
}

func TestSurfaceMetadata(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	solid := addBox(t, c, "solid", 10)
	sheet, err := c.CreateSurface(ctx, "sheet", boxSketch(10))
	require.NoError(t, err)
	assert.True(t, sheet.IsSurface())
	assert.False(t, solid.IsSurface())

	// Surface-only operations reject solids loudly.
	for _, err := range []error{
		solid.AssignMaterial("steel"),
		solid.AddMidsurfaceThickness(units.MM(2)),
		solid.AddMidsurfaceOffset(design.MidsurfaceTop),
	} {
		se, ok := service.AsSemantic(err)
		require.True(t, ok)
		assert.Equal(t, service.ReasonNotSurface, se.Reason)
	}

	// Materials must be registered before assignment.
	err = sheet.AssignMaterial("steel")
	se, ok := service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonInvalidArgument, se.Reason)

	require.NoError(t, d.AddMaterial(design.Material{Name: "steel", Density: 7850}))
	require.NoError(t, sheet.AssignMaterial("steel"))
	assert.Equal(t, "steel", sheet.Material())

	require.NoError(t, sheet.AddMidsurfaceThickness(units.MM(2)))
	thickness, ok := sheet.MidsurfaceThickness()
	require.True(t, ok)
	assert.Equal(t, 2.0, thickness.Millimeters())

	require.NoError(t, sheet.AddMidsurfaceOffset(design.MidsurfaceBottom))
	offset, ok := sheet.MidsurfaceOffsetKind()
	require.True(t, ok)
	assert.Equal(t, design.MidsurfaceBottom, offset)
}

func TestBeams(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	profile, err := d.CreateBeamProfileCircle(ctx, "rod", units.MM(5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, profile.Radius().Millimeters())

	_, err = d.CreateBeamProfileCircle(ctx, "bad", units.MM(0))
	assert.Error(t, err)

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	beam, err := c1.AddBeam(ctx, geometry.Vec3{}, geometry.Vec3{X: 100}, profile)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.count("create_beam"))

	// Beams are geometric children: instances see them.
	c2, err := d.AddComponentFrom(ctx, "c2", c1)
	require.NoError(t, err)
	require.Len(t, c2.Beams(), 1)
	assert.NotNil(t, d.SearchBeam(beam.ID()))

	// A sibling that does not own the beam cannot delete it.
	other, err := d.AddComponent(ctx, "other")
	require.NoError(t, err)
	deletes := stub.count("delete")
	require.NoError(t, other.DeleteBeam(ctx, beam))
	assert.True(t, beam.IsAlive())
	assert.Equal(t, deletes, stub.count("delete"))

	require.NoError(t, c1.DeleteBeam(ctx, beam))
	assert.False(t, beam.IsAlive())
	assert.Nil(t, d.SearchBeam(beam.ID()))
	assert.Empty(t, c2.Beams())
}

func TestCoordinateSystemsAndDesignPoints(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, c.ModifyPlacement(geometry.Vec3{X: 10}, geometry.Vec3{}, geometry.Vec3{}, 0))

	cs, err := c.AddCoordinateSystem(ctx, "frame", service.Frame{
		Origin: geometry.Vec3{X: 1},
		DirX:   geometry.Vec3{X: 1},
		DirY:   geometry.Vec3{Y: 1},
	})
	require.NoError(t, err)
	world := cs.WorldFrame()
	assert.Equal(t, geometry.Vec3{X: 11}, world.Origin)
	assert.Equal(t, geometry.Vec3{X: 1}, world.DirX, "directions ignore translation")

	dp, err := c.AddDesignPoint(ctx, "anchor", geometry.Vec3{Y: 2})
	require.NoError(t, err)
	assert.Equal(t, geometry.Vec3{X: 10, Y: 2}, dp.WorldPoint())

	require.Len(t, c.CoordinateSystems(), 1)
	require.Len(t, c.DesignPoints(), 1)

	// Both die with their component.
	require.NoError(t, d.DeleteComponent(ctx, c))
	assert.False(t, cs.IsAlive())
	assert.False(t, dp.IsAlive())
}

func TestSharedTopologyPassThrough(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, service.SharedTopologyNone, c.SharedTopology())

	require.NoError(t, c.SetSharedTopology(ctx, service.SharedTopologyMerge))
	assert.Equal(t, service.SharedTopologyMerge, c.SharedTopology())
	assert.Equal(t, 1, stub.count("set_shared_topology"))

	stub.fail["set_shared_topology"] = service.Transportf("set_shared_topology", fmt.Errorf("gone"))
	require.Error(t, c.SetSharedTopology(ctx, service.SharedTopologyShare))
	assert.Equal(t, service.SharedTopologyMerge, c.SharedTopology(), "failed call leaves the flag unchanged")
}

func TestBodyQueriesDelegateToMaster(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	b := addBox(t, c1, "b", 10)
	c2, err := d.AddComponentFrom(ctx, "c2", c1)
	require.NoError(t, err)
	occ := c2.Bodies()[0]

	v1, err := b.Volume(ctx)
	require.NoError(t, err)
	v2, err := occ.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	faces, err := occ.Faces(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, faces)
	edges, err := occ.Edges(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, edges)
}

func TestTranslateValidation(t *testing.T) {
	d, _ := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	b := addBox(t, c, "b", 10)

	err = b.Translate(ctx, geometry.Vec3{X: 2}, units.MM(1))
	se, ok := service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonInvalidArgument, se.Reason)

	err = b.Translate(ctx, unitX, units.MM(-1))
	se, ok = service.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, service.ReasonInvalidArgument, se.Reason)

	require.NoError(t, b.Translate(ctx, unitX, units.MM(0)))
}

func TestForkPreservesOccurrenceIdentity(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	b1 := addBox(t, c1, "b1", 10)
	ns, err := d.CreateNamedSelection(ctx, "keep", design.Members{Bodies: []*design.Body{b1}})
	require.NoError(t, err)
	c2, err := d.AddComponentFrom(ctx, "c2", c1)
	require.NoError(t, err)

	// Mutating the template's occurrence forks it, but its identity is
	// not negotiable: searches and selections keep working.
	oldID := b1.ID()
	require.NoError(t, b1.Translate(ctx, unitX, units.MM(2)))
	assert.Equal(t, 1, stub.count("copy_body"))
	assert.Equal(t, oldID, b1.ID())
	require.Same(t, b1, d.SearchBody(oldID))
	assert.True(t, ns.Resolve(oldID))
	require.Len(t, ns.Bodies(), 1)
	assert.Equal(t, oldID, ns.Bodies()[0].ID())

	// Same for the instance side and its synthesized ID.
	occ := c2.Bodies()[0]
	occID := occ.ID()
	require.NoError(t, occ.Translate(ctx, unitX, units.MM(3)))
	assert.Equal(t, occID, occ.ID())
	require.Same(t, occ, d.SearchBody(occID))
}

func TestFailedMutationOnSharedBodyRollsBackFork(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c1, err := d.AddComponent(ctx, "c1")
	require.NoError(t, err)
	b1 := addBox(t, c1, "b1", 10)
	tool := addBox(t, c1, "tool", 4)
	c2, err := d.AddComponentFrom(ctx, "c2", c1)
	require.NoError(t, err)
	before := b1.Master()

	// The boolean fails after the copy-on-write fork; the fork must be
	// undone so the tree looks untouched.
	stub.fail["boolean_op"] = service.Semanticf(service.ReasonEmptyResult, "nothing intersects")
	require.Error(t, b1.Subtract(ctx, tool))
	assert.Equal(t, 1, stub.count("copy_body"))
	assert.Same(t, before, b1.Master())
	assert.True(t, tool.IsAlive())
	assert.Equal(t, 1, stub.count("delete"), "orphaned remote copy cleaned up")
	require.Same(t, b1, d.SearchBody(b1.ID()))
	require.Len(t, c1.Bodies(), 2)
	require.Len(t, c2.Bodies(), 2)
	assert.Same(t, before, c2.Bodies()[0].Master())

	// Translate rolls back the same way.
	occ := c2.Bodies()[0]
	stub.fail["translate_body"] = service.Transportf("translate_body", fmt.Errorf("gone"))
	require.Error(t, occ.Translate(ctx, unitX, units.MM(2)))
	assert.Same(t, before, occ.Master())
	assert.Equal(t, 2, stub.count("copy_body"))

	// Once the service recovers, mutation forks cleanly again.
	delete(stub.fail, "boolean_op")
	require.NoError(t, b1.Subtract(ctx, tool))
	assert.NotSame(t, before, b1.Master())
	assert.False(t, tool.IsAlive())
	assert.Equal(t, 3, stub.count("copy_body"))
}

func TestTessellationCacheDropsSupersededEntries(t *testing.T) {
	d, stub := newDesign(t)
	ctx := context.Background()

	c, err := d.AddComponent(ctx, "c")
	require.NoError(t, err)
	b := addBox(t, c, "b", 10)

	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	require.NoError(t, c.ModifyPlacement(geometry.Vec3{X: 5}, geometry.Vec3{}, geometry.Vec3{}, 0))
	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count("tessellate"))

	// Returning to the earlier placement re-fetches: only the latest
	// entry per merge flag survives.
	require.NoError(t, c.ResetPlacement())
	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, stub.count("tessellate"))

	// Repeat calls on the current key still hit the cache.
	_, err = b.Tessellate(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, stub.count("tessellate"))
}
