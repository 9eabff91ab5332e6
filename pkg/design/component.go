package design

import (
	"context"

	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/sketch"
	"github.com/chazu/tenon/pkg/units"
)

// maxSearchDepth bounds recursive tree searches. The tree is acyclic by
// construction; the limit is defensive against pathological nesting.
const maxSearchDepth = 1000

// Component is one occurrence node in the assembly tree. It owns its
// placement and tree position; its geometric children (bodies, beams)
// live in a master shared with any components instanced from the same
// template. Coordinate systems and design points are annotations local
// to the occurrence.
type Component struct {
	design *Design
	parent *Component // nil only for the design root

	id    EntityID
	name  string
	alive bool

	master     *masterComponent
	suppressed map[EntityID]bool // master body IDs forked away from this occurrence

	placement geometry.Matrix44
	children  []*Component
	bodies    []*Body // occurrence wrappers, shared and private

	coordSystems   []*CoordinateSystem
	designPoints   []*DesignPoint
	sharedTopology service.SharedTopology
}

func newComponent(d *Design, parent *Component, id EntityID, name string) *Component {
	return &Component{
		design:     d,
		parent:     parent,
		id:         id,
		name:       name,
		alive:      true,
		master:     newMasterComponent(),
		suppressed: make(map[EntityID]bool),
		placement:  geometry.Identity(),
	}
}

// ID returns the service-issued component identifier.
func (c *Component) ID() EntityID { return c.id }

// Name returns the display name.
func (c *Component) Name() string { return c.name }

// Parent returns the owning component, nil for the design root.
func (c *Component) Parent() *Component { return c.parent }

// IsAlive reports whether the component is still part of the tree.
func (c *Component) IsAlive() bool {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.alive
}

// SharedTopology returns the component's shared-topology flag.
func (c *Component) SharedTopology() service.SharedTopology {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.sharedTopology
}

// Components returns the live child components in creation order.
func (c *Component) Components() []*Component {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	var out []*Component
	for _, child := range c.children {
		if child.alive {
			out = append(out, child)
		}
	}
	return out
}

// Bodies returns the live body occurrences of this component, including
// occurrences of masters contributed by a shared template.
func (c *Component) Bodies() []*Body {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	c.syncBodiesLocked()
	var out []*Body
	for _, b := range c.bodies {
		if b.aliveLocked() {
			out = append(out, b)
		}
	}
	return out
}

// Beams returns the live beams of this component's master.
func (c *Component) Beams() []*Beam {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	var out []*Beam
	for _, bm := range c.master.beams {
		if bm.alive {
			out = append(out, bm)
		}
	}
	return out
}

// CoordinateSystems returns the live coordinate systems of this
// occurrence.
func (c *Component) CoordinateSystems() []*CoordinateSystem {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	var out []*CoordinateSystem
	for _, cs := range c.coordSystems {
		if cs.alive {
			out = append(out, cs)
		}
	}
	return out
}

// DesignPoints returns the live design points of this occurrence.
func (c *Component) DesignPoints() []*DesignPoint {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	var out []*DesignPoint
	for _, dp := range c.designPoints {
		if dp.alive {
			out = append(out, dp)
		}
	}
	return out
}

// syncBodiesLocked materializes occurrence wrappers for master bodies
// added through a shared template since the last listing. Wrappers for
// masters this occurrence forked away from are suppressed.
func (c *Component) syncBodiesLocked() {
	for _, mb := range c.master.bodies {
		if !mb.alive || c.suppressed[mb.id] {
			continue
		}
		if c.wrapperForLocked(mb.id) != nil {
			continue
		}
		c.bodies = append(c.bodies, &Body{
			parent: c,
			master: mb,
			id:     occurrenceID(c.id, mb.id),
			name:   mb.name,
			alive:  true,
		})
	}
}

func (c *Component) wrapperForLocked(masterID EntityID) *Body {
	for _, b := range c.bodies {
		if !b.private && b.master.id == masterID {
			return b
		}
	}
	return nil
}

// occurrenceID synthesizes a stable client-side ID for an occurrence
// materialized in an instanced component. The defining component's own
// occurrence keeps the service-issued body ID.
func occurrenceID(componentID, masterID EntityID) EntityID {
	return componentID + "/" + masterID
}

// --- placement ---

// Placement returns the local placement transform.
func (c *Component) Placement() geometry.Matrix44 {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.placement
}

// WorldTransform composes every ancestor's local placement, parent
// first, from the design root down to this component.
func (c *Component) WorldTransform() geometry.Matrix44 {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.worldLocked()
}

func (c *Component) worldLocked() geometry.Matrix44 {
	if c.parent == nil {
		return c.placement
	}
	return c.parent.worldLocked().Mul(c.placement)
}

// ModifyPlacement composes a rigid motion onto the local placement. The
// delta — the rotation by angle radians about the axis through
// rotationOrigin, followed by the translation — is applied after the
// existing placement, i.e. it moves the component within its parent's
// space. A zero translation or zero axis contributes nothing.
func (c *Component) ModifyPlacement(translation, rotationOrigin, rotationAxis geometry.Vec3, angle float64) error {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return errStale("component", c.id)
	}
	delta := geometry.Translation(translation).Mul(geometry.RotationAbout(rotationOrigin, rotationAxis, angle))
	c.placement = delta.Mul(c.placement)
	return nil
}

// ResetPlacement restores the identity placement.
func (c *Component) ResetPlacement() error {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return errStale("component", c.id)
	}
	c.placement = geometry.Identity()
	return nil
}

// --- structure ---

// AddComponent creates a fresh child component with no children.
func (c *Component) AddComponent(ctx context.Context, name string) (*Component, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	id, err := c.design.svc.CreateComponent(ctx, c.id, name, "")
	if err != nil {
		return nil, err
	}
	child := newComponent(c.design, c, id, name)
	c.children = append(c.children, child)
	return child, nil
}

// AddComponentFrom creates a child component instancing template: the
// new component shares the template's geometric children definitions
// but owns its own placement and tree position.
func (c *Component) AddComponentFrom(ctx context.Context, name string, template *Component) (*Component, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	if template == nil {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "template component is required")
	}
	if template.design != c.design {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "template belongs to a different design")
	}
	if !template.alive {
		return nil, errStale("component", template.id)
	}
	id, err := c.design.svc.CreateComponent(ctx, c.id, name, template.id)
	if err != nil {
		return nil, err
	}
	child := newComponent(c.design, c, id, name)
	child.master = template.master
	template.master.instances++
	c.children = append(c.children, child)
	c.design.log.Debug().
		Str("template", template.id.Short()).
		Str("instance", id.Short()).
		Msg("component instanced")
	return child, nil
}

// SetSharedTopology forwards the shared-topology flag to the service.
// Pure pass-through; the client derives no behavior from it.
func (c *Component) SetSharedTopology(ctx context.Context, kind service.SharedTopology) error {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return errStale("component", c.id)
	}
	if err := c.design.svc.SetSharedTopology(ctx, c.id, kind); err != nil {
		return err
	}
	c.sharedTopology = kind
	return nil
}

// --- geometry creation ---

// ExtrudeSketch extrudes a sketch profile by distance along the sketch
// plane normal, creating a solid body under this component.
func (c *Component) ExtrudeSketch(ctx context.Context, name string, sk *sketch.Sketch, distance units.Distance) (*Body, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	if distance.Millimeters() <= 0 {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "extrude distance must be positive")
	}
	payload, err := sk.Payload()
	if err != nil {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "sketch: %v", err)
	}
	bodyID, masterID, err := c.design.svc.CreateBodyFromSketch(ctx, c.id, name, payload, distance.Millimeters())
	if err != nil {
		return nil, err
	}
	return c.adoptBodyLocked(bodyID, masterID, name, false), nil
}

// CreateSurface creates a surface (sheet) body from a sketch profile.
func (c *Component) CreateSurface(ctx context.Context, name string, sk *sketch.Sketch) (*Body, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	payload, err := sk.Payload()
	if err != nil {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "sketch: %v", err)
	}
	bodyID, masterID, err := c.design.svc.CreateSurfaceBody(ctx, c.id, name, payload)
	if err != nil {
		return nil, err
	}
	return c.adoptBodyLocked(bodyID, masterID, name, true), nil
}

// adoptBodyLocked registers a freshly created master in the arena and
// this component's shared children, and returns the occurrence wrapper.
func (c *Component) adoptBodyLocked(bodyID, masterID EntityID, name string, surface bool) *Body {
	mb := &MasterBody{id: masterID, name: name, surface: surface, alive: true}
	c.design.masters[masterID] = mb
	c.master.bodies = append(c.master.bodies, mb)
	occ := &Body{parent: c, master: mb, id: bodyID, name: name, alive: true}
	c.bodies = append(c.bodies, occ)
	c.design.log.Debug().
		Str("body", bodyID.Short()).
		Str("master", masterID.Short()).
		Bool("surface", surface).
		Msg("body created")
	return occ
}

// AddBeam creates a beam between two points using a registered profile.
// Beams are geometric children: instances of this component's template
// see the beam too.
func (c *Component) AddBeam(ctx context.Context, start, end geometry.Vec3, profile *BeamProfile) (*Beam, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	if profile == nil {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "beam profile is required")
	}
	id, err := c.design.svc.CreateBeam(ctx, c.id, start, end, profile.id)
	if err != nil {
		return nil, err
	}
	bm := &Beam{id: id, owner: c, start: start, end: end, profile: profile, alive: true}
	c.master.beams = append(c.master.beams, bm)
	return bm, nil
}

// AddCoordinateSystem creates a named frame local to this occurrence.
func (c *Component) AddCoordinateSystem(ctx context.Context, name string, frame service.Frame) (*CoordinateSystem, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	id, err := c.design.svc.CreateCoordinateSystem(ctx, c.id, name, frame)
	if err != nil {
		return nil, err
	}
	cs := &CoordinateSystem{id: id, owner: c, name: name, frame: frame, alive: true}
	c.coordSystems = append(c.coordSystems, cs)
	return cs, nil
}

// AddDesignPoint creates a named reference point local to this
// occurrence.
func (c *Component) AddDesignPoint(ctx context.Context, name string, point geometry.Vec3) (*DesignPoint, error) {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if !c.alive {
		return nil, errStale("component", c.id)
	}
	id, err := c.design.svc.CreateDesignPoint(ctx, c.id, name, point)
	if err != nil {
		return nil, err
	}
	dp := &DesignPoint{id: id, owner: c, name: name, point: point, alive: true}
	c.designPoints = append(c.designPoints, dp)
	return dp, nil
}

// --- search ---

// SearchComponent walks the subtree rooted here depth-first and returns
// the live component with the given ID, or nil. Absence is not an
// error.
func (c *Component) SearchComponent(id EntityID) *Component {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.searchComponentLocked(id, 0)
}

func (c *Component) searchComponentLocked(id EntityID, depth int) *Component {
	if depth > maxSearchDepth || !c.alive {
		return nil
	}
	if c.id == id {
		return c
	}
	for _, child := range c.children {
		if found := child.searchComponentLocked(id, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// SearchBody returns the live body occurrence with the given ID in the
// subtree rooted here, or nil.
func (c *Component) SearchBody(id EntityID) *Body {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.searchBodyLocked(id, 0)
}

func (c *Component) searchBodyLocked(id EntityID, depth int) *Body {
	if depth > maxSearchDepth || !c.alive {
		return nil
	}
	c.syncBodiesLocked()
	for _, b := range c.bodies {
		if b.id == id && b.aliveLocked() {
			return b
		}
	}
	for _, child := range c.children {
		if found := child.searchBodyLocked(id, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// SearchBeam returns the live beam with the given ID in the subtree
// rooted here, or nil.
func (c *Component) SearchBeam(id EntityID) *Beam {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	return c.searchBeamLocked(id, 0)
}

func (c *Component) searchBeamLocked(id EntityID, depth int) *Beam {
	if depth > maxSearchDepth || !c.alive {
		return nil
	}
	for _, bm := range c.master.beams {
		if bm.id == id && bm.alive {
			return bm
		}
	}
	for _, child := range c.children {
		if found := child.searchBeamLocked(id, depth+1); found != nil {
			return found
		}
	}
	return nil
}

func (c *Component) searchDesignPointLocked(id EntityID, depth int) *DesignPoint {
	if depth > maxSearchDepth || !c.alive {
		return nil
	}
	for _, dp := range c.designPoints {
		if dp.id == id && dp.alive {
			return dp
		}
	}
	for _, child := range c.children {
		if found := child.searchDesignPointLocked(id, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// --- deletion ---

// containsLocked reports whether target is c or a descendant of c.
func (c *Component) containsLocked(target *Component) bool {
	for n := target; n != nil; n = n.parent {
		if n == c {
			return true
		}
	}
	return false
}

// DeleteComponent deletes target and its subtree. A target outside this
// component's subtree (or already dead) is a no-op, not an error; no
// service call is issued for it.
func (c *Component) DeleteComponent(ctx context.Context, target *Component) error {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if target == nil || !target.alive || !c.containsLocked(target) {
		return nil
	}
	if target.parent == nil {
		return service.Semanticf(service.ReasonInvalidArgument, "cannot delete the design root")
	}
	if err := c.design.svc.Delete(ctx, target.id); err != nil {
		return err
	}
	target.parent.removeChildLocked(target)
	target.markDeadLocked()
	c.design.log.Debug().Str("id", target.id.Short()).Msg("component deleted")
	return nil
}

// DeleteBody deletes a body. The master is destroyed, so every
// occurrence of it (in any instance) goes stale. A body outside this
// component's subtree is a no-op with no service call.
func (c *Component) DeleteBody(ctx context.Context, target *Body) error {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if target == nil || !target.aliveLocked() || !c.containsLocked(target.parent) {
		return nil
	}
	if err := c.design.svc.Delete(ctx, target.master.id); err != nil {
		return err
	}
	target.master.alive = false
	target.alive = false
	c.design.log.Debug().Str("id", target.id.Short()).Msg("body deleted")
	return nil
}

// DeleteBeam deletes a beam. A beam whose defining component is outside
// this component's subtree is a no-op with no service call.
func (c *Component) DeleteBeam(ctx context.Context, target *Beam) error {
	c.design.mu.Lock()
	defer c.design.mu.Unlock()
	if target == nil || !target.alive || !c.containsLocked(target.owner) {
		return nil
	}
	if err := c.design.svc.Delete(ctx, target.id); err != nil {
		return err
	}
	target.alive = false
	return nil
}

func (c *Component) removeChildLocked(target *Component) {
	for i, child := range c.children {
		if child == target {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// markDeadLocked marks the component and its former subtree not-alive.
// Shared masters survive as long as another instance still references
// their master component.
func (c *Component) markDeadLocked() {
	if !c.alive {
		return
	}
	c.alive = false
	c.master.instances--
	if c.master.instances <= 0 {
		for _, mb := range c.master.bodies {
			mb.alive = false
		}
		for _, bm := range c.master.beams {
			bm.alive = false
		}
	}
	for _, b := range c.bodies {
		if b.private {
			b.master.alive = false
		}
		b.alive = false
	}
	for _, cs := range c.coordSystems {
		cs.alive = false
	}
	for _, dp := range c.designPoints {
		dp.alive = false
	}
	for _, child := range c.children {
		child.markDeadLocked()
	}
}
