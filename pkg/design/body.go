package design

import (
	"context"

	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/sketch"
	"github.com/chazu/tenon/pkg/units"
)

// MidsurfaceOffset selects where a surface body's midsurface sits
// relative to its thickness.
type MidsurfaceOffset int

const (
	MidsurfaceMiddle MidsurfaceOffset = iota
	MidsurfaceTop
	MidsurfaceBottom
)

func (o MidsurfaceOffset) String() string {
	switch o {
	case MidsurfaceMiddle:
		return "middle"
	case MidsurfaceTop:
		return "top"
	case MidsurfaceBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// Body is one occurrence of a MasterBody in the tree. Queries delegate
// to the master; destructive operations act through the occurrence and
// fork the occurrence into its own master first when the master is
// shared with other instances.
type Body struct {
	parent *Component
	master *MasterBody

	id    EntityID
	name  string
	alive bool

	// private marks an occurrence whose master belongs to this body
	// alone (created by Copy or by a copy-on-write fork). Private
	// masters never appear in other instances.
	private bool

	cache map[tessKey]*service.MeshPayload
}

// tessKey identifies one cached tessellation. The master's generation
// counter covers geometry mutations; the world transform covers
// placement changes anywhere up the ancestor chain.
type tessKey struct {
	merge     bool
	transform geometry.Matrix44
	gen       uint64
}

// ID returns the occurrence identifier.
func (b *Body) ID() EntityID { return b.id }

// Name returns the display name.
func (b *Body) Name() string { return b.name }

// Parent returns the owning component.
func (b *Body) Parent() *Component { return b.parent }

// Master returns the shared geometry definition this occurrence
// references.
func (b *Body) Master() *MasterBody { return b.master }

// IsSurface reports whether the body is a surface (sheet) body.
func (b *Body) IsSurface() bool { return b.master.surface }

// IsAlive reports whether both the occurrence and its master are still
// live. Identity and name queries remain valid on dead bodies; every
// other operation fails with a stale-reference error.
func (b *Body) IsAlive() bool {
	b.parent.design.mu.Lock()
	defer b.parent.design.mu.Unlock()
	return b.aliveLocked()
}

func (b *Body) aliveLocked() bool {
	return b.alive && b.master.alive
}

func (b *Body) staleCheckLocked() error {
	if !b.aliveLocked() {
		return errStale("body", b.id)
	}
	return nil
}

// ensureOwnedLocked forks the occurrence onto a fresh private master
// when its current master is shared with other component instances.
// Mutating a shared master in place would silently edit every instance;
// forking keeps the mutation local to this occurrence. The occurrence's
// public ID never changes: the service is always addressed by master
// ID, and searches and named selections rely on the ID staying stable
// across mutations.
//
// The returned rollback undoes the fork locally (and best-effort
// remotely), for callers whose follow-up mutation fails; it is nil when
// no fork happened.
func (b *Body) ensureOwnedLocked(ctx context.Context) (func(context.Context), error) {
	if b.private || !b.parent.master.shared() {
		return nil, nil
	}
	d := b.parent.design
	_, masterID, err := d.svc.CopyBody(ctx, b.master.id, b.parent.id, b.name)
	if err != nil {
		return nil, err
	}
	d.log.Debug().
		Str("from", b.master.id.Short()).
		Str("to", masterID.Short()).
		Msg("occurrence forked from shared master")
	prev := b.master
	b.parent.suppressed[prev.id] = true
	mb := &MasterBody{id: masterID, name: b.name, surface: prev.surface, alive: true}
	mb.material = prev.material
	mb.thickness, mb.thicknessSet = prev.thickness, prev.thicknessSet
	mb.offsetKind, mb.offsetSet = prev.offsetKind, prev.offsetSet
	d.masters[masterID] = mb
	b.master = mb
	b.private = true

	rollback := func(ctx context.Context) {
		delete(b.parent.suppressed, prev.id)
		delete(d.masters, mb.id)
		mb.alive = false
		b.master = prev
		b.private = false
		if err := d.svc.Delete(ctx, mb.id); err != nil {
			d.log.Warn().Err(err).
				Str("master", mb.id.Short()).
				Msg("orphaned fork copy left on service")
		}
	}
	return rollback, nil
}

// Copy duplicates the body's master under parent and returns the new
// occurrence. Copy always breaks sharing: the result references a fresh
// master regardless of how the source is instanced.
func (b *Body) Copy(ctx context.Context, parent *Component, name string) (*Body, error) {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return nil, err
	}
	if parent == nil || parent.design != d {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "copy target must be a component of the same design")
	}
	if !parent.alive {
		return nil, errStale("component", parent.id)
	}
	bodyID, masterID, err := d.svc.CopyBody(ctx, b.master.id, parent.id, name)
	if err != nil {
		return nil, err
	}
	mb := &MasterBody{id: masterID, name: name, surface: b.master.surface, alive: true}
	d.masters[masterID] = mb
	occ := &Body{parent: parent, master: mb, id: bodyID, name: name, alive: true, private: true}
	parent.bodies = append(parent.bodies, occ)
	return occ, nil
}

// --- destructive operations ---

// Intersect replaces the body with its intersection with other; other
// is consumed on success. Fails with an empty-result semantic error
// when the bodies do not overlap, leaving both alive.
func (b *Body) Intersect(ctx context.Context, other *Body) error {
	return b.boolean(ctx, service.BooleanIntersect, other)
}

// Subtract removes other's volume from the body; other is consumed on
// success. Order matters: a.Subtract(b) differs from b.Subtract(a).
func (b *Body) Subtract(ctx context.Context, other *Body) error {
	return b.boolean(ctx, service.BooleanSubtract, other)
}

// Unite merges other into the body; other is consumed on success.
func (b *Body) Unite(ctx context.Context, other *Body) error {
	return b.boolean(ctx, service.BooleanUnite, other)
}

func (b *Body) boolean(ctx context.Context, op service.BooleanKind, other *Body) error {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return err
	}
	if other == nil {
		return service.Semanticf(service.ReasonInvalidArgument, "%s needs a second body", op)
	}
	if other == b || other.master == b.master {
		return service.Semanticf(service.ReasonInvalidArgument, "%s of a body with itself", op)
	}
	if err := other.staleCheckLocked(); err != nil {
		return err
	}
	undoFork, err := b.ensureOwnedLocked(ctx)
	if err != nil {
		return err
	}
	if err := d.svc.BooleanOp(ctx, op, b.master.id, other.master.id); err != nil {
		if undoFork != nil {
			undoFork(ctx)
		}
		return err
	}
	// The tool body is consumed: its master dies, so every occurrence
	// of it goes stale.
	other.master.alive = false
	other.alive = false
	b.master.markChanged()
	return nil
}

// Translate rigidly moves the body's own geometry, distinct from the
// owning component's placement. Direction must be a unit vector and
// distance non-negative.
func (b *Body) Translate(ctx context.Context, direction geometry.Vec3, distance units.Distance) error {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return err
	}
	if !direction.IsUnit() {
		return service.Semanticf(service.ReasonInvalidArgument, "translate direction must be a unit vector")
	}
	if distance.Millimeters() < 0 {
		return service.Semanticf(service.ReasonInvalidArgument, "translate distance must be non-negative")
	}
	undoFork, err := b.ensureOwnedLocked(ctx)
	if err != nil {
		return err
	}
	if err := d.svc.TranslateBody(ctx, b.master.id, direction, distance.Millimeters()); err != nil {
		if undoFork != nil {
			undoFork(ctx)
		}
		return err
	}
	b.master.markChanged()
	return nil
}

// ImprintCurves projects the sketch's curves onto the body, splitting
// faces along them, and returns the faces created by the imprint.
func (b *Body) ImprintCurves(ctx context.Context, sk *sketch.Sketch) ([]service.FaceDescriptor, error) {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return nil, err
	}
	payload, err := sk.Payload()
	if err != nil {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "sketch: %v", err)
	}
	undoFork, err := b.ensureOwnedLocked(ctx)
	if err != nil {
		return nil, err
	}
	faces, err := d.svc.ImprintCurves(ctx, b.master.id, payload)
	if err != nil {
		if undoFork != nil {
			undoFork(ctx)
		}
		return nil, err
	}
	b.master.markChanged()
	return faces, nil
}

// --- queries ---

// Faces lists the body's faces by delegating to the master.
func (b *Body) Faces(ctx context.Context) ([]service.FaceDescriptor, error) {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return nil, err
	}
	return d.svc.GetFaces(ctx, b.master.id)
}

// Edges lists the body's edges by delegating to the master.
func (b *Body) Edges(ctx context.Context) ([]service.EdgeDescriptor, error) {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return nil, err
	}
	return d.svc.GetEdges(ctx, b.master.id)
}

// Volume returns the enclosed volume in mm^3. Surface bodies report
// zero.
func (b *Body) Volume(ctx context.Context) (float64, error) {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return 0, err
	}
	return d.svc.GetVolume(ctx, b.master.id)
}

// Tessellate returns the body's triangle mesh in world space, fetched
// lazily and cached. merge=true yields one merged mesh; merge=false
// preserves per-face-group granularity. The cache is keyed by merge
// flag, world transform and the master's geometry generation, so any
// boolean, translate or imprint on this body — or a placement change on
// any ancestor — causes a fresh fetch. Only the latest result per merge
// flag is retained. Callers must treat the returned payload as
// read-only.
func (b *Body) Tessellate(ctx context.Context, merge bool) (*service.MeshPayload, error) {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return nil, err
	}
	key := tessKey{merge: merge, transform: b.parent.worldLocked(), gen: b.master.gen}
	if cached, ok := b.cache[key]; ok {
		return cached, nil
	}
	payload, err := d.svc.Tessellate(ctx, b.master.id, merge, key.transform)
	if err != nil {
		return nil, err
	}
	if b.cache == nil {
		b.cache = make(map[tessKey]*service.MeshPayload)
	}
	// One entry per merge flag: entries under superseded generations or
	// placements are unreachable, so drop them instead of accumulating.
	for k := range b.cache {
		if k.merge == merge {
			delete(b.cache, k)
		}
	}
	b.cache[key] = payload
	return payload, nil
}

// --- surface metadata ---

// AssignMaterial records a registered material on a surface body.
// Fails with a semantic error on solid bodies and for materials the
// design does not know.
func (b *Body) AssignMaterial(name string) error {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return err
	}
	if !b.master.surface {
		return errNotSurface("assign material", b.id)
	}
	if _, ok := d.materialLocked(name); !ok {
		return service.Semanticf(service.ReasonInvalidArgument, "material %q is not registered with the design", name)
	}
	b.master.material = name
	return nil
}

// Material returns the assigned material name, empty when unset.
func (b *Body) Material() string {
	b.parent.design.mu.Lock()
	defer b.parent.design.mu.Unlock()
	return b.master.material
}

// AddMidsurfaceThickness records the sheet thickness of a surface body.
// Fails with a semantic error on solid bodies.
func (b *Body) AddMidsurfaceThickness(t units.Distance) error {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return err
	}
	if !b.master.surface {
		return errNotSurface("midsurface thickness", b.id)
	}
	if t.Millimeters() <= 0 {
		return service.Semanticf(service.ReasonInvalidArgument, "midsurface thickness must be positive")
	}
	b.master.thickness = t
	b.master.thicknessSet = true
	return nil
}

// AddMidsurfaceOffset records where the midsurface sits within the
// thickness. Fails with a semantic error on solid bodies.
func (b *Body) AddMidsurfaceOffset(kind MidsurfaceOffset) error {
	d := b.parent.design
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := b.staleCheckLocked(); err != nil {
		return err
	}
	if !b.master.surface {
		return errNotSurface("midsurface offset", b.id)
	}
	b.master.offsetKind = kind
	b.master.offsetSet = true
	return nil
}

// MidsurfaceThickness returns the recorded thickness and whether one
// was set.
func (b *Body) MidsurfaceThickness() (units.Distance, bool) {
	b.parent.design.mu.Lock()
	defer b.parent.design.mu.Unlock()
	return b.master.thickness, b.master.thicknessSet
}

// MidsurfaceOffsetKind returns the recorded offset and whether one was
// set.
func (b *Body) MidsurfaceOffsetKind() (MidsurfaceOffset, bool) {
	b.parent.design.mu.Lock()
	defer b.parent.design.mu.Unlock()
	return b.master.offsetKind, b.master.offsetSet
}
