package design

import (
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/units"
)

// EntityID aliases the service identifier type; tree nodes and service
// calls share one ID space.
type EntityID = service.EntityID

// MasterBody is the authoritative definition of one distinct shape.
// Occurrences (Body) reference it; the service knows it by id. The
// generation counter bumps on every geometry-changing operation and
// feeds tessellation cache keys.
type MasterBody struct {
	id      EntityID
	name    string
	surface bool
	alive   bool
	gen     uint64

	// Surface metadata, meaningful only when surface is true.
	material     string
	thickness    units.Distance
	offsetKind   MidsurfaceOffset
	thicknessSet bool
	offsetSet    bool
}

// ID returns the service-issued master identifier.
func (m *MasterBody) ID() EntityID { return m.id }

// Name returns the display name given at creation.
func (m *MasterBody) Name() string { return m.name }

// IsSurface reports whether the master is a surface (sheet) body rather
// than a solid.
func (m *MasterBody) IsSurface() bool { return m.surface }

// IsAlive reports whether the master still backs live geometry.
func (m *MasterBody) IsAlive() bool { return m.alive }

// markChanged invalidates derived geometry for every occurrence of the
// master. Called after any boolean, translate or imprint succeeds.
func (m *MasterBody) markChanged() {
	m.gen++
}

// masterComponent holds the geometric children shared between a template
// component and its instances. A plain component owns a private
// masterComponent with a single instance; creating a component from a
// template bumps the template master's instance count instead.
type masterComponent struct {
	bodies    []*MasterBody
	beams     []*Beam
	instances int
}

func newMasterComponent() *masterComponent {
	return &masterComponent{instances: 1}
}

// shared reports whether more than one component currently references
// this master. Geometry mutations on occurrences of a shared master
// fork first (see Body.ensureOwnedLocked).
func (mc *masterComponent) shared() bool {
	return mc.instances > 1
}
