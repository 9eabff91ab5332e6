package design

import (
	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/units"
)

// BeamProfile is a circular cross-section registered design-wide for
// reuse across beams.
type BeamProfile struct {
	id     EntityID
	name   string
	radius units.Distance
}

// ID returns the service-issued profile identifier.
func (p *BeamProfile) ID() EntityID { return p.id }

// Name returns the display name.
func (p *BeamProfile) Name() string { return p.name }

// Radius returns the cross-section radius.
func (p *BeamProfile) Radius() units.Distance { return p.radius }

// Beam is a straight structural member between two points, carrying a
// cross-section profile. Beams are geometric children of their defining
// component's master, so instances of that component see them too.
type Beam struct {
	id      EntityID
	owner   *Component
	start   geometry.Vec3
	end     geometry.Vec3
	profile *BeamProfile
	alive   bool
}

// ID returns the service-issued beam identifier.
func (b *Beam) ID() EntityID { return b.id }

// Start returns the beam's start point in the defining component's
// space.
func (b *Beam) Start() geometry.Vec3 { return b.start }

// End returns the beam's end point in the defining component's space.
func (b *Beam) End() geometry.Vec3 { return b.end }

// Profile returns the beam's cross-section.
func (b *Beam) Profile() *BeamProfile { return b.profile }

// IsAlive reports whether the beam still exists.
func (b *Beam) IsAlive() bool {
	b.owner.design.mu.Lock()
	defer b.owner.design.mu.Unlock()
	return b.alive
}
