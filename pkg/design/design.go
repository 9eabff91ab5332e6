package design

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/units"
)

// Design is the root of an assembly tree. It is itself a Component (the
// root occurrence) and additionally owns design-wide aggregates:
// materials, beam profiles and named selections, plus the arena of body
// masters shared across instanced components.
type Design struct {
	*Component

	mu  sync.Mutex
	svc service.Modeler
	log zerolog.Logger

	masters         map[EntityID]*MasterBody
	materials       []Material
	beamProfiles    []*BeamProfile
	namedSelections []*NamedSelection
}

// Material is a named material definition available for assignment to
// surface bodies. Purely client-side metadata.
type Material struct {
	Name    string
	Density float64 // kg/m^3
}

// New creates a design on the service and returns its root. Pass
// zerolog.Nop() to silence logging.
func New(ctx context.Context, svc service.Modeler, name string, log zerolog.Logger) (*Design, error) {
	id, err := svc.CreateDesign(ctx, name)
	if err != nil {
		return nil, err
	}
	d := &Design{
		svc:     svc,
		masters: make(map[EntityID]*MasterBody),
	}
	d.log = log.With().Str("component", "design").Str("design", id.Short()).Logger()
	d.Component = newComponent(d, nil, id, name)
	d.log.Info().Str("name", name).Msg("design created")
	return d, nil
}

// Service returns the modeler the design was created on.
func (d *Design) Service() service.Modeler { return d.svc }

// AddMaterial registers a material for later assignment. Re-adding a
// name replaces the earlier definition.
func (d *Design) AddMaterial(m Material) error {
	if m.Name == "" {
		return service.Semanticf(service.ReasonInvalidArgument, "material needs a name")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, have := range d.materials {
		if have.Name == m.Name {
			d.materials[i] = m
			return nil
		}
	}
	d.materials = append(d.materials, m)
	return nil
}

// Materials returns the registered materials in registration order.
func (d *Design) Materials() []Material {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Material, len(d.materials))
	copy(out, d.materials)
	return out
}

func (d *Design) materialLocked(name string) (Material, bool) {
	for _, m := range d.materials {
		if m.Name == name {
			return m, true
		}
	}
	return Material{}, false
}

// CreateBeamProfileCircle registers a circular beam cross-section on the
// service and returns its handle.
func (d *Design) CreateBeamProfileCircle(ctx context.Context, name string, radius units.Distance) (*BeamProfile, error) {
	if radius.Millimeters() <= 0 {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "beam profile radius must be positive")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.svc.CreateBeamProfile(ctx, name, radius.Millimeters())
	if err != nil {
		return nil, err
	}
	p := &BeamProfile{id: id, name: name, radius: radius}
	d.beamProfiles = append(d.beamProfiles, p)
	return p, nil
}

// BeamProfiles returns the profiles created so far.
func (d *Design) BeamProfiles() []*BeamProfile {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*BeamProfile, len(d.beamProfiles))
	copy(out, d.beamProfiles)
	return out
}
