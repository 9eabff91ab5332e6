package design

import (
	"context"

	"github.com/chazu/tenon/pkg/service"
)

// Members collects the entities a named selection refers to. Any subset
// of the fields may be populated.
type Members struct {
	Bodies       []*Body
	Beams        []*Beam
	DesignPoints []*DesignPoint
	Faces        []service.FaceDescriptor
	Edges        []service.EdgeDescriptor
}

// NamedSelection is a named group of references spanning the design.
// References are weak ID sets resolved lazily against the live tree:
// deleting a member never dangles, the member simply stops resolving.
type NamedSelection struct {
	design *Design

	id    EntityID
	name  string
	alive bool

	bodies map[EntityID]struct{}
	beams  map[EntityID]struct{}
	points map[EntityID]struct{}
	faces  map[EntityID]struct{}
	edges  map[EntityID]struct{}
}

// CreateNamedSelection groups the given members under a name. One
// service call carries every member ID; on failure no selection is
// recorded.
func (d *Design) CreateNamedSelection(ctx context.Context, name string, m Members) (*NamedSelection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ns := &NamedSelection{
		design: d,
		name:   name,
		alive:  true,
		bodies: make(map[EntityID]struct{}),
		beams:  make(map[EntityID]struct{}),
		points: make(map[EntityID]struct{}),
		faces:  make(map[EntityID]struct{}),
		edges:  make(map[EntityID]struct{}),
	}
	var ids []EntityID
	for _, b := range m.Bodies {
		if b == nil {
			continue
		}
		ns.bodies[b.id] = struct{}{}
		ids = append(ids, b.id)
	}
	for _, bm := range m.Beams {
		if bm == nil {
			continue
		}
		ns.beams[bm.id] = struct{}{}
		ids = append(ids, bm.id)
	}
	for _, dp := range m.DesignPoints {
		if dp == nil {
			continue
		}
		ns.points[dp.id] = struct{}{}
		ids = append(ids, dp.id)
	}
	for _, f := range m.Faces {
		ns.faces[f.ID] = struct{}{}
		ids = append(ids, f.ID)
	}
	for _, e := range m.Edges {
		ns.edges[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil, service.Semanticf(service.ReasonInvalidArgument, "named selection needs at least one member")
	}

	id, err := d.svc.CreateNamedSelection(ctx, name, ids)
	if err != nil {
		return nil, err
	}
	ns.id = id
	d.namedSelections = append(d.namedSelections, ns)
	return ns, nil
}

// NamedSelections returns the live selections in creation order.
func (d *Design) NamedSelections() []*NamedSelection {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*NamedSelection
	for _, ns := range d.namedSelections {
		if ns.alive {
			out = append(out, ns)
		}
	}
	return out
}

// DeleteNamedSelection removes the selection itself. Members are
// untouched. A selection that is already gone is a no-op.
func (d *Design) DeleteNamedSelection(ctx context.Context, ns *NamedSelection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ns == nil || !ns.alive || ns.design != d {
		return nil
	}
	if err := d.svc.Delete(ctx, ns.id); err != nil {
		return err
	}
	ns.alive = false
	return nil
}

// ID returns the service-issued selection identifier.
func (ns *NamedSelection) ID() EntityID { return ns.id }

// Name returns the display name.
func (ns *NamedSelection) Name() string { return ns.name }

// IsAlive reports whether the selection still exists.
func (ns *NamedSelection) IsAlive() bool {
	ns.design.mu.Lock()
	defer ns.design.mu.Unlock()
	return ns.alive
}

// Bodies resolves the body members against the live tree. Members whose
// body has been deleted are silently absent from the result.
func (ns *NamedSelection) Bodies() []*Body {
	ns.design.mu.Lock()
	defer ns.design.mu.Unlock()
	var out []*Body
	for id := range ns.bodies {
		if b := ns.design.Component.searchBodyLocked(id, 0); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// Beams resolves the beam members still alive in the tree.
func (ns *NamedSelection) Beams() []*Beam {
	ns.design.mu.Lock()
	defer ns.design.mu.Unlock()
	var out []*Beam
	for id := range ns.beams {
		if bm := ns.design.Component.searchBeamLocked(id, 0); bm != nil {
			out = append(out, bm)
		}
	}
	return out
}

// DesignPoints resolves the design point members still alive in the
// tree.
func (ns *NamedSelection) DesignPoints() []*DesignPoint {
	ns.design.mu.Lock()
	defer ns.design.mu.Unlock()
	var out []*DesignPoint
	for id := range ns.points {
		if dp := ns.design.Component.searchDesignPointLocked(id, 0); dp != nil {
			out = append(out, dp)
		}
	}
	return out
}

// Resolve reports whether the given member ID still resolves to a live
// entity. A deleted member reports false rather than erroring; an ID
// that was never a member also reports false. Face and edge members
// resolve by membership alone, the client holds no face-level
// liveness.
func (ns *NamedSelection) Resolve(id EntityID) bool {
	ns.design.mu.Lock()
	defer ns.design.mu.Unlock()
	if _, ok := ns.bodies[id]; ok {
		return ns.design.Component.searchBodyLocked(id, 0) != nil
	}
	if _, ok := ns.beams[id]; ok {
		return ns.design.Component.searchBeamLocked(id, 0) != nil
	}
	if _, ok := ns.points[id]; ok {
		return ns.design.Component.searchDesignPointLocked(id, 0) != nil
	}
	if _, ok := ns.faces[id]; ok {
		return true
	}
	if _, ok := ns.edges[id]; ok {
		return true
	}
	return false
}
