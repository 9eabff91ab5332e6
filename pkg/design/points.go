package design

import (
	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/service"
)

// CoordinateSystem is a named frame local to one component occurrence.
type CoordinateSystem struct {
	id    EntityID
	owner *Component
	name  string
	frame service.Frame
	alive bool
}

// ID returns the service-issued identifier.
func (cs *CoordinateSystem) ID() EntityID { return cs.id }

// Name returns the display name.
func (cs *CoordinateSystem) Name() string { return cs.name }

// Frame returns the frame in the owning component's space.
func (cs *CoordinateSystem) Frame() service.Frame { return cs.frame }

// WorldFrame returns the frame composed with the owning component's
// world transform.
func (cs *CoordinateSystem) WorldFrame() service.Frame {
	cs.owner.design.mu.Lock()
	defer cs.owner.design.mu.Unlock()
	w := cs.owner.worldLocked()
	return service.Frame{
		Origin: w.ApplyPoint(cs.frame.Origin),
		DirX:   w.ApplyDirection(cs.frame.DirX),
		DirY:   w.ApplyDirection(cs.frame.DirY),
	}
}

// IsAlive reports whether the coordinate system still exists.
func (cs *CoordinateSystem) IsAlive() bool {
	cs.owner.design.mu.Lock()
	defer cs.owner.design.mu.Unlock()
	return cs.alive
}

// DesignPoint is a named reference point local to one component
// occurrence.
type DesignPoint struct {
	id    EntityID
	owner *Component
	name  string
	point geometry.Vec3
	alive bool
}

// ID returns the service-issued identifier.
func (dp *DesignPoint) ID() EntityID { return dp.id }

// Name returns the display name.
func (dp *DesignPoint) Name() string { return dp.name }

// Point returns the point in the owning component's space.
func (dp *DesignPoint) Point() geometry.Vec3 { return dp.point }

// WorldPoint returns the point in world space.
func (dp *DesignPoint) WorldPoint() geometry.Vec3 {
	dp.owner.design.mu.Lock()
	defer dp.owner.design.mu.Unlock()
	return dp.owner.worldLocked().ApplyPoint(dp.point)
}

// IsAlive reports whether the design point still exists.
func (dp *DesignPoint) IsAlive() bool {
	dp.owner.design.mu.Lock()
	defer dp.owner.design.mu.Unlock()
	return dp.alive
}
