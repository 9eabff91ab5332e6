// Package service defines the request/response contract with the
// authoritative geometric modeling service. All hard geometry (booleans,
// tessellation, sweeps, surface math) happens behind this boundary; the
// client assembly model in pkg/design only mirrors the results.
//
// Two implementations exist: service/remote speaks the wire protocol to a
// real service, and service/inproc evaluates the same contract against a
// local geometry kernel for tests and offline use.
package service

import (
	"context"

	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/kernel"
	"github.com/chazu/tenon/pkg/sketch"
)

// EntityID is a service-issued identifier, unique within a design.
type EntityID string

// IsZero reports whether the ID is unset.
func (id EntityID) IsZero() bool {
	return id == ""
}

// Short returns an abbreviated form for logs and error messages.
func (id EntityID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// BooleanKind enumerates the binary boolean operations.
type BooleanKind string

const (
	BooleanIntersect BooleanKind = "intersect"
	BooleanSubtract  BooleanKind = "subtract"
	BooleanUnite     BooleanKind = "unite"
)

// SharedTopology controls how the remote kernel merges faces across
// bodies within a component. Pure pass-through; the client derives no
// behavior from it.
type SharedTopology int

const (
	SharedTopologyNone SharedTopology = iota
	SharedTopologyShare
	SharedTopologyMerge
	SharedTopologyGroups
)

func (s SharedTopology) String() string {
	switch s {
	case SharedTopologyNone:
		return "none"
	case SharedTopologyShare:
		return "share"
	case SharedTopologyMerge:
		return "merge"
	case SharedTopologyGroups:
		return "groups"
	default:
		return "unknown"
	}
}

// FaceDescriptor describes one face of a body. Opaque to the client
// beyond identity and summary values.
type FaceDescriptor struct {
	ID      EntityID `json:"id"`
	Surface string   `json:"surface"` // e.g. "plane", "cylinder"
	Area    float64  `json:"area"`    // mm^2
}

// EdgeDescriptor describes one edge of a body.
type EdgeDescriptor struct {
	ID     EntityID `json:"id"`
	Curve  string   `json:"curve"`  // e.g. "line", "circle"
	Length float64  `json:"length"` // mm
}

// MeshPayload is the tessellation result for one body. Merged is set when
// the merge flag was given; otherwise Faces carries one mesh per face
// group.
type MeshPayload struct {
	Merged *kernel.Mesh   `json:"merged,omitempty"`
	Faces  []*kernel.Mesh `json:"faces,omitempty"`
}

// Frame is the origin and axes of a coordinate system.
type Frame struct {
	Origin geometry.Vec3 `json:"origin"`
	DirX   geometry.Vec3 `json:"dir_x"`
	DirY   geometry.Vec3 `json:"dir_y"`
}

// Modeler is the abstract modeling service contract. Every mutating and
// every geometry-producing operation of the assembly model maps to
// exactly one call. Implementations must return a *TransportError for
// connectivity failures, a *SemanticError when an operation is invalid
// for the entity state, and ErrNotFound for unknown IDs.
type Modeler interface {
	// Design and tree structure
	CreateDesign(ctx context.Context, name string) (EntityID, error)
	CreateComponent(ctx context.Context, parentID EntityID, name string, templateID EntityID) (EntityID, error)
	SetSharedTopology(ctx context.Context, componentID EntityID, kind SharedTopology) error

	// Geometry-producing operations. Each returns the occurrence ID and
	// the master (template) ID of the created body.
	CreateBodyFromSketch(ctx context.Context, parentID EntityID, name string, profile *sketch.Payload, distance float64) (body, master EntityID, err error)
	CreateSurfaceBody(ctx context.Context, parentID EntityID, name string, profile *sketch.Payload) (body, master EntityID, err error)
	CopyBody(ctx context.Context, sourceMasterID, parentID EntityID, name string) (body, master EntityID, err error)

	// Geometry-mutating operations
	BooleanOp(ctx context.Context, op BooleanKind, targetID, otherID EntityID) error
	TranslateBody(ctx context.Context, bodyID EntityID, direction geometry.Vec3, distance float64) error
	ImprintCurves(ctx context.Context, bodyID EntityID, profile *sketch.Payload) ([]FaceDescriptor, error)

	// Lifecycle
	Delete(ctx context.Context, entityID EntityID) error

	// Read operations
	GetFaces(ctx context.Context, bodyID EntityID) ([]FaceDescriptor, error)
	GetEdges(ctx context.Context, bodyID EntityID) ([]EdgeDescriptor, error)
	GetVolume(ctx context.Context, bodyID EntityID) (float64, error)
	Tessellate(ctx context.Context, bodyID EntityID, merge bool, transform geometry.Matrix44) (*MeshPayload, error)

	// Aggregates and auxiliary entities
	CreateNamedSelection(ctx context.Context, name string, memberIDs []EntityID) (EntityID, error)
	CreateBeamProfile(ctx context.Context, name string, radius float64) (EntityID, error)
	CreateBeam(ctx context.Context, parentID EntityID, start, end geometry.Vec3, profileID EntityID) (EntityID, error)
	CreateCoordinateSystem(ctx context.Context, parentID EntityID, name string, frame Frame) (EntityID, error)
	CreateDesignPoint(ctx context.Context, parentID EntityID, name string, point geometry.Vec3) (EntityID, error)
}
