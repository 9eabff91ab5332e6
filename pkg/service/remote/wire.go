package remote

import (
	"encoding/json"

	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/sketch"
)

// request is one client call frame. Refs are monotonic per connection so
// replies can be matched to calls.
type request struct {
	Ref    uint64      `json:"ref"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// response is one server reply frame. Exactly one of Result and Error is
// set.
type response struct {
	Ref    uint64          `json:"ref"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

// wireError is the serialized error taxonomy. Kind selects the Go error
// type the client surfaces.
type wireError struct {
	Kind    string `json:"kind"` // "not-found" | "semantic"
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// --- per-method payloads; field names mirror the wire contract ---

type createDesignParams struct {
	Name string `json:"name"`
}

type createComponentParams struct {
	ParentID   service.EntityID `json:"parent_id"`
	Name       string           `json:"name"`
	TemplateID service.EntityID `json:"template_id,omitempty"`
}

type sharedTopologyParams struct {
	ComponentID service.EntityID `json:"component_id"`
	Kind        string           `json:"kind"`
}

type createBodyParams struct {
	ParentID service.EntityID `json:"parent_id"`
	Name     string           `json:"name"`
	Profile  *sketch.Payload  `json:"profile"`
	Distance float64          `json:"distance,omitempty"`
}

type copyBodyParams struct {
	SourceMasterID service.EntityID `json:"source_master_id"`
	ParentID       service.EntityID `json:"parent_id"`
	Name           string           `json:"name"`
}

type booleanParams struct {
	Op       service.BooleanKind `json:"op"`
	TargetID service.EntityID    `json:"target_id"`
	OtherID  service.EntityID    `json:"other_id"`
}

type translateParams struct {
	BodyID    service.EntityID `json:"body_id"`
	Direction geometry.Vec3    `json:"direction"`
	Distance  float64          `json:"distance"`
}

type imprintParams struct {
	BodyID  service.EntityID `json:"body_id"`
	Profile *sketch.Payload  `json:"profile"`
}

type deleteParams struct {
	EntityID service.EntityID `json:"entity_id"`
}

type bodyIDParams struct {
	BodyID service.EntityID `json:"body_id"`
}

type tessellateParams struct {
	BodyID    service.EntityID  `json:"body_id"`
	Merge     bool              `json:"merge"`
	Transform geometry.Matrix44 `json:"transform"`
}

type namedSelectionParams struct {
	Name    string             `json:"name"`
	Members []service.EntityID `json:"members"`
}

type beamProfileParams struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius"`
}

type beamParams struct {
	ParentID  service.EntityID `json:"parent_id"`
	Start     geometry.Vec3    `json:"start"`
	End       geometry.Vec3    `json:"end"`
	ProfileID service.EntityID `json:"profile_id"`
}

type coordinateSystemParams struct {
	ParentID service.EntityID `json:"parent_id"`
	Name     string           `json:"name"`
	Frame    service.Frame    `json:"frame"`
}

type designPointParams struct {
	ParentID service.EntityID `json:"parent_id"`
	Name     string           `json:"name"`
	Point    geometry.Vec3    `json:"point"`
}

// --- results ---

type idResult struct {
	ID service.EntityID `json:"id"`
}

type bodyResult struct {
	Body   service.EntityID `json:"body"`
	Master service.EntityID `json:"master"`
}

type facesResult struct {
	Faces []service.FaceDescriptor `json:"faces"`
}

type edgesResult struct {
	Edges []service.EdgeDescriptor `json:"edges"`
}

type volumeResult struct {
	Volume float64 `json:"volume"`
}
