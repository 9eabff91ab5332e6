// Package remote implements the service.Modeler contract over a JSON
// request/response websocket. Calls are strictly synchronous: one frame
// out, one frame back, matching the single-threaded model of the client
// assembly tree. Connection failures surface as *service.TransportError;
// server-reported failures are decoded back into the shared error
// taxonomy.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chazu/tenon/pkg/geometry"
	"github.com/chazu/tenon/pkg/service"
	"github.com/chazu/tenon/pkg/sketch"
)

// Compile-time interface check.
var _ service.Modeler = (*Client)(nil)

// Client is a websocket connection to the modeling service.
type Client struct {
	mu   sync.Mutex // serializes calls; the protocol has one frame in flight
	conn *websocket.Conn
	cfg  Config
	log  zerolog.Logger
	ref  uint64
}

// Dial connects to the modeling service described by cfg. Pass
// zerolog.Nop() to silence logging.
func Dial(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout.Std(),
	}
	conn, _, err := dialer.DialContext(ctx, cfg.Endpoint, nil)
	if err != nil {
		return nil, service.Transportf("dial", err)
	}
	return &Client{
		conn: conn,
		cfg:  cfg,
		log:  log.With().Str("component", "remote").Str("endpoint", cfg.Endpoint).Logger(),
	}, nil
}

// Close shuts the connection down. Further calls fail with a transport
// error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call performs one request/response round trip. out may be nil for
// calls with no result payload.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return service.Transportf(method, fmt.Errorf("connection closed"))
	}
	if err := ctx.Err(); err != nil {
		return service.Transportf(method, err)
	}

	deadline := time.Time{}
	if c.cfg.CallTimeout > 0 {
		deadline = time.Now().Add(c.cfg.CallTimeout.Std())
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	c.ref++
	req := request{Ref: c.ref, Method: method, Params: params}
	c.log.Debug().Uint64("ref", req.Ref).Str("method", method).Msg("call")

	if err := c.conn.WriteJSON(req); err != nil {
		return service.Transportf(method, err)
	}

	var resp response
	for {
		if err := c.conn.ReadJSON(&resp); err != nil {
			return service.Transportf(method, err)
		}
		if resp.Ref == req.Ref {
			break
		}
		// Stray frame from an abandoned call; skip it.
		c.log.Warn().Uint64("got", resp.Ref).Uint64("want", req.Ref).Msg("out-of-order reply dropped")
	}

	if resp.Error != nil {
		return decodeError(method, resp.Error)
	}
	if out != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return service.Transportf(method, fmt.Errorf("malformed result: %w", err))
		}
	}
	return nil
}

// decodeError maps a wire error back onto the shared taxonomy.
func decodeError(method string, we *wireError) error {
	switch we.Kind {
	case "not-found":
		return service.ErrNotFound
	case "semantic":
		return &service.SemanticError{
			Reason:  service.Reason(we.Reason),
			Message: we.Message,
		}
	default:
		return fmt.Errorf("remote: %s failed: %s (%s)", method, we.Message, we.Kind)
	}
}

// --- service.Modeler ---

func (c *Client) CreateDesign(ctx context.Context, name string) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_design", createDesignParams{Name: name}, &res)
	return res.ID, err
}

func (c *Client) CreateComponent(ctx context.Context, parentID service.EntityID, name string, templateID service.EntityID) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_component", createComponentParams{
		ParentID:   parentID,
		Name:       name,
		TemplateID: templateID,
	}, &res)
	return res.ID, err
}

func (c *Client) SetSharedTopology(ctx context.Context, componentID service.EntityID, kind service.SharedTopology) error {
	return c.call(ctx, "set_shared_topology", sharedTopologyParams{
		ComponentID: componentID,
		Kind:        kind.String(),
	}, nil)
}

func (c *Client) CreateBodyFromSketch(ctx context.Context, parentID service.EntityID, name string, profile *sketch.Payload, distance float64) (service.EntityID, service.EntityID, error) {
	var res bodyResult
	err := c.call(ctx, "create_body_from_sketch", createBodyParams{
		ParentID: parentID,
		Name:     name,
		Profile:  profile,
		Distance: distance,
	}, &res)
	return res.Body, res.Master, err
}

func (c *Client) CreateSurfaceBody(ctx context.Context, parentID service.EntityID, name string, profile *sketch.Payload) (service.EntityID, service.EntityID, error) {
	var res bodyResult
	err := c.call(ctx, "create_surface_body", createBodyParams{
		ParentID: parentID,
		Name:     name,
		Profile:  profile,
	}, &res)
	return res.Body, res.Master, err
}

func (c *Client) CopyBody(ctx context.Context, sourceMasterID, parentID service.EntityID, name string) (service.EntityID, service.EntityID, error) {
	var res bodyResult
	err := c.call(ctx, "copy_body", copyBodyParams{
		SourceMasterID: sourceMasterID,
		ParentID:       parentID,
		Name:           name,
	}, &res)
	return res.Body, res.Master, err
}

func (c *Client) BooleanOp(ctx context.Context, op service.BooleanKind, targetID, otherID service.EntityID) error {
	return c.call(ctx, "boolean_op", booleanParams{Op: op, TargetID: targetID, OtherID: otherID}, nil)
}

func (c *Client) TranslateBody(ctx context.Context, bodyID service.EntityID, direction geometry.Vec3, distance float64) error {
	return c.call(ctx, "translate_body", translateParams{
		BodyID:    bodyID,
		Direction: direction,
		Distance:  distance,
	}, nil)
}

func (c *Client) ImprintCurves(ctx context.Context, bodyID service.EntityID, profile *sketch.Payload) ([]service.FaceDescriptor, error) {
	var res facesResult
	err := c.call(ctx, "imprint_curves", imprintParams{BodyID: bodyID, Profile: profile}, &res)
	return res.Faces, err
}

func (c *Client) Delete(ctx context.Context, entityID service.EntityID) error {
	return c.call(ctx, "delete", deleteParams{EntityID: entityID}, nil)
}

func (c *Client) GetFaces(ctx context.Context, bodyID service.EntityID) ([]service.FaceDescriptor, error) {
	var res facesResult
	err := c.call(ctx, "get_faces", bodyIDParams{BodyID: bodyID}, &res)
	return res.Faces, err
}

func (c *Client) GetEdges(ctx context.Context, bodyID service.EntityID) ([]service.EdgeDescriptor, error) {
	var res edgesResult
	err := c.call(ctx, "get_edges", bodyIDParams{BodyID: bodyID}, &res)
	return res.Edges, err
}

func (c *Client) GetVolume(ctx context.Context, bodyID service.EntityID) (float64, error) {
	var res volumeResult
	err := c.call(ctx, "get_volume", bodyIDParams{BodyID: bodyID}, &res)
	return res.Volume, err
}

func (c *Client) Tessellate(ctx context.Context, bodyID service.EntityID, merge bool, transform geometry.Matrix44) (*service.MeshPayload, error) {
	var res service.MeshPayload
	err := c.call(ctx, "tessellate", tessellateParams{
		BodyID:    bodyID,
		Merge:     merge,
		Transform: transform,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CreateNamedSelection(ctx context.Context, name string, memberIDs []service.EntityID) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_named_selection", namedSelectionParams{Name: name, Members: memberIDs}, &res)
	return res.ID, err
}

func (c *Client) CreateBeamProfile(ctx context.Context, name string, radius float64) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_beam_profile", beamProfileParams{Name: name, Radius: radius}, &res)
	return res.ID, err
}

func (c *Client) CreateBeam(ctx context.Context, parentID service.EntityID, start, end geometry.Vec3, profileID service.EntityID) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_beam", beamParams{
		ParentID:  parentID,
		Start:     start,
		End:       end,
		ProfileID: profileID,
	}, &res)
	return res.ID, err
}

func (c *Client) CreateCoordinateSystem(ctx context.Context, parentID service.EntityID, name string, frame service.Frame) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_coordinate_system", coordinateSystemParams{
		ParentID: parentID,
		Name:     name,
		Frame:    frame,
	}, &res)
	return res.ID, err
}

func (c *Client) CreateDesignPoint(ctx context.Context, parentID service.EntityID, name string, point geometry.Vec3) (service.EntityID, error) {
	var res idResult
	err := c.call(ctx, "create_design_point", designPointParams{
		ParentID: parentID,
		Name:     name,
		Point:    point,
	}, &res)
	return res.ID, err
}
