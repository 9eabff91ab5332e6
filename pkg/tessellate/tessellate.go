// Package tessellate flattens an assembly tree into triangle meshes.
// One labeled mesh is produced per live body occurrence, already placed
// in world space, which is the form viewers and exporters want.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/tenon/pkg/design"
	"github.com/chazu/tenon/pkg/kernel"
)

// Design walks the whole tree rooted at d and returns one merged mesh
// per live body, in traversal order. Meshes are labeled with the body's
// display name (falling back to the short ID) and positioned by the
// owning component's world transform. The walk is read-only; repeated
// calls with no intervening mutation are served from each body's
// tessellation cache.
func Design(ctx context.Context, d *design.Design) ([]*kernel.Mesh, error) {
	return Component(ctx, d.Component)
}

// Component walks the subtree rooted at c.
func Component(ctx context.Context, c *design.Component) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh

	for _, b := range c.Bodies() {
		payload, err := b.Tessellate(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("tessellate: body %s: %w", b.ID().Short(), err)
		}
		if payload.Merged == nil || payload.Merged.IsEmpty() {
			continue
		}
		// Copy the header so labeling does not scribble on the body's
		// cached payload.
		m := *payload.Merged
		if b.Name() != "" {
			m.Label = b.Name()
		} else {
			m.Label = b.ID().Short()
		}
		meshes = append(meshes, &m)
	}

	for _, child := range c.Components() {
		collected, err := Component(ctx, child)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}

	return meshes, nil
}
