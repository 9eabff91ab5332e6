package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Label    string    `json:"label"`    // face or body this mesh belongs to
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Volume returns the signed enclosed volume of a closed mesh via the
// divergence theorem. Open meshes yield an unspecified value.
func (m *Mesh) Volume() float64 {
	var sum float64
	for t := 0; t < len(m.Indices); t += 3 {
		i0 := m.Indices[t] * 3
		i1 := m.Indices[t+1] * 3
		i2 := m.Indices[t+2] * 3
		ax, ay, az := float64(m.Vertices[i0]), float64(m.Vertices[i0+1]), float64(m.Vertices[i0+2])
		bx, by, bz := float64(m.Vertices[i1]), float64(m.Vertices[i1+1]), float64(m.Vertices[i1+2])
		cx, cy, cz := float64(m.Vertices[i2]), float64(m.Vertices[i2+1]), float64(m.Vertices[i2+2])
		// a . (b x c) / 6 per tetrahedron against the origin.
		sum += (ax*(by*cz-bz*cy) + ay*(bz*cx-bx*cz) + az*(bx*cy-by*cx)) / 6
	}
	return sum
}

// axis labels for SplitByNormal bins, indexed by axis*2 + (negative?1:0).
var normalBins = [6]string{"+x", "-x", "+y", "-y", "+z", "-z"}

// SplitByNormal partitions the triangles into up to six submeshes by the
// dominant axis of each triangle's normal. This approximates per-face
// granularity for box-like solids and is used for unmerged tessellation.
func (m *Mesh) SplitByNormal() []*Mesh {
	groups := make(map[string]*Mesh)
	for t := 0; t < len(m.Indices); t += 3 {
		ni := m.Indices[t] * 3
		nx, ny, nz := m.Normals[ni], m.Normals[ni+1], m.Normals[ni+2]

		axis, mag := 0, abs32(nx)
		if a := abs32(ny); a > mag {
			axis, mag = 1, a
		}
		if a := abs32(nz); a > mag {
			axis = 2
		}
		neg := 0
		switch axis {
		case 0:
			if nx < 0 {
				neg = 1
			}
		case 1:
			if ny < 0 {
				neg = 1
			}
		case 2:
			if nz < 0 {
				neg = 1
			}
		}
		label := normalBins[axis*2+neg]

		g := groups[label]
		if g == nil {
			g = &Mesh{Label: label}
			groups[label] = g
		}
		for _, idx := range m.Indices[t : t+3] {
			vi := idx * 3
			g.Indices = append(g.Indices, uint32(len(g.Vertices)/3))
			g.Vertices = append(g.Vertices, m.Vertices[vi], m.Vertices[vi+1], m.Vertices[vi+2])
			g.Normals = append(g.Normals, m.Normals[vi], m.Normals[vi+1], m.Normals[vi+2])
		}
	}

	out := make([]*Mesh, 0, len(groups))
	for _, label := range normalBins {
		if g, ok := groups[label]; ok {
			out = append(out, g)
		}
	}
	return out
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
