package input

import (
	"math"

	"github.com/achilleasa/polaris-lbvh/types"
)

// Generate per-vertex tangents from the UV deltas of each triangle. The
// per-triangle contributions are accumulated on shared vertices and then
// orthogonalized against the vertex normal. Meshes without UVs are left
// untouched.
func (m *Mesh) GenerateTangents() {
	if len(m.UVs) != len(m.Vertices) || len(m.Vertices) == 0 {
		return
	}

	m.Tangents = make([]types.Vec3, len(m.Vertices))
	for tri := 0; tri < m.TriangleCount(); tri++ {
		i0, i1, i2 := m.Indices[tri*3], m.Indices[tri*3+1], m.Indices[tri*3+2]
		if int(i0) >= len(m.Vertices) || int(i1) >= len(m.Vertices) || int(i2) >= len(m.Vertices) {
			continue
		}

		e1 := m.Vertices[i1].Sub(m.Vertices[i0])
		e2 := m.Vertices[i2].Sub(m.Vertices[i0])
		duv1 := m.UVs[i1].Sub(m.UVs[i0])
		duv2 := m.UVs[i2].Sub(m.UVs[i0])

		denom := duv1[0]*duv2[1] - duv2[0]*duv1[1]
		if denom == 0 {
			continue
		}
		r := 1.0 / denom
		t := e1.Mul(duv2[1] * r).Sub(e2.Mul(duv1[1] * r))

		m.Tangents[i0] = m.Tangents[i0].Add(t)
		m.Tangents[i1] = m.Tangents[i1].Add(t)
		m.Tangents[i2] = m.Tangents[i2].Add(t)
	}

	hasNormals := len(m.Normals) == len(m.Vertices)
	for i, t := range m.Tangents {
		if hasNormals {
			n := m.Normals[i]
			t = t.Sub(n.Mul(n.Dot(t)))
			if t.Dot(t) < 1e-8 {
				t = arbitraryTangent(n)
			}
		}
		m.Tangents[i] = t.Normalize()
	}
}

// Pick a tangent perpendicular to n for vertices whose UV frame is degenerate.
func arbitraryTangent(n types.Vec3) types.Vec3 {
	if math.Abs(float64(n[0])) < 0.9 {
		return types.XYZ(1, 0, 0).Sub(n.Mul(n[0]))
	}
	return types.XYZ(0, 1, 0).Sub(n.Mul(n[1]))
}

// Get count tangents, each perpendicular to the matching normal. Missing
// normals are treated as zero vectors.
func perpendicularTangents(normals []types.Vec3, count int) []types.Vec3 {
	tangents := make([]types.Vec3, count)
	for i := range tangents {
		var n types.Vec3
		if i < len(normals) {
			n = normals[i]
		}
		tangents[i] = arbitraryTangent(n).Normalize()
	}
	return tangents
}
