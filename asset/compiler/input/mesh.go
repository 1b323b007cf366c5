package input

import (
	"fmt"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/types"
)

// A triangle soup: flat vertex attribute arrays indexed by a triangle list.
// Normals, tangents and UVs are optional; when present they are indexed by
// the same index buffer as the vertices.
type Mesh struct {
	Name string

	Vertices []types.Vec3
	Normals  []types.Vec3
	Tangents []types.Vec3
	UVs      []types.Vec2

	// Three vertex indices per triangle.
	Indices []uint32

	// Per-triangle attributes. If empty, triangles use material 0 and
	// scene.DefaultShadowFlags.
	MaterialIndices []uint32
	ShadowFlags     []scene.ShadowFlags

	// Material names referenced by MaterialIndices.
	Materials []string
}

// Get the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Get the material index of a triangle.
func (m *Mesh) MaterialIndex(tri int) uint32 {
	if tri < len(m.MaterialIndices) {
		return m.MaterialIndices[tri]
	}
	return 0
}

// Get the shadow flags of a triangle.
func (m *Mesh) Shadow(tri int) scene.ShadowFlags {
	if tri < len(m.ShadowFlags) {
		return m.ShadowFlags[tri]
	}
	return scene.DefaultShadowFlags
}

// Check the consistency of the attribute arrays. Index range checks are
// left to the builder which visits every triangle anyway.
func (m *Mesh) Check() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh (%s): index count %d is not a multiple of 3", m.Name, len(m.Indices))
	}

	for name, count := range map[string]int{"normals": len(m.Normals), "tangents": len(m.Tangents), "uvs": len(m.UVs)} {
		if count != 0 && count != len(m.Vertices) {
			return fmt.Errorf("mesh (%s): expected %d %s; got %d", m.Name, len(m.Vertices), name, count)
		}
	}

	triCount := m.TriangleCount()
	if n := len(m.MaterialIndices); n != 0 && n != triCount {
		return fmt.Errorf("mesh (%s): expected %d material indices; got %d", m.Name, triCount, n)
	}
	if n := len(m.ShadowFlags); n != 0 && n != triCount {
		return fmt.Errorf("mesh (%s): expected %d shadow flags; got %d", m.Name, triCount, n)
	}
	return nil
}

// Append the triangles of other to m. Vertex indices of other are rebased
// and material indices are remapped by name.
func (m *Mesh) Append(other *Mesh) {
	vertexOffset := uint32(len(m.Vertices))
	triOffset := m.TriangleCount()
	otherTris := other.TriangleCount()

	// Fill optional attributes so both halves stay aligned with the vertices.
	// A half without normals gets smooth normals generated from its faces and
	// a half without tangents gets tangents perpendicular to its normals.
	normals, otherNormals := m.Normals, other.Normals
	if len(normals) == 0 && len(otherNormals) != 0 {
		normals = m.vertexNormals()
	} else if len(otherNormals) == 0 && len(normals) != 0 {
		otherNormals = other.vertexNormals()
	}
	tangents, otherTangents := m.Tangents, other.Tangents
	if len(tangents) == 0 && len(otherTangents) != 0 {
		tangents = perpendicularTangents(normals, len(m.Vertices))
	} else if len(otherTangents) == 0 && len(tangents) != 0 {
		otherTangents = perpendicularTangents(otherNormals, len(other.Vertices))
	}

	m.Normals = append(normals, otherNormals...)
	m.Tangents = append(tangents, otherTangents...)
	m.UVs = appendAttr(m.UVs, other.UVs, len(m.Vertices), len(other.Vertices))
	m.Vertices = append(m.Vertices, other.Vertices...)

	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, idx+vertexOffset)
	}

	if len(m.MaterialIndices) != 0 || len(other.MaterialIndices) != 0 {
		for tri := len(m.MaterialIndices); tri < triOffset; tri++ {
			m.MaterialIndices = append(m.MaterialIndices, 0)
		}
		for tri := 0; tri < otherTris; tri++ {
			m.MaterialIndices = append(m.MaterialIndices, m.materialIndexByName(other, other.MaterialIndex(tri)))
		}
	}

	if len(m.ShadowFlags) != 0 || len(other.ShadowFlags) != 0 {
		for tri := len(m.ShadowFlags); tri < triOffset; tri++ {
			m.ShadowFlags = append(m.ShadowFlags, scene.DefaultShadowFlags)
		}
		for tri := 0; tri < otherTris; tri++ {
			m.ShadowFlags = append(m.ShadowFlags, other.Shadow(tri))
		}
	}
}

// Map a material index of other into the material table of m, registering
// the material name if needed.
func (m *Mesh) materialIndexByName(other *Mesh, index uint32) uint32 {
	if int(index) >= len(other.Materials) {
		return index
	}

	name := other.Materials[index]
	for i, existing := range m.Materials {
		if existing == name {
			return uint32(i)
		}
	}
	m.Materials = append(m.Materials, name)
	return uint32(len(m.Materials) - 1)
}

// Generate per-vertex normals by accumulating the area weighted normals of
// the faces that share each vertex.
func (m *Mesh) vertexNormals() []types.Vec3 {
	normals := make([]types.Vec3, len(m.Vertices))
	for tri := 0; tri < m.TriangleCount(); tri++ {
		i0, i1, i2 := m.Indices[tri*3], m.Indices[tri*3+1], m.Indices[tri*3+2]
		if int(i0) >= len(m.Vertices) || int(i1) >= len(m.Vertices) || int(i2) >= len(m.Vertices) {
			continue
		}

		n := m.Vertices[i1].Sub(m.Vertices[i0]).Cross(m.Vertices[i2].Sub(m.Vertices[i0]))
		normals[i0] = normals[i0].Add(n)
		normals[i1] = normals[i1].Add(n)
		normals[i2] = normals[i2].Add(n)
	}
	for i, n := range normals {
		normals[i] = n.Normalize()
	}
	return normals
}

func appendAttr[T any](dst, src []T, dstVertices, srcVertices int) []T {
	if len(dst) == 0 && len(src) == 0 {
		return dst
	}
	if len(dst) == 0 {
		dst = make([]T, dstVertices, dstVertices+srcVertices)
	}
	if len(src) == 0 {
		return append(dst, make([]T, srcVertices)...)
	}
	return append(dst, src...)
}
