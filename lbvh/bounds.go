package lbvh

import (
	"context"

	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/pkg/errors"
)

// Create the kernel that computes the epsilon-expanded AABB, Morton key,
// identity index and packed record of every triangle.
func boundsKernel(dev *device.Device, mesh *input.Mesh, sceneBounds scene.AABB, epsilon float32, aabbs []scene.AABB, keys, indices []uint32, triangles []scene.Triangle) *device.Kernel {
	vertexCount := uint32(len(mesh.Vertices))
	pad := types.Splat3(epsilon)

	return dev.Kernel("bounds", func(_ context.Context, wg device.WorkGroup) error {
		for tri := wg.Start; tri < wg.End; tri++ {
			i0, i1, i2 := mesh.Indices[tri*3], mesh.Indices[tri*3+1], mesh.Indices[tri*3+2]
			if i0 >= vertexCount || i1 >= vertexCount || i2 >= vertexCount {
				return errors.Wrapf(ErrInvalidInput, "triangle %d references vertex (%d, %d, %d); mesh has %d vertices", tri, i0, i1, i2, vertexCount)
			}

			v0, v1, v2 := mesh.Vertices[i0], mesh.Vertices[i1], mesh.Vertices[i2]
			aabb := scene.NewAABB(
				types.MinVec3(v0, types.MinVec3(v1, v2)).Sub(pad),
				types.MaxVec3(v0, types.MaxVec3(v1, v2)).Add(pad),
			)

			aabbs[tri] = aabb
			keys[tri] = MortonCode(aabb.Center(), sceneBounds)
			indices[tri] = uint32(tri)
			triangles[tri] = packTriangle(mesh, tri, [3]uint32{i0, i1, i2})
		}
		return nil
	})
}

// Pack the attributes of a triangle into its traversal record.
func packTriangle(mesh *input.Mesh, tri int, idx [3]uint32) scene.Triangle {
	v0, v1, v2 := mesh.Vertices[idx[0]], mesh.Vertices[idx[1]], mesh.Vertices[idx[2]]

	t := scene.Triangle{
		Point0:        v0,
		Point1:        v1,
		Point2:        v2,
		MaterialIndex: mesh.MaterialIndex(tri),
	}

	if len(mesh.Normals) != 0 {
		t.Normal0, t.Normal1, t.Normal2 = mesh.Normals[idx[0]], mesh.Normals[idx[1]], mesh.Normals[idx[2]]
	} else {
		// Fall back to the face normal
		n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		t.Normal0, t.Normal1, t.Normal2 = n, n, n
	}

	if len(mesh.UVs) != 0 {
		t.UV0, t.UV1, t.UV2 = mesh.UVs[idx[0]], mesh.UVs[idx[1]], mesh.UVs[idx[2]]
	}

	if len(mesh.Tangents) != 0 {
		t.Tangent0, t.Tangent1, t.Tangent2 = mesh.Tangents[idx[0]], mesh.Tangents[idx[1]], mesh.Tangents[idx[2]]
	}

	return t
}

// Create the kernel that reorders the per-triangle buffers into sorted
// order.
func gatherKernel(dev *device.Device, mesh *input.Mesh, indices []uint32, aabbs []scene.AABB, triangles []scene.Triangle, sortedAABBs []scene.AABB, sortedTriangles []scene.Triangle, sortedMaterials []uint32, sortedShadow []scene.ShadowFlags) *device.Kernel {
	return dev.Kernel("gather", func(_ context.Context, wg device.WorkGroup) error {
		for i := wg.Start; i < wg.End; i++ {
			src := indices[i]
			sortedAABBs[i] = aabbs[src]
			sortedTriangles[i] = triangles[src]
			sortedMaterials[i] = mesh.MaterialIndex(int(src))
			sortedShadow[i] = mesh.Shadow(int(src))
		}
		return nil
	})
}
