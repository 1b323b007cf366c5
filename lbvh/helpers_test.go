package lbvh

import (
	"math/rand"

	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/config"
	"github.com/achilleasa/polaris-lbvh/types"
)

// Create a mesh with one small triangle per centroid. The AABB of each
// triangle is centered on its centroid.
func meshFromCentroids(centroids []types.Vec3, size float32) *input.Mesh {
	m := &input.Mesh{Name: "test"}
	for i, c := range centroids {
		m.Vertices = append(m.Vertices,
			types.XYZ(c[0]-size, c[1]-size, c[2]-size),
			types.XYZ(c[0]+size, c[1]-size, c[2]+size),
			types.XYZ(c[0], c[1]+size, c[2]),
		)
		base := uint32(i * 3)
		m.Indices = append(m.Indices, base, base+1, base+2)
	}
	return m
}

// Create a mesh with random triangles inside the default scene bounds.
func randomMesh(seed int64, count int) *input.Mesh {
	rng := rand.New(rand.NewSource(seed))
	centroids := make([]types.Vec3, count)
	for i := range centroids {
		centroids[i] = types.XYZ(
			rng.Float32()*200-100,
			rng.Float32()*200-100,
			rng.Float32()*200-100,
		)
	}
	return meshFromCentroids(centroids, 0.5)
}

func testDevice() *device.Device {
	return device.New("test", 4, 0)
}

func testConfig() config.Build {
	cfg := config.Default().Build
	cfg.Radix = 16
	cfg.BlockSize = 64
	cfg.ValidateOutput = true
	return cfg
}
