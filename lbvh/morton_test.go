package lbvh

import (
	"testing"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/types"
)

func TestExpandBits(t *testing.T) {
	specs := []struct {
		in, exp uint32
	}{
		{0, 0},
		{1, 1},
		{2, 8},
		{3, 9},
		{256, 1 << 24},
		{768, 1<<24 | 1<<27},
		{1023, 0x09249249},
	}

	for _, spec := range specs {
		if got := ExpandBits(spec.in); got != spec.exp {
			t.Errorf("expected ExpandBits(%d) to be 0x%08x; got 0x%08x", spec.in, spec.exp, got)
		}
	}
}

func TestMortonCode(t *testing.T) {
	bounds := scene.NewAABB(types.Splat3(-125), types.Splat3(125))

	specs := []struct {
		centroid types.Vec3
		exp      uint32
	}{
		{types.Splat3(-125), 0},
		{types.Splat3(0), 7 << 27},
		{types.Splat3(125), 0x3FFFFFFF},
		// Points outside the scene bounds are clamped
		{types.Splat3(1000), 0x3FFFFFFF},
		{types.Splat3(-1000), 0},
		// x has the highest weight
		{types.XYZ(0, -125, -125), 4 << 27},
		{types.XYZ(-125, 0, -125), 2 << 27},
		{types.XYZ(-125, -125, 0), 1 << 27},
	}

	for specIndex, spec := range specs {
		if got := MortonCode(spec.centroid, bounds); got != spec.exp {
			t.Errorf("[spec %d] expected key 0x%08x for %v; got 0x%08x", specIndex, spec.exp, spec.centroid, got)
		}
	}
}
