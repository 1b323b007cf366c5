package lbvh

import (
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/types"
)

// Number of quantization steps per axis.
const mortonAxisSteps = 1024

// Spread the lower 10 bits of v so that two zero bits separate each
// original bit.
func ExpandBits(v uint32) uint32 {
	v = (v * 0x00010001) & 0xFF0000FF
	v = (v * 0x00000101) & 0x0F00F00F
	v = (v * 0x00000011) & 0xC30C30C3
	v = (v * 0x00000005) & 0x49249249
	return v
}

// Calculate the 30-bit Morton code of a point normalized against the scene
// bounds. Points outside the bounds are clamped to the closest face.
func MortonCode(centroid types.Vec3, bounds scene.AABB) uint32 {
	norm := centroid.Sub(bounds.Min).DivVec(bounds.Max.Sub(bounds.Min)).Clamp(0, 1)

	x := ExpandBits(quantize(norm[0]))
	y := ExpandBits(quantize(norm[1]))
	z := ExpandBits(quantize(norm[2]))
	return x*4 + y*2 + z
}

func quantize(v float32) uint32 {
	q := v * mortonAxisSteps
	if q < 0 {
		return 0
	} else if q > mortonAxisSteps-1 {
		return mortonAxisSteps - 1
	}
	return uint32(q)
}
