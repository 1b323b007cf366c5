package lbvh

import (
	"context"
	"math/bits"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/pkg/errors"
)

// Get the length of the common prefix of keys i and j, or -1 if j lies
// outside the key range.
func delta(keys []uint32, i, j int) int {
	if j < 0 || j >= len(keys) {
		return -1
	}
	return bits.LeadingZeros32(keys[i] ^ keys[j])
}

// Find the key range [first, last] covered by internal node i and the
// position of its split. Keys must be sorted and unique.
func determineRange(keys []uint32, i int) (first, last, split int) {
	// Direction of the range
	d := 1
	if delta(keys, i, i+1)-delta(keys, i, i-1) < 0 {
		d = -1
	}

	// Upper bound for the range length
	deltaMin := delta(keys, i, i-d)
	lMax := 2
	for delta(keys, i, i+lMax*d) > deltaMin {
		lMax <<= 1
	}

	// Exact range length
	l := 0
	for t := lMax >> 1; t >= 1; t >>= 1 {
		if delta(keys, i, i+(l+t)*d) > deltaMin {
			l += t
		}
	}
	j := i + l*d

	// Split position
	deltaNode := delta(keys, i, j)
	s := 0
	for t := l; ; {
		t = (t + 1) >> 1
		if delta(keys, i, i+(s+t)*d) > deltaNode {
			s += t
		}
		if t <= 1 {
			break
		}
	}

	return min(i, j), max(i, j), i + s*d + min(d, 0)
}

// Create the kernel that checks that sorted keys are strictly increasing.
func uniqueKeysKernel(dev *device.Device, keys []uint32) *device.Kernel {
	return dev.Kernel("checkKeys", func(_ context.Context, wg device.WorkGroup) error {
		for i := wg.Start; i < wg.End; i++ {
			if keys[i] <= keys[i-1] {
				return errors.Wrapf(ErrDuplicateKeys, "key %d (%d) does not exceed key %d (%d)", i, keys[i], i-1, keys[i-1])
			}
		}
		return nil
	})
}

// Create the kernel that initializes leaf nodes. Work item i maps to leaf i.
func leafInitKernel(dev *device.Device, leaves []scene.LeafNode) *device.Kernel {
	return dev.Kernel("initLeaves", func(_ context.Context, wg device.WorkGroup) error {
		for i := wg.Start; i < wg.End; i++ {
			leaves[i] = scene.LeafNode{Parent: scene.NullIndex, Index: uint32(i)}
		}
		return nil
	})
}

// Create the kernel that builds internal nodes. Work item i computes
// internal node i and writes the parent pointers of its two children. Every
// node is the child of exactly one internal node so the parent writes never
// overlap; node i only writes its own fields other than Parent.
func constructKernel(dev *device.Device, keys []uint32, nodes []scene.InternalNode, leaves []scene.LeafNode) *device.Kernel {
	return dev.Kernel("construct", func(_ context.Context, wg device.WorkGroup) error {
		for i := wg.Start; i < wg.End; i++ {
			first, last, split := determineRange(keys, i)
			node := &nodes[i]
			self := uint32(i)

			if first == split {
				node.LeftNode, node.LeftNodeType = uint32(split), scene.NodeTypeLeaf
				leaves[split].Parent = self
			} else {
				node.LeftNode, node.LeftNodeType = uint32(split), scene.NodeTypeInternal
				nodes[split].Parent = self
			}

			if last == split+1 {
				node.RightNode, node.RightNodeType = uint32(split+1), scene.NodeTypeLeaf
				leaves[split+1].Parent = self
			} else {
				node.RightNode, node.RightNodeType = uint32(split+1), scene.NodeTypeInternal
				nodes[split+1].Parent = self
			}

			node.Index = self
		}
		return nil
	})
}
