package lbvh

import (
	"context"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"go.uber.org/atomic"
)

// Create the kernel that propagates AABBs from the leaves to the root. Work
// item i starts at leaf i and climbs the parent chain. The first child to
// reach a node stops; the second one computes the union of both children
// and continues with the parent.
func propagateKernel(dev *device.Device, nodes []scene.InternalNode, leaves []scene.LeafNode, leafAABBs, nodeAABBs []scene.AABB, arrivals []atomic.Uint32) *device.Kernel {
	childAABB := func(nodeType, index uint32) scene.AABB {
		if nodeType == scene.NodeTypeLeaf {
			return leafAABBs[index]
		}
		return nodeAABBs[index]
	}

	return dev.Kernel("propagate", func(_ context.Context, wg device.WorkGroup) error {
		for leaf := wg.Start; leaf < wg.End; leaf++ {
			for cur := leaves[leaf].Parent; cur != scene.NullIndex; {
				if arrivals[cur].Inc() == 1 {
					break
				}

				node := &nodes[cur]
				nodeAABBs[cur] = childAABB(node.LeftNodeType, node.LeftNode).Union(childAABB(node.RightNodeType, node.RightNode))
				cur = node.Parent
			}
		}
		return nil
	})
}
