package lbvh

import (
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/google/uuid"
)

// The output of a build. Per-triangle buffers are indexed by sorted
// position; NodeAABBs is indexed by internal node index.
type Hierarchy struct {
	BuildID     uuid.UUID
	SceneBounds scene.AABB

	// Sorted position -> original triangle index.
	SortedIndices []uint32

	// Sorted keys before and after compaction.
	RawKeys    []uint32
	MortonKeys []uint32

	TriangleAABBs   []scene.AABB
	Triangles       []scene.Triangle
	MaterialIndices []uint32
	ShadowFlags     []scene.ShadowFlags

	InternalNodes []scene.InternalNode
	LeafNodes     []scene.LeafNode
	NodeAABBs     []scene.AABB

	Stats Stats
}

// Get the root node type and index. Internal node 0 is the root unless the
// hierarchy holds a single leaf.
func (h *Hierarchy) Root() (nodeType, index uint32) {
	if len(h.InternalNodes) == 0 {
		return scene.NodeTypeLeaf, 0
	}
	return scene.NodeTypeInternal, 0
}

// Get the AABB enclosing the whole hierarchy.
func (h *Hierarchy) Bounds() scene.AABB {
	nodeType, index := h.Root()
	if nodeType == scene.NodeTypeLeaf {
		return h.TriangleAABBs[index]
	}
	return h.NodeAABBs[index]
}

// Package the hierarchy buffers into a scene. The scene shares the
// hierarchy buffers.
func (h *Hierarchy) Scene(materialNames []string) *scene.Scene {
	return &scene.Scene{
		BuildID:         h.BuildID,
		SceneBounds:     h.SceneBounds,
		MortonKeys:      h.MortonKeys,
		TriangleIndices: h.SortedIndices,
		Triangles:       h.Triangles,
		TriangleAABBs:   h.TriangleAABBs,
		InternalNodes:   h.InternalNodes,
		LeafNodes:       h.LeafNodes,
		NodeAABBs:       h.NodeAABBs,
		MaterialIndices: h.MaterialIndices,
		ShadowFlags:     h.ShadowFlags,
		MaterialNames:   materialNames,
	}
}

// Calculate the depth of every leaf, indexed by leaf. Depth is 0 for a root
// leaf. Leaves that cannot be reached from the root get a depth of -1.
func (h *Hierarchy) LeafDepths() []int {
	depths := make([]int, len(h.LeafNodes))
	for i := range depths {
		depths[i] = -1
	}

	if len(h.LeafNodes) == 0 {
		return depths
	}

	if len(h.InternalNodes) == 0 {
		depths[0] = 0
		return depths
	}

	type stackEntry struct {
		index uint32
		depth int
	}

	stack := []stackEntry{{0, 0}}
	visitBudget := len(h.InternalNodes)
	for len(stack) > 0 && visitBudget > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visitBudget--

		node := h.InternalNodes[entry.index]
		for _, child := range [2][2]uint32{{node.LeftNodeType, node.LeftNode}, {node.RightNodeType, node.RightNode}} {
			switch child[0] {
			case scene.NodeTypeLeaf:
				if int(child[1]) < len(depths) {
					depths[child[1]] = entry.depth + 1
				}
			case scene.NodeTypeInternal:
				if int(child[1]) < len(h.InternalNodes) {
					stack = append(stack, stackEntry{child[1], entry.depth + 1})
				}
			}
		}
	}

	return depths
}
