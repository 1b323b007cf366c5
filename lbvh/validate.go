package lbvh

import (
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Max number of violations reported by Validate.
const maxViolations = 16

type violations struct {
	err   error
	count int
}

func (v *violations) addf(format string, args ...interface{}) {
	v.count++
	if v.count <= maxViolations {
		v.err = multierr.Append(v.err, errors.Wrapf(ErrInvalidHierarchy, format, args...))
	}
}

func (v *violations) full() bool {
	return v.count >= maxViolations
}

// Validate checks the structural invariants of a hierarchy: triangle AABBs
// are valid and enclose their triangles, keys are strictly increasing, the
// sorted indices form a permutation that orders the raw keys, the tree has
// N-1 internal nodes with consistent parent links and reaches every leaf
// exactly once, and every internal AABB is the union of its children.
// Violations are combined into a single error.
func Validate(h *Hierarchy) error {
	var v violations

	n := len(h.LeafNodes)
	if n == 0 {
		return errors.Wrap(ErrInvalidHierarchy, "no leaves")
	}

	for name, count := range map[string]int{
		"sorted indices":   len(h.SortedIndices),
		"morton keys":      len(h.MortonKeys),
		"raw keys":         len(h.RawKeys),
		"triangle AABBs":   len(h.TriangleAABBs),
		"triangles":        len(h.Triangles),
		"material indices": len(h.MaterialIndices),
		"shadow flags":     len(h.ShadowFlags),
	} {
		if count != n {
			v.addf("expected %d %s; got %d", n, name, count)
		}
	}
	if len(h.InternalNodes) != n-1 || len(h.NodeAABBs) != n-1 {
		v.addf("expected %d internal nodes and AABBs for %d leaves; got %d and %d", n-1, n, len(h.InternalNodes), len(h.NodeAABBs))
	}
	if v.err != nil {
		return v.err
	}

	validateTriangles(h, &v)
	validateKeys(h, &v)
	validateTree(h, &v)
	if v.err == nil {
		validateAABBs(h, &v)
	}
	return v.err
}

// Leaf AABBs must be valid and enclose their triangles.
func validateTriangles(h *Hierarchy, v *violations) {
	for i, aabb := range h.TriangleAABBs {
		if !aabb.IsValid() {
			v.addf("triangle AABB %d has min %v > max %v", i, aabb.Min, aabb.Max)
			continue
		}
		for _, p := range h.Triangles[i].Points() {
			if !types.LessEqualVec3(aabb.Min, p) || !types.LessEqualVec3(p, aabb.Max) {
				v.addf("triangle %d point %v lies outside its AABB [%v, %v]", i, p, aabb.Min, aabb.Max)
				break
			}
		}
		if v.full() {
			return
		}
	}
}

// Compacted keys must be strictly increasing and the sorted indices must be
// a permutation that orders the raw keys.
func validateKeys(h *Hierarchy, v *violations) {
	for i := 1; i < len(h.MortonKeys) && !v.full(); i++ {
		if h.MortonKeys[i] <= h.MortonKeys[i-1] {
			v.addf("morton key %d (%d) does not exceed key %d (%d)", i, h.MortonKeys[i], i-1, h.MortonKeys[i-1])
		}
		if h.RawKeys[i] < h.RawKeys[i-1] {
			v.addf("raw key %d (%d) is less than key %d (%d)", i, h.RawKeys[i], i-1, h.RawKeys[i-1])
		}
	}

	seen := make([]bool, len(h.SortedIndices))
	for i, idx := range h.SortedIndices {
		if int(idx) >= len(seen) || seen[idx] {
			v.addf("sorted index %d (%d) is out of range or repeated", i, idx)
			return
		}
		seen[idx] = true

		if exp := MortonCode(h.TriangleAABBs[i].Center(), h.SceneBounds); h.RawKeys[i] != exp {
			v.addf("raw key %d (%d) does not match the key of its triangle (%d)", i, h.RawKeys[i], exp)
		}
		if v.full() {
			return
		}
	}
}

// Check node indices, parent links and reachability.
func validateTree(h *Hierarchy, v *violations) {
	internalRefs := make([]int, len(h.InternalNodes))
	leafRefs := make([]int, len(h.LeafNodes))

	for i, leaf := range h.LeafNodes {
		if leaf.Index != uint32(i) {
			v.addf("leaf %d has index %d", i, leaf.Index)
		}
	}

	for i, node := range h.InternalNodes {
		if node.Index != uint32(i) {
			v.addf("internal node %d has index %d", i, node.Index)
		}

		for _, child := range [2][2]uint32{{node.LeftNodeType, node.LeftNode}, {node.RightNodeType, node.RightNode}} {
			childType, childIndex := child[0], child[1]
			switch {
			case childType == scene.NodeTypeLeaf && int(childIndex) < len(h.LeafNodes):
				leafRefs[childIndex]++
				if parent := h.LeafNodes[childIndex].Parent; parent != uint32(i) {
					v.addf("leaf %d has parent %d; expected %d", childIndex, parent, i)
				}
			case childType == scene.NodeTypeInternal && int(childIndex) < len(h.InternalNodes):
				internalRefs[childIndex]++
				if parent := h.InternalNodes[childIndex].Parent; parent != uint32(i) {
					v.addf("internal node %d has parent %d; expected %d", childIndex, parent, i)
				}
			default:
				v.addf("internal node %d references invalid child (type %d, index %d)", i, childType, childIndex)
			}
		}
		if v.full() {
			return
		}
	}

	if len(h.InternalNodes) == 0 {
		if h.LeafNodes[0].Parent != scene.NullIndex {
			v.addf("single leaf has parent %d", h.LeafNodes[0].Parent)
		}
		return
	}

	if h.InternalNodes[0].Parent != scene.NullIndex || internalRefs[0] != 0 {
		v.addf("root node has parent %d and %d references", h.InternalNodes[0].Parent, internalRefs[0])
	}
	for i := 1; i < len(internalRefs); i++ {
		if internalRefs[i] != 1 {
			v.addf("internal node %d is referenced %d times", i, internalRefs[i])
		}
	}
	for i, refs := range leafRefs {
		if refs != 1 {
			v.addf("leaf %d is referenced %d times", i, refs)
		}
	}
	if v.err != nil {
		return
	}

	// With single references and N-1 internal nodes every node must be
	// reachable from the root unless the links form a cycle.
	for i, d := range h.LeafDepths() {
		if d < 0 {
			v.addf("leaf %d is not reachable from the root", i)
		}
		if v.full() {
			return
		}
	}
}

// Every internal AABB must equal the union of its children and the root
// must enclose every leaf.
func validateAABBs(h *Hierarchy, v *violations) {
	childAABB := func(nodeType, index uint32) scene.AABB {
		if nodeType == scene.NodeTypeLeaf {
			return h.TriangleAABBs[index]
		}
		return h.NodeAABBs[index]
	}

	for i, node := range h.InternalNodes {
		exp := childAABB(node.LeftNodeType, node.LeftNode).Union(childAABB(node.RightNodeType, node.RightNode))
		if h.NodeAABBs[i] != exp {
			v.addf("internal node %d AABB [%v, %v] differs from its children union [%v, %v]", i, h.NodeAABBs[i].Min, h.NodeAABBs[i].Max, exp.Min, exp.Max)
		}
		if v.full() {
			return
		}
	}

	root := h.Bounds()
	for i, aabb := range h.TriangleAABBs {
		if !root.Contains(aabb) {
			v.addf("root AABB does not contain triangle AABB %d", i)
		}
		if v.full() {
			return
		}
	}
}
