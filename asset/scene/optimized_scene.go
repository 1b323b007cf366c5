package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

var (
	// ErrMaterialCount is returned when a material update does not supply
	// one index per triangle.
	ErrMaterialCount = errors.New("material index count mismatch")

	// ErrBrokenTree is returned by Traverse when a node references an
	// out-of-range child.
	ErrBrokenTree = errors.New("broken hierarchy")
)

// A compiled scene: the packed buffers produced by the LBVH builder. All
// per-triangle buffers are in sorted (Morton) order.
type Scene struct {
	// Unique id of the build that produced the scene.
	BuildID uuid.UUID

	// The fixed bound used for Morton quantization.
	SceneBounds AABB

	// Morton keys after compaction.
	MortonKeys []uint32

	// Original triangle index for each sorted position.
	TriangleIndices []uint32

	// Triangle data and per-triangle AABBs in sorted order.
	Triangles     []Triangle
	TriangleAABBs []AABB

	// BVH nodes; NodeAABBs is indexed by internal node index.
	InternalNodes []InternalNode
	LeafNodes     []LeafNode
	NodeAABBs     []AABB

	// Per-triangle attributes in sorted order.
	MaterialIndices []uint32
	ShadowFlags     []ShadowFlags

	// Material names referenced by MaterialIndices.
	MaterialNames []string
}

// Get the number of triangles in the scene.
func (sc *Scene) TriangleCount() int {
	return len(sc.Triangles)
}

// Update per-triangle material indices without rebuilding the hierarchy.
// Indices are given in the original triangle order.
func (sc *Scene) UpdateMaterials(materialIndices []uint32) error {
	if len(materialIndices) != len(sc.TriangleIndices) {
		return errors.Wrapf(ErrMaterialCount, "got %d indices for %d triangles", len(materialIndices), len(sc.TriangleIndices))
	}

	for sortedIndex, origIndex := range sc.TriangleIndices {
		if int(origIndex) >= len(materialIndices) {
			return errors.Wrapf(ErrBrokenTree, "sorted triangle %d references original triangle %d", sortedIndex, origIndex)
		}
		matIndex := materialIndices[origIndex]
		sc.MaterialIndices[sortedIndex] = matIndex
		sc.Triangles[sortedIndex].MaterialIndex = matIndex
	}

	return nil
}

// A visitor invoked for every node reached by Traverse. nodeType is either
// NodeTypeInternal or NodeTypeLeaf and depth is 0 for the root. Returning
// false skips the children of an internal node.
type VisitFunc func(nodeType, index uint32, depth int) bool

// Walk the hierarchy depth-first from the root, left child first.
func (sc *Scene) Traverse(visit VisitFunc) error {
	if len(sc.LeafNodes) == 0 {
		return nil
	}

	type stackEntry struct {
		nodeType, index uint32
		depth           int
	}

	root := stackEntry{nodeType: NodeTypeInternal}
	if len(sc.InternalNodes) == 0 {
		root.nodeType = NodeTypeLeaf
	}

	stack := []stackEntry{root}
	visited := 0
	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > len(sc.InternalNodes)+len(sc.LeafNodes) {
			return errors.Wrap(ErrBrokenTree, "traversal visited more nodes than the hierarchy contains")
		}

		switch entry.nodeType {
		case NodeTypeLeaf:
			if int(entry.index) >= len(sc.LeafNodes) {
				return errors.Wrapf(ErrBrokenTree, "leaf index %d out of range", entry.index)
			}
			visit(NodeTypeLeaf, entry.index, entry.depth)
		case NodeTypeInternal:
			if int(entry.index) >= len(sc.InternalNodes) {
				return errors.Wrapf(ErrBrokenTree, "internal node index %d out of range", entry.index)
			}
			if !visit(NodeTypeInternal, entry.index, entry.depth) {
				continue
			}
			node := sc.InternalNodes[entry.index]
			stack = append(stack,
				stackEntry{node.RightNodeType, node.RightNode, entry.depth + 1},
				stackEntry{node.LeftNodeType, node.LeftNode, entry.depth + 1},
			)
		default:
			return errors.Wrapf(ErrBrokenTree, "unknown node type %d", entry.nodeType)
		}
	}

	return nil
}

// Get the AABB of a node.
func (sc *Scene) NodeAABB(nodeType, index uint32) AABB {
	if nodeType == NodeTypeLeaf {
		return sc.TriangleAABBs[index]
	}
	return sc.NodeAABBs[index]
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Geometry", "---", fmtSize(sc.Triangles, sc.TriangleAABBs, sc.TriangleIndices, sc.MortonKeys)})
	table.Append([]string{"", fmt.Sprintf("Triangles (%d)", len(sc.Triangles)), fmtSize(sc.Triangles)})
	table.Append([]string{"", "Triangle AABBs", fmtSize(sc.TriangleAABBs)})
	table.Append([]string{"", "Triangle indices", fmtSize(sc.TriangleIndices)})
	table.Append([]string{"", "Morton keys", fmtSize(sc.MortonKeys)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"BVH", "---", fmtSize(sc.InternalNodes, sc.LeafNodes, sc.NodeAABBs)})
	table.Append([]string{"", fmt.Sprintf("Internal nodes (%d)", len(sc.InternalNodes)), fmtSize(sc.InternalNodes)})
	table.Append([]string{"", fmt.Sprintf("Leaf nodes (%d)", len(sc.LeafNodes)), fmtSize(sc.LeafNodes)})
	table.Append([]string{"", "Node AABBs", fmtSize(sc.NodeAABBs)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Attributes", "---", fmtSize(sc.MaterialIndices, sc.ShadowFlags)})
	table.Append([]string{"", "Mat. indices", fmtSize(sc.MaterialIndices)})
	table.Append([]string{"", "Shadow flags", fmtSize(sc.ShadowFlags)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.Triangles, sc.TriangleAABBs, sc.TriangleIndices, sc.MortonKeys, sc.InternalNodes, sc.LeafNodes, sc.NodeAABBs, sc.MaterialIndices, sc.ShadowFlags), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
