package scene

import (
	"unsafe"

	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/pkg/errors"
)

// ErrLayoutMismatch is returned when a packed structure does not have the
// size expected by the traversal kernels.
var ErrLayoutMismatch = errors.New("packed layout size mismatch")

// Sentinel for unset node indices and the root parent.
const NullIndex uint32 = 0xFFFFFFFF

// Node type discriminants stored in InternalNode child type fields.
const (
	NodeTypeInternal uint32 = 0
	NodeTypeLeaf     uint32 = 1
)

// Expected sizes of the packed structures.
const (
	AABBSize         = 32
	TriangleSize     = 192
	LeafNodeSize     = 8
	InternalNodeSize = 24
	ShadowFlagsSize  = 8
)

// An axis aligned bounding box. Each corner is padded to 16 bytes.
type AABB struct {
	Min types.Vec3
	_   float32
	Max types.Vec3
	_   float32
}

// Create an AABB from its corners.
func NewAABB(min, max types.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Check that min <= max on every axis.
func (b AABB) IsValid() bool {
	return types.LessEqualVec3(b.Min, b.Max)
}

// Get the smallest box enclosing both boxes.
func (b AABB) Union(other AABB) AABB {
	return AABB{
		Min: types.MinVec3(b.Min, other.Min),
		Max: types.MaxVec3(b.Max, other.Max),
	}
}

// Check whether other lies inside b.
func (b AABB) Contains(other AABB) bool {
	return types.LessEqualVec3(b.Min, other.Min) && types.LessEqualVec3(other.Max, b.Max)
}

// Get box center.
func (b AABB) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// A triangle record as consumed by the traversal kernel. Vec3 values are
// padded to 16 bytes.
type Triangle struct {
	Point0 types.Vec3
	_      float32
	Point1 types.Vec3
	_      float32
	Point2 types.Vec3
	_      float32

	UV0 types.Vec2
	UV1 types.Vec2
	UV2 types.Vec2
	_   types.Vec2

	Normal0 types.Vec3
	_       float32
	Normal1 types.Vec3
	_       float32
	Normal2 types.Vec3
	_       float32

	Tangent0 types.Vec3
	_        float32
	Tangent1 types.Vec3
	_        float32
	Tangent2 types.Vec3
	_        float32

	MaterialIndex uint32
	_             [3]float32
}

// Get the triangle points.
func (t *Triangle) Points() [3]types.Vec3 {
	return [3]types.Vec3{t.Point0, t.Point1, t.Point2}
}

// A BVH leaf referencing a triangle by its sorted position.
type LeafNode struct {
	Parent uint32
	Index  uint32
}

// A BVH internal node. Child type fields hold NodeTypeInternal or
// NodeTypeLeaf and select the array the matching child index refers to.
type InternalNode struct {
	LeftNode      uint32
	LeftNodeType  uint32
	RightNode     uint32
	RightNodeType uint32
	Parent        uint32
	Index         uint32
}

// Per-triangle shadow flags; a non-zero value enables the property.
type ShadowFlags struct {
	Cast    uint32
	Receive uint32
}

// Flags for triangles that both cast and receive shadows.
var DefaultShadowFlags = ShadowFlags{Cast: 1, Receive: 1}

// The null records used to initialize unused buffer slots.
var (
	NullLeafNode     = LeafNode{Parent: NullIndex, Index: NullIndex}
	NullInternalNode = InternalNode{
		LeftNode:      NullIndex,
		LeftNodeType:  NullIndex,
		RightNode:     NullIndex,
		RightNodeType: NullIndex,
		Parent:        NullIndex,
		Index:         NullIndex,
	}
)

// Verify that the packed structures match the sizes expected by the
// traversal kernels.
func CheckLayout() error {
	specs := []struct {
		name     string
		got, exp uintptr
	}{
		{"AABB", unsafe.Sizeof(AABB{}), AABBSize},
		{"Triangle", unsafe.Sizeof(Triangle{}), TriangleSize},
		{"LeafNode", unsafe.Sizeof(LeafNode{}), LeafNodeSize},
		{"InternalNode", unsafe.Sizeof(InternalNode{}), InternalNodeSize},
		{"ShadowFlags", unsafe.Sizeof(ShadowFlags{}), ShadowFlagsSize},
	}

	for _, spec := range specs {
		if spec.got != spec.exp {
			return errors.Wrapf(ErrLayoutMismatch, "%s struct size = %d, not %d", spec.name, spec.got, spec.exp)
		}
	}
	return nil
}
