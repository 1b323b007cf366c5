package lbvh

import (
	"time"

	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/compute/radix"
	"github.com/achilleasa/polaris-lbvh/config"
	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

type builder struct {
	dev    *device.Device
	mesh   *input.Mesh
	cfg    config.Build
	logger log.Logger

	n           int
	sceneBounds scene.AABB

	// Device buffers; released when the build completes.
	keys            *device.Buffer[uint32]
	indices         *device.Buffer[uint32]
	aabbs           *device.Buffer[scene.AABB]
	triangles       *device.Buffer[scene.Triangle]
	sortedAABBs     *device.Buffer[scene.AABB]
	sortedTriangles *device.Buffer[scene.Triangle]
	sortedMaterials *device.Buffer[uint32]
	sortedShadow    *device.Buffer[scene.ShadowFlags]
	internalNodes   *device.Buffer[scene.InternalNode]
	leafNodes       *device.Buffer[scene.LeafNode]
	nodeAABBs       *device.Buffer[scene.AABB]

	// Sorted keys before compaction.
	rawKeys []uint32

	stats Stats
}

// Build a linear BVH for the triangles of mesh. The build runs as a
// sequence of device stages (bounds and keys, sort, key compaction, gather,
// construction and AABB propagation); each stage completes before the next
// one starts. Any stage failure aborts the build and no hierarchy is
// returned.
func Build(dev *device.Device, mesh *input.Mesh, cfg config.Build) (*Hierarchy, error) {
	if err := scene.CheckLayout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := mesh.Check(); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	if mesh.TriangleCount() == 0 {
		return nil, errors.Wrapf(ErrEmptyMesh, "mesh (%s)", mesh.Name)
	}

	b := &builder{
		dev:         dev,
		mesh:        mesh,
		cfg:         cfg,
		logger:      log.New("lbvh builder"),
		n:           mesh.TriangleCount(),
		sceneBounds: scene.NewAABB(cfg.SceneBounds.Min, cfg.SceneBounds.Max),
	}
	defer b.release()

	start := time.Now()
	b.logger.Noticef("building BVH for %d triangles", b.n)

	stages := []struct {
		name string
		fn   func() error
	}{
		{"bounds", b.computeBounds},
		{"sort", b.sortKeys},
		{"compact", b.compactKeys},
		{"gather", b.gather},
		{"construct", b.construct},
		{"propagate", b.propagate},
	}
	for _, stage := range stages {
		tick := time.Now()
		b.logger.Debugf("stage %s: started", stage.name)
		if err := stage.fn(); err != nil {
			return nil, errors.Wrapf(err, "lbvh: stage %s", stage.name)
		}
		elapsed := time.Since(tick)
		b.stats.addStage(stage.name, elapsed)
		b.logger.Debugf("stage %s: completed in %d ms", stage.name, elapsed.Milliseconds())
	}

	h, err := b.readBack()
	if err != nil {
		return nil, err
	}

	if cfg.ValidateOutput {
		tick := time.Now()
		if err = Validate(h); err != nil {
			return nil, err
		}
		b.stats.addStage("validate", time.Since(tick))
	}

	b.stats.collectShape(h)
	h.Stats = b.stats

	b.logger.Noticef("built BVH (%d internal nodes, max leaf depth %d) in %d ms", len(h.InternalNodes), h.Stats.MaxLeafDepth, time.Since(start).Nanoseconds()/1e6)
	return h, nil
}

// Allocate a named device buffer.
func allocate[T any](dev *device.Device, name string, count int) (*device.Buffer[T], error) {
	buf := device.NewBuffer[T](dev, name)
	if err := buf.Allocate(count); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *builder) computeBounds() (err error) {
	if b.aabbs, err = allocate[scene.AABB](b.dev, "triangleAABBs", b.n); err != nil {
		return err
	}
	if b.triangles, err = allocate[scene.Triangle](b.dev, "triangles", b.n); err != nil {
		return err
	}
	if b.keys, err = allocate[uint32](b.dev, "mortonKeys", b.n); err != nil {
		return err
	}
	if b.indices, err = allocate[uint32](b.dev, "triangleIndices", b.n); err != nil {
		return err
	}

	kernel := boundsKernel(b.dev, b.mesh, b.sceneBounds, b.cfg.AABBEpsilon, b.aabbs.Data(), b.keys.Data(), b.indices.Data(), b.triangles.Data())
	_, err = kernel.Exec1D(0, b.n, 0)
	return err
}

func (b *builder) sortKeys() error {
	sorter := &radix.Sorter{
		Device:    b.dev,
		Radix:     b.cfg.Radix,
		BlockSize: b.cfg.BlockSize,
	}
	if err := sorter.Sort(b.keys.Data(), b.indices.Data()); err != nil {
		return err
	}

	b.rawKeys = make([]uint32, b.n)
	return b.keys.ReadData(0, 0, 0, b.rawKeys)
}

func (b *builder) compactKeys() error {
	return DistributeKeys(b.keys.Data())
}

func (b *builder) gather() (err error) {
	if b.sortedAABBs, err = allocate[scene.AABB](b.dev, "sortedTriangleAABBs", b.n); err != nil {
		return err
	}
	if b.sortedTriangles, err = allocate[scene.Triangle](b.dev, "sortedTriangles", b.n); err != nil {
		return err
	}
	if b.sortedMaterials, err = allocate[uint32](b.dev, "sortedMaterialIndices", b.n); err != nil {
		return err
	}
	if b.sortedShadow, err = allocate[scene.ShadowFlags](b.dev, "sortedShadowFlags", b.n); err != nil {
		return err
	}

	kernel := gatherKernel(
		b.dev, b.mesh, b.indices.Data(),
		b.aabbs.Data(), b.triangles.Data(),
		b.sortedAABBs.Data(), b.sortedTriangles.Data(), b.sortedMaterials.Data(), b.sortedShadow.Data(),
	)
	if _, err = kernel.Exec1D(0, b.n, 0); err != nil {
		return err
	}

	// The unsorted copies are no longer needed
	b.aabbs.Release()
	b.triangles.Release()
	return nil
}

func (b *builder) construct() (err error) {
	if b.internalNodes, err = allocate[scene.InternalNode](b.dev, "internalNodes", b.n-1); err != nil {
		return err
	}
	if b.leafNodes, err = allocate[scene.LeafNode](b.dev, "leafNodes", b.n); err != nil {
		return err
	}
	b.internalNodes.Fill(scene.NullInternalNode)

	keys := b.keys.Data()
	if _, err = uniqueKeysKernel(b.dev, keys).Exec1D(1, b.n-1, 0); err != nil {
		return err
	}
	if _, err = leafInitKernel(b.dev, b.leafNodes.Data()).Exec1D(0, b.n, 0); err != nil {
		return err
	}

	_, err = constructKernel(b.dev, keys, b.internalNodes.Data(), b.leafNodes.Data()).Exec1D(0, b.n-1, 0)
	return err
}

func (b *builder) propagate() (err error) {
	if b.nodeAABBs, err = allocate[scene.AABB](b.dev, "nodeAABBs", b.n-1); err != nil {
		return err
	}
	if b.n == 1 {
		return nil
	}

	arrivals := make([]atomic.Uint32, b.n-1)
	kernel := propagateKernel(b.dev, b.internalNodes.Data(), b.leafNodes.Data(), b.sortedAABBs.Data(), b.nodeAABBs.Data(), arrivals)
	_, err = kernel.Exec1D(0, b.n, 0)
	return err
}

// Copy the build results from the device buffers into a Hierarchy.
func (b *builder) readBack() (*Hierarchy, error) {
	h := &Hierarchy{
		BuildID:         uuid.New(),
		SceneBounds:     b.sceneBounds,
		SortedIndices:   make([]uint32, b.n),
		RawKeys:         b.rawKeys,
		MortonKeys:      make([]uint32, b.n),
		TriangleAABBs:   make([]scene.AABB, b.n),
		Triangles:       make([]scene.Triangle, b.n),
		MaterialIndices: make([]uint32, b.n),
		ShadowFlags:     make([]scene.ShadowFlags, b.n),
		InternalNodes:   make([]scene.InternalNode, b.n-1),
		LeafNodes:       make([]scene.LeafNode, b.n),
		NodeAABBs:       make([]scene.AABB, b.n-1),
	}

	readers := []func() error{
		func() error { return b.indices.ReadData(0, 0, 0, h.SortedIndices) },
		func() error { return b.keys.ReadData(0, 0, 0, h.MortonKeys) },
		func() error { return b.sortedAABBs.ReadData(0, 0, 0, h.TriangleAABBs) },
		func() error { return b.sortedTriangles.ReadData(0, 0, 0, h.Triangles) },
		func() error { return b.sortedMaterials.ReadData(0, 0, 0, h.MaterialIndices) },
		func() error { return b.sortedShadow.ReadData(0, 0, 0, h.ShadowFlags) },
		func() error { return b.leafNodes.ReadData(0, 0, 0, h.LeafNodes) },
	}
	if b.n > 1 {
		readers = append(readers,
			func() error { return b.internalNodes.ReadData(0, 0, 0, h.InternalNodes) },
			func() error { return b.nodeAABBs.ReadData(0, 0, 0, h.NodeAABBs) },
		)
	}

	for _, read := range readers {
		if err := read(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Release all device buffers.
func (b *builder) release() {
	for _, buf := range []interface{ Release() }{
		b.keys, b.indices, b.aabbs, b.triangles,
		b.sortedAABBs, b.sortedTriangles, b.sortedMaterials, b.sortedShadow,
		b.internalNodes, b.leafNodes, b.nodeAABBs,
	} {
		buf.Release()
	}
}
