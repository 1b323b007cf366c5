package compiler

import (
	"time"

	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/config"
	"github.com/achilleasa/polaris-lbvh/lbvh"
	"github.com/achilleasa/polaris-lbvh/log"
)

const (
	// Material name used for triangles that do not reference a material.
	DefaultMaterialName = "default"
)

type sceneCompiler struct {
	dev    *device.Device
	cfg    config.Build
	logger log.Logger
}

// Compile a mesh parsed by a mesh reader into an optimized scene. The
// returned stats describe the shape of the hierarchy and the time spent in
// each build stage.
func Compile(dev *device.Device, mesh *input.Mesh, cfg config.Build) (*scene.Scene, *lbvh.Stats, error) {
	compiler := &sceneCompiler{
		dev:    dev,
		cfg:    cfg,
		logger: log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene %q on %s", mesh.Name, dev)

	h, err := lbvh.Build(compiler.dev, mesh, compiler.cfg)
	if err != nil {
		return nil, nil, err
	}

	sc := h.Scene(compiler.materialNames(mesh))
	compiler.logger.Noticef(
		"compiled scene %s (%d triangles, %d materials) in %d ms",
		sc.BuildID, sc.TriangleCount(), len(sc.MaterialNames), time.Since(start).Nanoseconds()/1e6,
	)
	return sc, &h.Stats, nil
}

// Get the material name table for the compiled scene. Meshes without a
// material table get a single default material so that every triangle
// material index resolves to a name.
func (c *sceneCompiler) materialNames(mesh *input.Mesh) []string {
	names := append([]string(nil), mesh.Materials...)

	var maxIndex uint32
	for _, index := range mesh.MaterialIndices {
		if index > maxIndex {
			maxIndex = index
		}
	}

	if len(names) == 0 {
		names = append(names, DefaultMaterialName)
	}
	for len(names) <= int(maxIndex) {
		c.logger.Warningf("material index %d has no name; using %q", len(names), DefaultMaterialName)
		names = append(names, DefaultMaterialName)
	}
	return names
}
