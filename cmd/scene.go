package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/achilleasa/polaris-lbvh/asset/compiler"
	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/asset/scene/reader"
	"github.com/achilleasa/polaris-lbvh/asset/scene/writer"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/config"
	"github.com/urfave/cli"
)

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file(s)")
	}
	dev := newDevice(cfg.Build)

	// Merge all inputs into a single scene
	if out := ctx.String("out"); out != "" {
		mesh, err := reader.ReadMesh(ctx.Args()...)
		if err != nil {
			return err
		}
		return compileMesh(dev, mesh, cfg.Build, out)
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		mesh, err := reader.ReadMesh(sceneFile)
		if err != nil {
			return err
		}

		if err = compileMesh(dev, mesh, cfg.Build, zipFilename(sceneFile)); err != nil {
			return err
		}
	}

	return nil
}

// Compile a mesh and write the resulting scene to a zip file.
func compileMesh(dev *device.Device, mesh *input.Mesh, cfg config.Build, zipFile string) error {
	sc, stats, err := compiler.Compile(dev, mesh, cfg)
	if err != nil {
		return err
	}

	// Display build and compiled scene info
	logger.Noticef("build statistics:\n%s", stats.Table())
	logger.Noticef("scene information:\n%s", sc.Stats())

	return writer.WriteScene(sc, zipFile)
}

// Get the compiled scene filename for a scene source file.
func zipFilename(sceneFile string) string {
	return strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".zip"
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	if _, err := loadConfig(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only compiled scene files with a .zip extension are supported")
	}

	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene %s information:\n%s", sc.BuildID, sc.Stats())
	logger.Noticef("materials: %s", strings.Join(sc.MaterialNames, ", "))

	return nil
}
