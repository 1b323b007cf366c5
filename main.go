package main

import (
	"os"

	"github.com/achilleasa/polaris-lbvh/cmd"
	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-lbvh"
	app.Usage = "build linear bounding volume hierarchies for triangle scenes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load settings from a TOML configuration file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file, build a linear BVH over its
triangles using a parallel radix sort of their Morton codes and package the
scene buffers in a GPU-friendly format.

Each input is written to a zip archive next to it unless --out is specified,
in which case all inputs are merged into a single scene.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "merge all inputs into this compiled scene file",
				},
			}, cmd.BuildFlags...),
			Action: cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print information about a compiled scene",
			ArgsUsage: "scene.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "debug",
			Usage: "build a BVH and dump one of its intermediate buffers",
			Description: `
Supported modes:
  aabb    - per-triangle bounding boxes in sorted order
  morton  - raw and compacted Morton keys
  presort - raw Morton keys in input triangle order
  sort    - the sorted triangle permutation and per-triangle attributes
  bvh     - the node hierarchy up to --depth levels`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "mode, m",
					Value: cmd.DebugBVH,
					Usage: "debug view: aabb, morton, presort, sort or bvh",
				},
				cli.IntFlag{
					Name:  "depth, d",
					Value: 4,
					Usage: "max hierarchy depth for the bvh view (-1 = all)",
				},
				cli.IntFlag{
					Name:  "limit, l",
					Value: 64,
					Usage: "max rows for table views (0 = all)",
				},
			}, cmd.BuildFlags...),
			Action: cmd.Debug,
		},
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
		},
		{
			Name:      "watch",
			Usage:     "recompile a scene whenever its source files change",
			ArgsUsage: "scene.obj",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "compiled scene file (defaults to the scene name with a .zip extension)",
				},
			}, cmd.BuildFlags...),
			Action: cmd.WatchScene,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New(app.Name).Error(err)
		os.Exit(1)
	}
}
