package cmd

import (
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/config"
	"github.com/urfave/cli"
)

// Flags that override the build section of the configuration file.
var BuildFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "workers",
		Usage: "number of concurrent work groups (0 = one per logical CPU)",
	},
	cli.IntFlag{
		Name:  "radix",
		Value: config.DefaultRadix,
		Usage: "radix sort bucket count (power of two)",
	},
	cli.IntFlag{
		Name:  "block-size",
		Value: config.DefaultBlockSize,
		Usage: "work items per work group for the sort kernels",
	},
	cli.Uint64Flag{
		Name:  "max-memory",
		Usage: "device memory limit in bytes (0 = unlimited)",
	},
	cli.BoolFlag{
		Name:  "validate",
		Usage: "validate the hierarchy after building it",
	},
}

// Load the configuration file selected by the global --config flag, apply
// command line overrides and set up logging.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()

	var err error
	if path := ctx.GlobalString("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet("workers") {
		cfg.Build.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("radix") {
		cfg.Build.Radix = ctx.Int("radix")
	}
	if ctx.IsSet("block-size") {
		cfg.Build.BlockSize = ctx.Int("block-size")
	}
	if ctx.IsSet("max-memory") {
		cfg.Build.MaxMemory = ctx.Uint64("max-memory")
	}
	if ctx.Bool("validate") {
		cfg.Build.ValidateOutput = true
	}

	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, setupLogging(ctx, cfg.Log.Level)
}

// Create the compute device for a build configuration.
func newDevice(cfg config.Build) *device.Device {
	dev := device.NewCPUDevice(cfg.Workers, cfg.MaxMemory)
	logger.Infof("using device:\n%s", dev)
	return dev
}
