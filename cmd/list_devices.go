package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/urfave/cli"
)

// List available compute devices.
func ListDevices(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	info, err := device.Probe()
	if err != nil {
		logger.Warningf("could not probe host: %v", err)
	}
	dev := device.New(info.Model, cfg.Build.Workers, cfg.Build.MaxMemory)

	var storage []byte
	buf := bytes.NewBuffer(storage)
	buf.WriteString("\nSystem provides 1 compute device(s):\n\n")
	buf.WriteString(fmt.Sprintf("[Device 00]\n%s\nWorkers: %d\n\n", info, dev.Workers))

	logger.Notice(buf.String())
	return nil
}
