package device

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host hardware details used to size and describe a CPU device.
type Info struct {
	Model         string
	PhysicalCores int
	LogicalCores  int
	ClockMhz      float64
	TotalMemory   uint64

	// Speed estimate in GFlops.
	Speed float64
}

// Implements Stringer.
func (i Info) String() string {
	return fmt.Sprintf(
		"Name: %s\nType: CPU\nSpecs: %d cores (%d logical), %.0f Mhz clock, %.1f GFlops approximate speed\nMemory: %d bytes",
		i.Model,
		i.PhysicalCores,
		i.LogicalCores,
		i.ClockMhz,
		i.Speed,
		i.TotalMemory,
	)
}

// Probe the host CPU.
func Probe() (Info, error) {
	info := Info{
		Model:        "CPU",
		LogicalCores: runtime.NumCPU(),
	}

	cpuInfo, err := cpu.Info()
	if err != nil {
		return info, errors.Wrap(err, "device: could not query cpu info")
	}
	if len(cpuInfo) > 0 {
		info.Model = cpuInfo[0].ModelName
		info.ClockMhz = cpuInfo[0].Mhz
	}

	if physical, err := cpu.Counts(false); err == nil && physical > 0 {
		info.PhysicalCores = physical
	}
	if logical, err := cpu.Counts(true); err == nil && logical > 0 {
		info.LogicalCores = logical
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
	}

	// Calculate theoretical device speed as: compute units * 2ops/cycle * clock speed
	info.Speed = float64(info.LogicalCores) * 2 * info.ClockMhz / 1000
	return info, nil
}

// Create a device backed by the host CPU. Probe failures are not fatal; the
// device falls back to a generic name.
func NewCPUDevice(workers int, maxMemory uint64) *Device {
	name := "CPU"
	if info, err := Probe(); err == nil && info.Model != "" {
		name = info.Model
	}
	return New(name, workers, maxMemory)
}
