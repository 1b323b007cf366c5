package device

import (
	"fmt"
	"runtime"

	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	// ErrOutOfMemory is returned when a buffer allocation would exceed the
	// device memory limit.
	ErrOutOfMemory = errors.New("device out of memory")

	// ErrInvalidWorkSize is returned when a kernel is dispatched with a bad
	// offset or work size.
	ErrInvalidWorkSize = errors.New("invalid work size")
)

// A compute device that executes kernels as parallel work groups on the
// host CPU cores.
type Device struct {
	Name string

	// Max number of work groups that may run concurrently.
	Workers int

	// Memory limit in bytes; 0 disables the limit.
	MaxMemory uint64

	// Bytes currently held by allocated buffers.
	allocated atomic.Uint64

	logger log.Logger
}

// Create a new device. If workers is <= 0 the device uses one worker per
// logical CPU.
func New(name string, workers int, maxMemory uint64) *Device {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Device{
		Name:      name,
		Workers:   workers,
		MaxMemory: maxMemory,
		logger:    log.New(fmt.Sprintf("device (%s)", name)),
	}
}

// Implements Stringer.
func (d *Device) String() string {
	limit := "unlimited"
	if d.MaxMemory > 0 {
		limit = fmt.Sprintf("%d bytes", d.MaxMemory)
	}
	return fmt.Sprintf("Name: %s\nWorkers: %d\nMemory limit: %s", d.Name, d.Workers, limit)
}

// Get the number of bytes held by allocated buffers.
func (d *Device) Allocated() uint64 {
	return d.allocated.Load()
}

// Create a kernel that runs fn once per work group.
func (d *Device) Kernel(name string, fn KernelFunc) *Kernel {
	return &Kernel{
		device: d,
		name:   name,
		fn:     fn,
	}
}

// Reserve size bytes of device memory.
func (d *Device) reserve(bufName string, size uint64) error {
	for {
		cur := d.allocated.Load()
		if d.MaxMemory > 0 && cur+size > d.MaxMemory {
			return errors.Wrapf(
				ErrOutOfMemory,
				"device (%s): could not allocate buffer %s of size %d (%d of %d bytes in use)",
				d.Name, bufName, size, cur, d.MaxMemory,
			)
		}
		if d.allocated.CompareAndSwap(cur, cur+size) {
			return nil
		}
	}
}

// Return size bytes of device memory.
func (d *Device) free(size uint64) {
	d.allocated.Sub(size)
}
