package device

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// The range of global work item ids [Start, End) assigned to a work group.
type WorkGroup struct {
	ID    int
	Start int
	End   int
}

// Get the number of work items in the group.
func (wg WorkGroup) Size() int {
	return wg.End - wg.Start
}

// A kernel body; invoked once per work group.
type KernelFunc func(ctx context.Context, wg WorkGroup) error

// A kernel bound to a device.
type Kernel struct {
	device *Device
	name   string
	fn     KernelFunc
}

// Get kernel name.
func (k *Kernel) Name() string {
	return k.name
}

// Execute 1D kernel over the global ids [offset, offset+globalWorkSize). If
// localWorkSize is equal to 0 then the device picks a work group size that
// spreads the work evenly across its workers. Exec1D blocks until every work
// group has completed; the first work group error cancels the remaining
// groups and is returned.
func (k *Kernel) Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	return k.Exec1DContext(context.Background(), offset, globalWorkSize, localWorkSize)
}

// Execute 1D kernel with a context that can cancel pending work groups.
func (k *Kernel) Exec1DContext(ctx context.Context, offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	if offset < 0 || globalWorkSize < 0 || localWorkSize < 0 {
		return time.Duration(0), errors.Wrapf(
			ErrInvalidWorkSize,
			"device (%s): kernel %s (offset %d, global %d, local %d)",
			k.device.Name, k.name, offset, globalWorkSize, localWorkSize,
		)
	}

	tick := time.Now()
	if globalWorkSize == 0 {
		return time.Since(tick), nil
	}

	if localWorkSize == 0 {
		localWorkSize = k.device.pickLocalWorkSize(globalWorkSize)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(k.device.Workers)

	numGroups := (globalWorkSize + localWorkSize - 1) / localWorkSize
	for groupID := 0; groupID < numGroups; groupID++ {
		if groupCtx.Err() != nil {
			break
		}

		wg := WorkGroup{
			ID:    groupID,
			Start: offset + groupID*localWorkSize,
			End:   offset + min((groupID+1)*localWorkSize, globalWorkSize),
		}
		group.Go(func() error {
			return k.fn(groupCtx, wg)
		})
	}

	if err := group.Wait(); err != nil {
		return time.Duration(0), errors.Wrapf(err, "device (%s): kernel %s did not complete successfully", k.device.Name, k.name)
	}

	// A cancelled parent context may have skipped work groups without any
	// group reporting an error.
	if err := ctx.Err(); err != nil {
		return time.Duration(0), errors.Wrapf(err, "device (%s): kernel %s was cancelled", k.device.Name, k.name)
	}

	elapsed := time.Since(tick)
	k.device.logger.Debugf("kernel %s: %d work items in %d groups in %s", k.name, globalWorkSize, numGroups, elapsed)
	return elapsed, nil
}

// Pick a work group size that yields a few groups per worker.
func (d *Device) pickLocalWorkSize(globalWorkSize int) int {
	const groupsPerWorker = 4
	size := globalWorkSize / (d.Workers * groupsPerWorker)
	if size < 1 {
		size = 1
	}
	return size
}
