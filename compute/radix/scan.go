package radix

import (
	"context"

	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/pkg/errors"
)

// ExclusiveScan writes the exclusive prefix sum of in to out and returns the
// sum of all elements. in and out may alias. The scan runs in three device
// stages: a per-block reduction, a scan of the block sums (recursive when
// there is more than one block) and a per-block propagation pass. Block
// sizes below 2 are raised to 2 so the recursion always shrinks.
func ExclusiveScan(dev *device.Device, in, out []uint32, blockSize int) (uint32, error) {
	if len(in) != len(out) {
		return 0, errors.Errorf("radix: scan input length %d does not match output length %d", len(in), len(out))
	}
	if blockSize <= 0 {
		return 0, errors.Errorf("radix: invalid scan block size %d", blockSize)
	}

	if blockSize < 2 {
		blockSize = 2
	}

	n := len(in)
	if n == 0 {
		return 0, nil
	}

	numBlocks := (n + blockSize - 1) / blockSize

	blockSums := device.NewBuffer[uint32](dev, "scanBlockSums")
	defer blockSums.Release()
	if err := blockSums.Allocate(numBlocks); err != nil {
		return 0, err
	}
	sums := blockSums.Data()

	reduce := dev.Kernel("scanReduce", func(_ context.Context, wg device.WorkGroup) error {
		var sum uint32
		for i := wg.Start; i < wg.End; i++ {
			sum += in[i]
		}
		sums[wg.ID] = sum
		return nil
	})
	if _, err := reduce.Exec1D(0, n, blockSize); err != nil {
		return 0, err
	}

	// Scan the block sums into per-block offsets
	blockOffsets := device.NewBuffer[uint32](dev, "scanBlockOffsets")
	defer blockOffsets.Release()
	if err := blockOffsets.Allocate(numBlocks); err != nil {
		return 0, err
	}
	offsets := blockOffsets.Data()

	var total uint32
	if numBlocks == 1 {
		total = sums[0]
	} else {
		var err error
		if total, err = ExclusiveScan(dev, sums, offsets, blockSize); err != nil {
			return 0, err
		}
	}

	propagate := dev.Kernel("scanPropagate", func(_ context.Context, wg device.WorkGroup) error {
		running := offsets[wg.ID]
		for i := wg.Start; i < wg.End; i++ {
			v := in[i]
			out[i] = running
			running += v
		}
		return nil
	})
	if _, err := propagate.Exec1D(0, n, blockSize); err != nil {
		return 0, err
	}

	return total, nil
}
