package radix

import (
	"context"
	"math/bits"

	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned when the sorter settings or its arguments
// are not usable.
var ErrInvalidConfig = errors.New("invalid radix sort configuration")

const keyBits = 32

// A parallel LSD radix sorter for 32-bit keys with a 32-bit payload.
type Sorter struct {
	Device *device.Device

	// Number of buckets per pass; a power of two in [2, 65536].
	Radix int

	// Number of elements processed by a single work group.
	BlockSize int
}

// Get the number of bits consumed per pass.
func (s *Sorter) BitsPerPass() int {
	return bits.TrailingZeros(uint(s.Radix))
}

// Get the number of passes required to sort 32-bit keys.
func (s *Sorter) Passes() int {
	b := s.BitsPerPass()
	return (keyBits + b - 1) / b
}

func (s *Sorter) validate(keys, payload []uint32) error {
	switch {
	case s.Device == nil:
		return errors.Wrap(ErrInvalidConfig, "radix: no device")
	case s.Radix < 2 || s.Radix > 65536 || bits.OnesCount(uint(s.Radix)) != 1:
		return errors.Wrapf(ErrInvalidConfig, "radix: radix must be a power of two in [2, 65536]; got %d", s.Radix)
	case s.BlockSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "radix: block size must be positive; got %d", s.BlockSize)
	case len(keys) != len(payload):
		return errors.Wrapf(ErrInvalidConfig, "radix: key count %d does not match payload count %d", len(keys), len(payload))
	case uint64(len(keys)) > uint64(^uint32(0)):
		return errors.Wrapf(ErrInvalidConfig, "radix: too many keys (%d)", len(keys))
	}
	return nil
}

// Sort keys in ascending order, applying the same permutation to payload.
// The sort is stable. Both slices are updated in place.
func (s *Sorter) Sort(keys, payload []uint32) (err error) {
	if err = s.validate(keys, payload); err != nil {
		return err
	}

	n := len(keys)
	if n < 2 {
		return nil
	}

	var (
		radix     = s.Radix
		bitCount  = s.BitsPerPass()
		mask      = uint32(radix - 1)
		numBlocks = (n + s.BlockSize - 1) / s.BlockSize
		dev       = s.Device
	)

	// Allocate device buffers
	srcKeys := device.NewBuffer[uint32](dev, "radixKeys")
	srcPayload := device.NewBuffer[uint32](dev, "radixPayload")
	dstKeys := device.NewBuffer[uint32](dev, "radixKeysAlt")
	dstPayload := device.NewBuffer[uint32](dev, "radixPayloadAlt")
	localKeys := device.NewBuffer[uint32](dev, "radixLocalKeys")
	localPayload := device.NewBuffer[uint32](dev, "radixLocalPayload")
	histogram := device.NewBuffer[uint32](dev, "radixHistogram")
	globalOffsets := device.NewBuffer[uint32](dev, "radixGlobalOffsets")
	localOffsets := device.NewBuffer[uint32](dev, "radixLocalOffsets")
	buffers := []interface{ Release() }{
		srcKeys, srcPayload, dstKeys, dstPayload, localKeys, localPayload,
		histogram, globalOffsets, localOffsets,
	}
	defer func() {
		for _, buf := range buffers {
			buf.Release()
		}
	}()

	if err = srcKeys.AllocateAndWriteData(keys); err != nil {
		return err
	}
	if err = srcPayload.AllocateAndWriteData(payload); err != nil {
		return err
	}
	for _, buf := range []*device.Buffer[uint32]{dstKeys, dstPayload, localKeys, localPayload} {
		if err = buf.Allocate(n); err != nil {
			return err
		}
	}
	for _, buf := range []*device.Buffer[uint32]{histogram, globalOffsets, localOffsets} {
		if err = buf.Allocate(radix * numBlocks); err != nil {
			return err
		}
	}

	var (
		shift                 uint
		inKeys, inPayload     []uint32
		outKeys, outPayload   []uint32
		lKeys, lPayload       = localKeys.Data(), localPayload.Data()
		hist, global, lOffset = histogram.Data(), globalOffsets.Data(), localOffsets.Data()
	)

	// Count the digits of every block. The table is digit-major so that an
	// exclusive scan over it yields the global destination of each
	// (digit, block) run.
	histKernel := dev.Kernel("radixHistogram", func(_ context.Context, wg device.WorkGroup) error {
		for d := 0; d < radix; d++ {
			hist[d*numBlocks+wg.ID] = 0
		}
		for i := wg.Start; i < wg.End; i++ {
			hist[int((inKeys[i]>>shift)&mask)*numBlocks+wg.ID]++
		}
		return nil
	})

	// Stable partition of each block by digit. The block's offset row is
	// used as the write cursor so it ends up holding the end offset of every
	// digit run.
	partitionKernel := dev.Kernel("radixPartition", func(_ context.Context, wg device.WorkGroup) error {
		cursor := lOffset[wg.ID*radix : (wg.ID+1)*radix]
		var running uint32
		for d := 0; d < radix; d++ {
			cursor[d] = running
			running += hist[d*numBlocks+wg.ID]
		}

		for i := wg.Start; i < wg.End; i++ {
			d := (inKeys[i] >> shift) & mask
			dst := wg.Start + int(cursor[d])
			cursor[d]++
			lKeys[dst] = inKeys[i]
			lPayload[dst] = inPayload[i]
		}
		return nil
	})

	// Move every element of a block to its global position.
	scatterKernel := dev.Kernel("radixScatter", func(_ context.Context, wg device.WorkGroup) error {
		ends := lOffset[wg.ID*radix : (wg.ID+1)*radix]
		for i := wg.Start; i < wg.End; i++ {
			d := (lKeys[i] >> shift) & mask
			slot := int(d)*numBlocks + wg.ID
			localPos := uint32(i - wg.Start)
			dst := global[slot] + (localPos - (ends[d] - hist[slot]))
			outKeys[dst] = lKeys[i]
			outPayload[dst] = lPayload[i]
		}
		return nil
	})

	inKeys, inPayload = srcKeys.Data(), srcPayload.Data()
	outKeys, outPayload = dstKeys.Data(), dstPayload.Data()
	passes := s.Passes()
	for pass := 0; pass < passes; pass++ {
		shift = uint(pass * bitCount)

		if _, err = histKernel.Exec1D(0, n, s.BlockSize); err != nil {
			return errors.Wrapf(err, "radix: pass %d", pass)
		}
		if _, err = partitionKernel.Exec1D(0, n, s.BlockSize); err != nil {
			return errors.Wrapf(err, "radix: pass %d", pass)
		}
		if _, err = ExclusiveScan(dev, hist, global, s.BlockSize); err != nil {
			return errors.Wrapf(err, "radix: pass %d", pass)
		}
		if _, err = scatterKernel.Exec1D(0, n, s.BlockSize); err != nil {
			return errors.Wrapf(err, "radix: pass %d", pass)
		}

		inKeys, outKeys = outKeys, inKeys
		inPayload, outPayload = outPayload, inPayload
	}

	// After the final swap the sorted data lives in the input side of the
	// ping-pong pair.
	copy(keys, inKeys)
	copy(payload, inPayload)
	return nil
}
