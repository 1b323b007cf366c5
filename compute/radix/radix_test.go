package radix

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/google/go-cmp/cmp"
)

func TestSortSmall(t *testing.T) {
	s := &Sorter{Device: device.New("test", 4, 0), Radix: 256, BlockSize: 4}

	keys := []uint32{53, 3, 542, 748, 14, 214}
	payload := []uint32{0, 1, 2, 3, 4, 5}
	if err := s.Sort(keys, payload); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]uint32{3, 14, 53, 214, 542, 748}, keys); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 4, 0, 5, 2, 3}, payload); diff != "" {
		t.Fatalf("unexpected payload (-want +got):\n%s", diff)
	}
}

func TestSortStableAcrossRadixes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	const n = 5000
	srcKeys := make([]uint32, n)
	for i := range srcKeys {
		// Narrow key range to produce plenty of duplicates
		srcKeys[i] = uint32(rng.Intn(300)) << uint(rng.Intn(24))
	}

	specs := []struct {
		radix, blockSize int
	}{
		{2, 1},
		{8, 37},
		{16, 256},
		{256, 1},
		{256, 37},
		{2048, 256},
		{65536, 1024},
	}

	for _, spec := range specs {
		radix, blockSize := spec.radix, spec.blockSize

		keys := append([]uint32(nil), srcKeys...)
		payload := make([]uint32, n)
		for i := range payload {
			payload[i] = uint32(i)
		}

		dev := device.New("test", 4, 0)
		s := &Sorter{Device: dev, Radix: radix, BlockSize: blockSize}
		if err := s.Sort(keys, payload); err != nil {
			t.Fatalf("[radix %d, block %d] %v", radix, blockSize, err)
		}

		expPayload := make([]uint32, n)
		for i := range expPayload {
			expPayload[i] = uint32(i)
		}
		sort.SliceStable(expPayload, func(a, b int) bool {
			return srcKeys[expPayload[a]] < srcKeys[expPayload[b]]
		})

		if diff := cmp.Diff(expPayload, payload); diff != "" {
			t.Fatalf("[radix %d, block %d] sort is not stable (-want +got):\n%s", radix, blockSize, diff)
		}
		for i, p := range payload {
			if keys[i] != srcKeys[p] {
				t.Fatalf("[radix %d, block %d] key %d does not match its payload", radix, blockSize, i)
			}
		}

		if dev.Allocated() != 0 {
			t.Fatalf("[radix %d, block %d] expected scratch buffers to be released; %d bytes still allocated", radix, blockSize, dev.Allocated())
		}
	}
}

func TestSortExtremeKeys(t *testing.T) {
	s := &Sorter{Device: device.New("test", 2, 0), Radix: 16, BlockSize: 3}

	keys := []uint32{0xFFFFFFFF, 0, 0x80000000, 0x7FFFFFFF, 1}
	payload := []uint32{0, 1, 2, 3, 4}
	if err := s.Sort(keys, payload); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]uint32{0, 1, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFF}, keys); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 4, 3, 2, 0}, payload); diff != "" {
		t.Fatalf("unexpected payload (-want +got):\n%s", diff)
	}
}

func TestSortConfigErrors(t *testing.T) {
	dev := device.New("test", 2, 0)

	specs := []struct {
		sorter  Sorter
		keys    []uint32
		payload []uint32
	}{
		{Sorter{Device: dev, Radix: 3, BlockSize: 4}, []uint32{1}, []uint32{1}},
		{Sorter{Device: dev, Radix: 1 << 17, BlockSize: 4}, []uint32{1}, []uint32{1}},
		{Sorter{Device: dev, Radix: 256, BlockSize: 0}, []uint32{1}, []uint32{1}},
		{Sorter{Device: dev, Radix: 256, BlockSize: 4}, []uint32{1, 2}, []uint32{1}},
		{Sorter{Radix: 256, BlockSize: 4}, []uint32{1}, []uint32{1}},
	}

	for specIndex, spec := range specs {
		if err := spec.sorter.Sort(spec.keys, spec.payload); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("[spec %d] expected ErrInvalidConfig; got %v", specIndex, err)
		}
	}
}

func TestSortOutOfMemory(t *testing.T) {
	dev := device.New("test", 2, 64)
	s := &Sorter{Device: dev, Radix: 256, BlockSize: 4}

	keys := make([]uint32, 100)
	payload := make([]uint32, 100)
	if err := s.Sort(keys, payload); !errors.Is(err, device.ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory; got %v", err)
	}
	if dev.Allocated() != 0 {
		t.Fatalf("expected partial allocations to be released; %d bytes still allocated", dev.Allocated())
	}
}

func TestSortWideRadixScratch(t *testing.T) {
	dev := device.New("test", 2, 1<<20)

	// One counter row per block does not fit when every key gets its own
	// block.
	s := &Sorter{Device: dev, Radix: 65536, BlockSize: 1}
	keys := make([]uint32, 64)
	payload := make([]uint32, 64)
	if err := s.Sort(keys, payload); !errors.Is(err, device.ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory; got %v", err)
	}
	if dev.Allocated() != 0 {
		t.Fatalf("expected partial allocations to be released; %d bytes still allocated", dev.Allocated())
	}

	// A single block keeps all scratch space within the device budget.
	s.BlockSize = 65536
	rng := rand.New(rand.NewSource(11))
	for i := range keys {
		keys[i] = rng.Uint32()
		payload[i] = uint32(i)
	}
	srcKeys := append([]uint32(nil), keys...)
	if err := s.Sort(keys, payload); err != nil {
		t.Fatal(err)
	}
	for i, p := range payload {
		if keys[i] != srcKeys[p] {
			t.Fatalf("key %d does not match its payload", i)
		}
		if i > 0 && keys[i-1] > keys[i] {
			t.Fatalf("keys are not sorted at %d: %d > %d", i, keys[i-1], keys[i])
		}
	}
}

func TestPasses(t *testing.T) {
	specs := []struct {
		radix, passes int
	}{
		{2, 32},
		{8, 11},
		{256, 4},
		{2048, 3},
		{65536, 2},
	}

	for _, spec := range specs {
		s := &Sorter{Radix: spec.radix}
		if got := s.Passes(); got != spec.passes {
			t.Errorf("expected radix %d to need %d passes; got %d", spec.radix, spec.passes, got)
		}
	}
}
