package device

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBufferAllocate(t *testing.T) {
	dev := New("test", 2, 0)

	buf := NewBuffer[uint32](dev, "test")
	defer buf.Release()
	if err := buf.Allocate(128); err != nil {
		t.Fatal(err)
	}

	expSize := 128 * 4
	if buf.Size() != expSize {
		t.Fatalf("expected buffer size to be %d; got %d", expSize, buf.Size())
	}
	if dev.Allocated() != uint64(expSize) {
		t.Fatalf("expected device to track %d allocated bytes; got %d", expSize, dev.Allocated())
	}

	buf.Release()
	if dev.Allocated() != 0 {
		t.Fatalf("expected release to free device memory; got %d bytes in use", dev.Allocated())
	}
}

func TestBufferOutOfMemory(t *testing.T) {
	dev := New("test", 2, 64)

	a := NewBuffer[uint64](dev, "a")
	defer a.Release()
	if err := a.Allocate(6); err != nil {
		t.Fatal(err)
	}

	b := NewBuffer[uint64](dev, "b")
	err := b.Allocate(4)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory; got %v", err)
	}

	// Reallocating releases the previous storage first
	if err = a.Allocate(8); err != nil {
		t.Fatalf("expected reallocation to succeed; got %v", err)
	}
}

func TestBufferReadWrite(t *testing.T) {
	dev := New("test", 2, 0)

	buf := NewBuffer[float32](dev, "test")
	defer buf.Release()
	if err := buf.AllocateAndWriteData([]float32{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	if err := buf.WriteData([]float32{9, 8}, 1); err != nil {
		t.Fatal(err)
	}

	out := make([]float32, 5)
	if err := buf.ReadData(0, 1, 0, out); err != nil {
		t.Fatal(err)
	}

	exp := []float32{0, 1, 9, 8, 4}
	if diff := cmp.Diff(exp, out); diff != "" {
		t.Fatalf("unexpected buffer contents (-want +got):\n%s", diff)
	}

	if err := buf.WriteData([]float32{1, 2}, 3); !errors.Is(err, ErrBufferBounds) {
		t.Fatalf("expected ErrBufferBounds; got %v", err)
	}
	if err := buf.ReadData(2, 0, 3, out); !errors.Is(err, ErrBufferBounds) {
		t.Fatalf("expected ErrBufferBounds; got %v", err)
	}
}

func TestBufferFill(t *testing.T) {
	dev := New("test", 2, 0)

	buf := NewBuffer[uint32](dev, "test")
	defer buf.Release()
	if err := buf.Allocate(3); err != nil {
		t.Fatal(err)
	}
	buf.Fill(0xFFFFFFFF)

	if diff := cmp.Diff([]uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}, buf.Data()); diff != "" {
		t.Fatalf("unexpected buffer contents (-want +got):\n%s", diff)
	}
}
