package device

import (
	"unsafe"

	"github.com/pkg/errors"
)

// ErrBufferBounds is returned when a read or write falls outside the
// allocated buffer.
var ErrBufferBounds = errors.New("buffer access out of bounds")

// A named, typed device buffer. Allocations are charged against the memory
// limit of the owning device.
type Buffer[T any] struct {
	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	// Backing storage.
	data []T
}

// Create an empty buffer.
func NewBuffer[T any](d *Device, name string) *Buffer[T] {
	return &Buffer[T]{
		device: d,
		name:   name,
	}
}

// Get buffer name.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Get buffer size in bytes.
func (b *Buffer[T]) Size() int {
	return len(b.data) * b.elemSize()
}

// Get number of buffer elements.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Get the buffer contents. Kernels operate on this slice directly.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Allocate a zeroed buffer with room for count elements.
func (b *Buffer[T]) Allocate(count int) error {
	// If the buffer is already allocated release it
	b.Release()

	if count < 0 {
		return errors.Errorf("device (%s): invalid element count %d for buffer %s", b.device.Name, count, b.name)
	}

	if err := b.device.reserve(b.name, uint64(count*b.elemSize())); err != nil {
		return err
	}

	b.data = make([]T, count)
	return nil
}

// Allocate a buffer large enough to hold data and copy data into it.
func (b *Buffer[T]) AllocateAndWriteData(data []T) error {
	if err := b.Allocate(len(data)); err != nil {
		return err
	}

	copy(b.data, data)
	return nil
}

// Write data to the device buffer starting at the given element offset.
func (b *Buffer[T]) WriteData(data []T, offset int) error {
	if offset < 0 || offset+len(data) > len(b.data) {
		return errors.Wrapf(
			ErrBufferBounds,
			"device (%s): insufficient buffer space (%d) in %s for copying %d elements at offset %d",
			b.device.Name, len(b.data), b.name, len(data), offset,
		)
	}

	copy(b.data[offset:], data)
	return nil
}

// Read count elements starting at srcOffset into hostBuffer at dstOffset.
// If count is <= 0 then ReadData will read the remainder of the buffer.
func (b *Buffer[T]) ReadData(srcOffset, dstOffset, count int, hostBuffer []T) error {
	if count <= 0 {
		count = len(b.data) - srcOffset
	}

	if srcOffset < 0 || dstOffset < 0 || srcOffset+count > len(b.data) || dstOffset+count > len(hostBuffer) {
		return errors.Wrapf(
			ErrBufferBounds,
			"device (%s): error copying %d elements from %s to host buffer",
			b.device.Name, count, b.name,
		)
	}

	copy(hostBuffer[dstOffset:dstOffset+count], b.data[srcOffset:srcOffset+count])
	return nil
}

// Set every element to v.
func (b *Buffer[T]) Fill(v T) {
	for i := range b.data {
		b.data[i] = v
	}
}

// Release buffer. Releasing a nil buffer is a no-op.
func (b *Buffer[T]) Release() {
	if b != nil && b.data != nil {
		b.device.free(uint64(b.Size()))
		b.data = nil
	}
}

func (b *Buffer[T]) elemSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}
