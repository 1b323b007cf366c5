package lbvh

import "github.com/pkg/errors"

var (
	// ErrEmptyMesh is returned when the input mesh has no triangles.
	ErrEmptyMesh = errors.New("mesh contains no triangles")

	// ErrInvalidInput is returned for inconsistent mesh buffers such as
	// out-of-range vertex indices.
	ErrInvalidInput = errors.New("invalid mesh input")

	// ErrUnsortedKeys is returned when keys are compacted before sorting.
	ErrUnsortedKeys = errors.New("keys are not sorted")

	// ErrKeySpaceExhausted is returned when compaction overflows 32-bit keys.
	ErrKeySpaceExhausted = errors.New("morton key space exhausted")

	// ErrDuplicateKeys is returned when construction is attempted over keys
	// that are not strictly increasing.
	ErrDuplicateKeys = errors.New("keys are not unique")

	// ErrInvalidHierarchy is returned by Validate.
	ErrInvalidHierarchy = errors.New("invalid hierarchy")
)
