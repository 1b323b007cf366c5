package lbvh

import (
	"math"

	"github.com/pkg/errors"
)

// Rewrite sorted keys in place so they become strictly increasing: the
// first key becomes 0 and every following key advances by the original gap
// or by 1 when the gap is zero. On error keys are left untouched.
func DistributeKeys(keys []uint32) error {
	if len(keys) == 0 {
		return nil
	}

	// Check ordering and key space before rewriting anything
	var next uint64
	for i := 1; i < len(keys); i++ {
		if keys[i] < keys[i-1] {
			return errors.Wrapf(ErrUnsortedKeys, "key %d (%d) is less than key %d (%d)", i, keys[i], i-1, keys[i-1])
		}
		next += distributeStep(keys[i-1], keys[i])
		if next > math.MaxUint32 {
			return errors.Wrapf(ErrKeySpaceExhausted, "key %d of %d", i, len(keys))
		}
	}

	prev := keys[0]
	keys[0] = 0
	for i := 1; i < len(keys); i++ {
		orig := keys[i]
		keys[i] = keys[i-1] + uint32(distributeStep(prev, orig))
		prev = orig
	}

	return nil
}

func distributeStep(prev, cur uint32) uint64 {
	if cur == prev {
		return 1
	}
	return uint64(cur - prev)
}
