package lbvh

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDistributeKeys(t *testing.T) {
	specs := []struct {
		in, exp []uint32
	}{
		{nil, nil},
		{[]uint32{42}, []uint32{0}},
		{[]uint32{5, 5, 5, 9, 9, 20}, []uint32{0, 1, 2, 6, 7, 18}},
		{[]uint32{7, 7, 7, 7}, []uint32{0, 1, 2, 3}},
		{[]uint32{1, 2, 4, 8}, []uint32{0, 1, 3, 7}},
	}

	for specIndex, spec := range specs {
		keys := append([]uint32(nil), spec.in...)
		if err := DistributeKeys(keys); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if diff := cmp.Diff(spec.exp, keys); diff != "" {
			t.Fatalf("[spec %d] unexpected keys (-want +got):\n%s", specIndex, diff)
		}
		for i := 1; i < len(keys); i++ {
			if keys[i] <= keys[i-1] {
				t.Fatalf("[spec %d] expected strictly increasing keys; got %v", specIndex, keys)
			}
		}
	}
}

func TestDistributeKeysErrors(t *testing.T) {
	specs := []struct {
		in     []uint32
		expErr error
	}{
		{[]uint32{3, 1, 2}, ErrUnsortedKeys},
		{[]uint32{1, 4, 9, 2}, ErrUnsortedKeys},
		{[]uint32{0, 0xFFFFFFFF, 0xFFFFFFFF}, ErrKeySpaceExhausted},
	}

	for specIndex, spec := range specs {
		keys := append([]uint32(nil), spec.in...)
		if err := DistributeKeys(keys); !errors.Is(err, spec.expErr) {
			t.Fatalf("[spec %d] expected %v; got %v", specIndex, spec.expErr, err)
		}
		if diff := cmp.Diff(spec.in, keys); diff != "" {
			t.Fatalf("[spec %d] expected keys to be left untouched on error (-want +got):\n%s", specIndex, diff)
		}
	}
}
