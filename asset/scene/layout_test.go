package scene

import (
	"testing"

	"github.com/achilleasa/polaris-lbvh/types"
)

func TestCheckLayout(t *testing.T) {
	if err := CheckLayout(); err != nil {
		t.Fatal(err)
	}
}

func TestAABB(t *testing.T) {
	a := NewAABB(types.XYZ(0, 0, 0), types.XYZ(1, 1, 1))
	b := NewAABB(types.XYZ(-1, 0.5, 0.5), types.XYZ(0.5, 2, 0.5))

	u := a.Union(b)
	exp := NewAABB(types.XYZ(-1, 0, 0), types.XYZ(1, 2, 1))
	if u != exp {
		t.Fatalf("expected union [%v, %v]; got [%v, %v]", exp.Min, exp.Max, u.Min, u.Max)
	}

	if !u.Contains(a) || !u.Contains(b) {
		t.Fatal("expected union to contain both boxes")
	}
	if a.Contains(b) {
		t.Fatal("expected a not to contain b")
	}

	if !a.IsValid() {
		t.Fatal("expected a to be valid")
	}
	if NewAABB(types.XYZ(1, 0, 0), types.XYZ(0, 1, 1)).IsValid() {
		t.Fatal("expected inverted box to be invalid")
	}

	if c := a.Center(); c != types.XYZ(0.5, 0.5, 0.5) {
		t.Fatalf("expected center (0.5, 0.5, 0.5); got %v", c)
	}
}
