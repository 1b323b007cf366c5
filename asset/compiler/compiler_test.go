package compiler

import (
	"errors"
	"testing"

	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/compute/device"
	"github.com/achilleasa/polaris-lbvh/config"
	"github.com/achilleasa/polaris-lbvh/lbvh"
	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/google/go-cmp/cmp"
)

func quadMesh() *input.Mesh {
	return &input.Mesh{
		Name: "quad",
		Vertices: []types.Vec3{
			types.XYZ(-1, -1, 0),
			types.XYZ(1, -1, 0),
			types.XYZ(1, 1, 0),
			types.XYZ(-1, 1, 0),
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestCompile(t *testing.T) {
	cfg := config.Default().Build
	cfg.ValidateOutput = true

	sc, stats, err := Compile(device.New("test", 2, 0), quadMesh(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if sc.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles; got %d", sc.TriangleCount())
	}
	if len(sc.InternalNodes) != 1 || len(sc.LeafNodes) != 2 {
		t.Fatalf("expected 1 internal and 2 leaf nodes; got %d and %d", len(sc.InternalNodes), len(sc.LeafNodes))
	}
	if diff := cmp.Diff([]string{DefaultMaterialName}, sc.MaterialNames); diff != "" {
		t.Fatalf("material name mismatch (-want +got):\n%s", diff)
	}
	if stats.Triangles != 2 || stats.MaxLeafDepth != 1 {
		t.Fatalf("expected stats for 2 triangles with max depth 1; got %+v", stats)
	}
	if err = sc.Traverse(func(_, _ uint32, _ int) bool { return true }); err != nil {
		t.Fatal(err)
	}
}

func TestCompileMaterialNames(t *testing.T) {
	mesh := quadMesh()
	mesh.Materials = []string{"red"}
	mesh.MaterialIndices = []uint32{0, 2}

	sc, _, err := Compile(device.New("test", 2, 0), mesh, config.Default().Build)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"red", DefaultMaterialName, DefaultMaterialName}, sc.MaterialNames); diff != "" {
		t.Fatalf("material name mismatch (-want +got):\n%s", diff)
	}

	// The mesh material table must not be modified
	if diff := cmp.Diff([]string{"red"}, mesh.Materials); diff != "" {
		t.Fatalf("mesh material mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileEmptyMesh(t *testing.T) {
	_, _, err := Compile(device.New("test", 2, 0), &input.Mesh{Name: "empty"}, config.Default().Build)
	if !errors.Is(err, lbvh.ErrEmptyMesh) {
		t.Fatalf("expected ErrEmptyMesh; got %v", err)
	}
}
