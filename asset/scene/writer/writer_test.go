package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/asset/scene/reader"
	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestWriteAndReadScene(t *testing.T) {
	box := scene.NewAABB(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))
	sc := &scene.Scene{
		BuildID:         uuid.New(),
		SceneBounds:     scene.NewAABB(types.Splat3(-125), types.Splat3(125)),
		MortonKeys:      []uint32{0, 9},
		TriangleIndices: []uint32{1, 0},
		Triangles: []scene.Triangle{
			{Point0: types.XYZ(0, 0, 0), Point1: types.XYZ(1, 0, 0), Point2: types.XYZ(0, 1, 0), MaterialIndex: 1},
			{Point0: types.XYZ(0, 0, 1), Point1: types.XYZ(1, 0, 1), Point2: types.XYZ(0, 1, 1)},
		},
		TriangleAABBs: []scene.AABB{box, box},
		InternalNodes: []scene.InternalNode{
			{LeftNode: 0, LeftNodeType: scene.NodeTypeLeaf, RightNode: 1, RightNodeType: scene.NodeTypeLeaf, Parent: scene.NullIndex, Index: 0},
		},
		LeafNodes:       []scene.LeafNode{{Parent: 0, Index: 0}, {Parent: 0, Index: 1}},
		NodeAABBs:       []scene.AABB{box},
		MaterialIndices: []uint32{1, 0},
		ShadowFlags:     []scene.ShadowFlags{scene.DefaultShadowFlags, {Cast: 0, Receive: 1}},
		MaterialNames:   []string{"default", "red"},
	}

	filename := filepath.Join(t.TempDir(), "scene.zip")
	if err := WriteScene(sc, filename); err != nil {
		t.Fatal(err)
	}

	got, err := reader.ReadScene(filename)
	if err != nil {
		t.Fatal(err)
	}

	if got.BuildID != sc.BuildID {
		t.Fatalf("expected build id %s; got %s", sc.BuildID, got.BuildID)
	}
	if got.SceneBounds != sc.SceneBounds {
		t.Fatalf("expected scene bounds %v; got %v", sc.SceneBounds, got.SceneBounds)
	}
	for i := range sc.Triangles {
		if got.Triangles[i] != sc.Triangles[i] {
			t.Fatalf("expected triangle %d to be %+v; got %+v", i, sc.Triangles[i], got.Triangles[i])
		}
	}
	if len(got.NodeAABBs) != 1 || got.NodeAABBs[0] != box {
		t.Fatalf("expected node AABBs [%v]; got %v", box, got.NodeAABBs)
	}
	if diff := cmp.Diff(sc.InternalNodes, got.InternalNodes); diff != "" {
		t.Fatalf("internal node mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sc.LeafNodes, got.LeafNodes); diff != "" {
		t.Fatalf("leaf node mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sc.ShadowFlags, got.ShadowFlags); diff != "" {
		t.Fatalf("shadow flag mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sc.MaterialNames, got.MaterialNames); diff != "" {
		t.Fatalf("material name mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSceneToMissingDir(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "missing", "scene.zip")
	if err := WriteScene(&scene.Scene{}, filename); err == nil {
		t.Fatal("expected an error writing to a missing directory")
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		t.Fatalf("expected no output file; got %v", err)
	}
}
