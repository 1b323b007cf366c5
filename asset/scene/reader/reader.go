package reader

import (
	"strings"

	"github.com/achilleasa/polaris-lbvh/asset"
	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// The MeshReader interface is implemented by all source mesh readers.
type MeshReader interface {
	// Read a triangle mesh from a resource.
	Read(*asset.Resource) (*input.Mesh, error)
}

// The SceneReader interface is implemented by all compiled scene readers.
type SceneReader interface {
	// Read compiled scene from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read a mesh from one or more files. When several files are specified
// their triangles are merged into a single mesh in argument order.
func ReadMesh(filenames ...string) (*input.Mesh, error) {
	if len(filenames) == 0 {
		return nil, errors.Wrap(ErrUnsupportedFormat, "readMesh: no input files")
	}

	var merged *input.Mesh
	for _, filename := range filenames {
		if !strings.HasSuffix(strings.ToLower(filename), ".obj") {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "readMesh: %s", filename)
		}

		res, err := asset.NewResource(filename, nil)
		if err != nil {
			return nil, err
		}

		mesh, err := newWavefrontReader().Read(res)
		res.Close()
		if err != nil {
			return nil, err
		}

		if merged == nil {
			merged = mesh
			continue
		}
		merged.Append(mesh)
	}
	return merged, nil
}

// Read compiled scene from file.
func ReadScene(filename string) (*scene.Scene, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".zip") {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "readScene: %s", filename)
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var reader SceneReader = newZipSceneReader()
	return reader.Read(res)
}
