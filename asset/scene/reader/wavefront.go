package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-lbvh/asset"
	"github.com/achilleasa/polaris-lbvh/asset/compiler"
	"github.com/achilleasa/polaris-lbvh/asset/compiler/input"
	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/pkg/errors"
)

// ErrSyntax is returned for malformed wavefront input.
var ErrSyntax = errors.New("syntax error")

// A face corner: indices into the vertex, uv and normal lists. Missing
// uv/normal indices are negative.
type faceCorner [3]int

type wavefrontMeshReader struct {
	logger log.Logger

	// The mesh being assembled.
	mesh *input.Mesh

	// Maps (vertex, uv, normal) triplets to mesh vertex indices.
	cornerToVertex map[faceCorner]uint32

	// A map of material names to material indices.
	matNameToIndex map[string]uint32

	// Material and shadow flags applied to newly parsed faces.
	curMaterial *uint32
	curShadow   scene.ShadowFlags

	// Number of g/o directives seen.
	objectCount int

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// An error stack that provides additional error information when
	// files include other files (models, mat libs e.t.c)
	errStack []string
}

// Create a new wavefront mesh reader.
func newWavefrontReader() *wavefrontMeshReader {
	return &wavefrontMeshReader{
		logger:         log.New("wavefront reader"),
		mesh:           &input.Mesh{},
		cornerToVertex: make(map[faceCorner]uint32),
		matNameToIndex: make(map[string]uint32),
		curShadow:      scene.DefaultShadowFlags,
		errStack:       make([]string, 0),
	}
}

// Read a triangle mesh from a wavefront obj resource.
func (r *wavefrontMeshReader) Read(res *asset.Resource) (*input.Mesh, error) {
	r.logger.Noticef(`parsing mesh from "%s"`, res.Path())
	start := time.Now()

	r.mesh.Name = res.Path()
	err := r.parse(res)
	if err != nil {
		return nil, err
	}

	if r.mesh.TriangleCount() == 0 {
		return nil, r.emitError(res.Path(), 0, "no faces defined")
	}
	r.mesh.GenerateTangents()

	r.logger.Noticef(
		"parsed %d triangles (%d vertices, %d objects, %d materials) in %d ms",
		r.mesh.TriangleCount(), len(r.mesh.Vertices), r.objectCount, len(r.mesh.Materials),
		time.Since(start).Nanoseconds()/1e6,
	)
	return r.mesh, nil
}

// Generate an error message that also includes the include stack.
func (r *wavefrontMeshReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return errors.Wrap(ErrSyntax, errMsg)
}

func (r *wavefrontMeshReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontMeshReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Get the index of a material, registering it if needed.
func (r *wavefrontMeshReader) materialIndex(name string) uint32 {
	if index, exists := r.matNameToIndex[name]; exists {
		return index
	}
	r.mesh.Materials = append(r.mesh.Materials, name)
	index := uint32(len(r.mesh.Materials) - 1)
	r.matNameToIndex[name] = index
	return index
}

// Parse wavefront object file.
func (r *wavefrontMeshReader) parse(res *asset.Resource) error {
	var lineNum int = 0

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/uv/normal offsets we can apply them
	// while parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}
			incRes.Close()

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 'usemtl'; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			if _, exists := r.matNameToIndex[lineTokens[1]]; !exists {
				r.logger.Warningf(`[%s: %d] material "%s" is not defined by any material library`, res.Path(), lineNum, lineTokens[1])
			}
			index := r.materialIndex(lineTokens[1])
			r.curMaterial = &index
		case "shadow_cast", "shadow_receive":
			enabled, err := parseToggle(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			if lineTokens[0] == "shadow_cast" {
				r.curShadow.Cast = enabled
			} else {
				r.curShadow.Receive = enabled
			}
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.objectCount++
			r.logger.Debugf("parsing object %q", lineTokens[1])
		case "f":
			if err := r.parseFace(lineTokens, relVertexOffset, relUvOffset, relNormalOffset); err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, err.Error())
	}
	return nil
}

// Parse a triangle or quad face and append its triangles to the mesh. Quads
// are split into two triangles.
func (r *wavefrontMeshReader) parseFace(lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var corners [4]faceCorner
	var err error
	expIndices := 0
	hasNormals := false
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		corners[arg] = faceCorner{-1, -1, -1}
		corners[arg][0], err = selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}

		// Parse UV coords if specified
		if expIndices > 1 && vTokens[1] != "" {
			corners[arg][1], err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}

		// Parse normal coords if specified
		if expIndices > 2 && vTokens[2] != "" {
			corners[arg][2], err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			hasNormals = true
		}
	}

	// If no material is active select the default one
	if r.curMaterial == nil {
		index := r.materialIndex(compiler.DefaultMaterialName)
		r.curMaterial = &index
	}

	// Assemble corners into one or two triangles depending on whether we
	// are parsing a triangular or a quad face
	indiceList := [][3]int{{0, 1, 2}}
	if len(lineTokens) == 5 {
		indiceList = append(indiceList, [3]int{0, 2, 3})
	}

	for _, indices := range indiceList {
		// If no normals are available generate them from the vertices. Such
		// corners are never shared with other faces.
		var faceNormal types.Vec3
		if !hasNormals {
			v0 := r.vertexList[corners[indices[0]][0]]
			v1 := r.vertexList[corners[indices[1]][0]]
			v2 := r.vertexList[corners[indices[2]][0]]
			faceNormal = v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		}

		for _, selectIndex := range indices {
			r.mesh.Indices = append(r.mesh.Indices, r.emitVertex(corners[selectIndex], hasNormals, faceNormal))
		}
		r.mesh.MaterialIndices = append(r.mesh.MaterialIndices, *r.curMaterial)
		r.mesh.ShadowFlags = append(r.mesh.ShadowFlags, r.curShadow)
	}

	return nil
}

// Get the mesh vertex for a face corner, creating it if needed.
func (r *wavefrontMeshReader) emitVertex(corner faceCorner, hasNormals bool, faceNormal types.Vec3) uint32 {
	if hasNormals {
		if index, exists := r.cornerToVertex[corner]; exists {
			return index
		}
	}

	var uv types.Vec2
	if corner[1] >= 0 {
		uv = r.uvList[corner[1]]
	}
	normal := faceNormal
	if corner[2] >= 0 {
		normal = r.normalList[corner[2]]
	}

	r.mesh.Vertices = append(r.mesh.Vertices, r.vertexList[corner[0]])
	r.mesh.Normals = append(r.mesh.Normals, normal)
	r.mesh.UVs = append(r.mesh.UVs, uv)

	index := uint32(len(r.mesh.Vertices) - 1)
	if hasNormals {
		r.cornerToVertex[corner] = index
	}
	return index
}

// Parse a wavefront material library. Only material names are extracted;
// the remaining material properties are not part of the compiled scene.
func (r *wavefrontMeshReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0

	r.logger.Infof(`parsing material library "%s"`, res.Path())

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || lineTokens[0] != "newmtl" {
			continue
		}

		if len(lineTokens) != 2 {
			return r.emitError(res.Path(), lineNum, `unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
		}
		if _, exists := r.matNameToIndex[lineTokens[1]]; exists {
			return r.emitError(res.Path(), lineNum, `material "%s" already defined`, lineTokens[1])
		}
		r.materialIndex(lineTokens[1])
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, err.Error())
	}
	return nil
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse an on/off toggle.
func parseToggle(lineTokens []string) (uint32, error) {
	if len(lineTokens) != 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	switch strings.ToLower(lineTokens[1]) {
	case "on", "1", "true":
		return 1, nil
	case "off", "0", "false":
		return 0, nil
	}
	return 0, fmt.Errorf(`unsupported value %q for "%s"; expected on or off`, lineTokens[1], lineTokens[0])
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
