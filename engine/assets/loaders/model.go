package loaders

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

const invIndex = -1

// ModelLoader decodes Wavefront OBJ documents into a model whose scene has one
// child node per object (o/g) and material (usemtl) pair.
type ModelLoader struct{}

func (ml *ModelLoader) Extensions() []string {
	return []string{".obj"}
}

func (ml *ModelLoader) Load(name string, data []byte, params interface{}) (*metadata.Resource, error) {
	dec := &objDecoder{}
	if err := dec.parse(data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	if len(dec.objects) == 0 {
		return nil, fmt.Errorf("decoding %s: no faces", name)
	}

	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	scene := metadata.NewNode(base)
	for _, ob := range dec.objects {
		if len(ob.faces) == 0 {
			continue
		}
		scene.Add(dec.buildNode(ob))
	}
	model := metadata.NewModel(base, scene)
	model.URL = name
	model.SizeBytes = int64(len(data))
	model.Meta.SpecVersion = dec.specVersion

	return &metadata.Resource{
		Name:     base,
		FullPath: name,
		Type:     metadata.ResourceTypeModel,
		DataSize: uint64(len(data)),
		Data:     model,
	}, nil
}

func (ml *ModelLoader) Unload(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	if m, ok := res.Data.(*metadata.Model); ok && m.Scene != nil {
		m.Scene.Traverse(func(n *metadata.Node) {
			if n.Mesh != nil && n.Mesh.Geometry != nil {
				n.Mesh.Geometry.Free()
			}
		})
	}
	res.Data = nil
	return nil
}

type objFace struct {
	vertices []int
	uvs      []int
	normals  []int
}

type objObject struct {
	name     string
	material string
	faces    []objFace
}

type objDecoder struct {
	positions []math.Vec3
	normals   []math.Vec3
	uvs       []math.Vec2
	objects   []*objObject
	current   *objObject
	material  string
	line      int

	specVersion string
}

func (dec *objDecoder) parse(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		dec.line++
		if err := dec.parseLine(strings.TrimSpace(scanner.Text())); err != nil {
			return fmt.Errorf("line %d: %w", dec.line, err)
		}
	}
	return scanner.Err()
}

// Parses obj file line, dispatching to specific parsers
func (dec *objDecoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if strings.HasPrefix(fields[0], "#") {
		dec.parseComment(fields)
		return nil
	}
	switch fields[0] {
	case "o", "g":
		name := "unnamed"
		if len(fields) > 1 {
			name = fields[1]
		}
		dec.startObject(name)
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.positions = append(dec.positions, math.NewVec3(v[0], v[1], v[2]))
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.normals = append(dec.normals, math.NewVec3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		dec.uvs = append(dec.uvs, math.NewVec2(v[0], v[1]))
	case "f":
		return dec.parseFace(fields[1:])
	case "usemtl":
		if len(fields) < 2 {
			return errors.New("usemtl with no name")
		}
		dec.material = fields[1]
		if dec.current != nil && len(dec.current.faces) > 0 && dec.current.material != dec.material {
			dec.startObject(dec.current.name)
		}
		if dec.current != nil {
			dec.current.material = dec.material
		}
	case "mtllib", "s", "l", "p":
		// material libraries and smoothing groups are not used
	default:
		core.LogDebug("obj: field not supported: %s", fields[0])
	}
	return nil
}

// parseComment reads "# spec_version <v>" which declares the rig convention.
func (dec *objDecoder) parseComment(fields []string) {
	if len(fields) >= 3 && fields[0] == "#" && fields[1] == "spec_version" {
		dec.specVersion = fields[2]
	}
}

func (dec *objDecoder) startObject(name string) {
	ob := &objObject{name: name, material: dec.material}
	dec.objects = append(dec.objects, ob)
	dec.current = ob
}

func (dec *objDecoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return errors.New("face line with less than 3 vertices")
	}
	if dec.current == nil {
		dec.startObject(fmt.Sprintf("unnamed%d", dec.line))
	}
	face := objFace{
		vertices: make([]int, len(fields)),
		uvs:      make([]int, len(fields)),
		normals:  make([]int, len(fields)),
	}
	for pos, f := range fields {
		parts := strings.Split(f, "/")
		vi, err := resolveIndex(parts[0], len(dec.positions))
		if err != nil {
			return err
		}
		face.vertices[pos] = vi
		face.uvs[pos] = invIndex
		face.normals[pos] = invIndex
		if len(parts) > 1 && parts[1] != "" {
			if face.uvs[pos], err = resolveIndex(parts[1], len(dec.uvs)); err != nil {
				return err
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if face.normals[pos], err = resolveIndex(parts[2], len(dec.normals)); err != nil {
				return err
			}
		}
	}
	dec.current.faces = append(dec.current.faces, face)
	return nil
}

// buildNode de-indexes the object's faces into one vertex buffer and fans
// polygons into triangles.
func (dec *objDecoder) buildNode(ob *objObject) *metadata.Node {
	type key struct{ v, t, n int }
	lookup := make(map[key]uint32)
	var vertices []math.Vertex3D
	var indices []uint32
	hasNormals := true

	index := func(f objFace, i int) uint32 {
		k := key{f.vertices[i], f.uvs[i], f.normals[i]}
		if idx, ok := lookup[k]; ok {
			return idx
		}
		v := math.Vertex3D{Position: dec.positions[k.v]}
		if k.t != invIndex {
			v.Texcoord = dec.uvs[k.t]
		}
		if k.n != invIndex {
			v.Normal = dec.normals[k.n]
		} else {
			hasNormals = false
		}
		idx := uint32(len(vertices))
		vertices = append(vertices, v)
		lookup[k] = idx
		return idx
	}

	for _, f := range ob.faces {
		for i := 1; i+1 < len(f.vertices); i++ {
			indices = append(indices, index(f, 0), index(f, i), index(f, i+1))
		}
	}
	if !hasNormals {
		math.GeometryGenerateNormals(vertices, indices)
	}

	matName := ob.material
	if matName == "" {
		matName = "default"
	}
	// every mesh gets its own material so textures can be assigned per mesh
	mat := metadata.NewMaterial(matName)

	node := metadata.NewNode(ob.name)
	node.Mesh = metadata.NewMesh(ob.name, metadata.NewGeometry(ob.name, vertices, indices), mat)
	return node
}

func resolveIndex(field string, count int) (int, error) {
	val, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	var idx int
	switch {
	case val > 0:
		idx = val - 1
	case val < 0:
		idx = count + val
	default:
		return 0, errors.New("index value equal to 0")
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("index %d out of range (%d defined)", val, count)
	}
	return idx, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
