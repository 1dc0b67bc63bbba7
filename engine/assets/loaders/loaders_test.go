package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# spec_version 0
mtllib shirt.mtl
o shirt
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl cloth
f 1/1/1 2/2/1 3/3/1 4/4/1
o strings
v 0 0 1
v 1 0 1
v 0 1 1
f -3 -2 -1
`

func TestModelLoaderDecodesObjects(t *testing.T) {
	ml := &ModelLoader{}
	res, err := ml.Load("traits/chest/shirt.obj", []byte(quadOBJ), nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeModel, res.Type)

	model, ok := res.Data.(*metadata.Model)
	require.True(t, ok)
	assert.Equal(t, "shirt", model.Name)
	assert.True(t, model.IsLegacy())
	assert.Equal(t, int64(len(quadOBJ)), model.SizeBytes)

	nodes := model.Scene.MeshNodes()
	require.Len(t, nodes, 2)

	shirt := nodes[0].Mesh
	assert.Equal(t, "shirt", shirt.Name)
	assert.Equal(t, "cloth", shirt.Materials[0].Name)
	assert.Len(t, shirt.Geometry.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, shirt.Geometry.OriginalIndices)
	assert.Equal(t, math.Vec2{X: 1, Y: 1}, shirt.Geometry.Vertices[2].Texcoord)

	strings := nodes[1].Mesh
	assert.Equal(t, 1, strings.Geometry.TriangleCount())
	// generated normals for faces without vn
	assert.True(t, strings.Geometry.Vertices[0].Normal.Compare(math.Vec3{Z: 1}, 1e-6))
	assert.NotSame(t, shirt.Materials[0], strings.Materials[0])

	require.NoError(t, ml.Unload(res))
	assert.True(t, shirt.Geometry.Released)
}

func TestModelLoaderRejectsBrokenDocuments(t *testing.T) {
	ml := &ModelLoader{}
	_, err := ml.Load("bad.obj", []byte("v 0 0 0\nf 1 2 3\n"), nil)
	assert.Error(t, err)

	_, err = ml.Load("empty.obj", []byte("# nothing here\n"), nil)
	assert.Error(t, err)

	_, err = ml.Load("zero.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"), nil)
	assert.Error(t, err)
}

func encodePNG(t *testing.T, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextureLoaderDecodesPNG(t *testing.T) {
	tl := &TextureLoader{}
	res, err := tl.Load("textures/skin.png", encodePNG(t, 255), nil)
	require.NoError(t, err)

	tex, ok := res.Data.(*metadata.Texture)
	require.True(t, ok)
	assert.Equal(t, "skin", tex.Name)
	assert.Equal(t, uint32(4), tex.Width)
	assert.Equal(t, uint32(2), tex.Height)
	assert.Equal(t, "png", tex.Format)
	assert.False(t, tex.HasTransparency)

	res, err = tl.Load("textures/glass", encodePNG(t, 100), nil)
	require.NoError(t, err)
	assert.True(t, res.Data.(*metadata.Texture).HasTransparency)
}

func TestTextureLoaderRejectsNonImages(t *testing.T) {
	tl := &TextureLoader{}
	_, err := tl.Load("textures/skin.png", []byte("definitely not pixels"), nil)
	assert.Error(t, err)
	assert.False(t, IsImage([]byte(quadOBJ)))
}
