package metadata

import (
	"testing"

	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeAddReparents(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	child := NewNode("child")

	a.Add(child)
	require.True(t, a.HasChild(child))
	assert.Same(t, a.Transform, child.Transform.Parent)

	b.Add(child)
	assert.False(t, a.HasChild(child))
	assert.True(t, b.HasChild(child))
	assert.Same(t, b, child.Parent)

	child.Detach()
	assert.Nil(t, child.Parent)
	assert.Nil(t, child.Transform.Parent)
	assert.Empty(t, b.Children)
}

func TestNodeMeshesAndFind(t *testing.T) {
	root := NewNode("root")
	body := NewNode("body")
	body.Mesh = NewMesh("body", NewGeometry("body", nil, nil))
	arm := NewNode("arm")
	arm.Mesh = NewMesh("arm", NewGeometry("arm", nil, nil))
	root.Add(body)
	body.Add(arm)

	assert.Len(t, root.Meshes(), 2)
	assert.Same(t, arm, root.FindByName("arm"))
	assert.Nil(t, root.FindByName("leg"))
}

func TestGeometryClipRestore(t *testing.T) {
	g := NewGeometry("quad", []math.Vertex3D{
		{Position: math.Vec3{X: 0}}, {Position: math.Vec3{X: 1}},
		{Position: math.Vec3{X: 1, Y: 1}}, {Position: math.Vec3{Y: 1}},
	}, []uint32{0, 1, 2, 0, 2, 3})

	assert.Equal(t, 2, g.TriangleCount())
	g.SetClipped([]uint32{0, 1, 2})
	assert.True(t, g.IsClipped())
	assert.Equal(t, 1, g.TriangleCount())
	assert.Len(t, g.OriginalIndices, 6)

	g.Restore()
	assert.Equal(t, 2, g.TriangleCount())
	assert.Equal(t, math.Vec3{X: 1, Y: 1}, g.Extents.Max)
}

func TestMeshDebugMode(t *testing.T) {
	orig := NewMaterial("skin")
	m := NewMesh("body", nil, orig)
	m.OrigMaterials = []*Material{orig}
	m.DebugMaterial = NewMaterial("debug")
	m.DebugMaterial.Wireframe = true

	m.SetDebugMode(true)
	assert.Same(t, m.DebugMaterial, m.Materials[0])
	assert.Same(t, orig, m.SurfaceMaterial())
	assert.Len(t, m.AllMaterials(), 2)

	m.SetDebugMode(false)
	assert.Same(t, orig, m.Materials[0])
}

func TestLoadedDataBroadcast(t *testing.T) {
	t0 := NewTexture("t0", nil)
	d := &LoadedData{
		Models:   []*Model{NewModel("a", nil), nil},
		Textures: []*Texture{t0, nil},
		Colors:   []math.Color{{R: 1}},
	}
	assert.Same(t, t0, d.TextureAt(0))
	assert.Same(t, t0, d.TextureAt(1))
	assert.Same(t, t0, d.TextureAt(5))

	c, ok := d.ColorAt(3)
	require.True(t, ok)
	assert.Equal(t, float32(1), c.R)

	assert.Equal(t, 2, d.FailedCount())
	assert.False(t, d.IsRemoval())
	assert.True(t, NewRemoval("chest").IsRemoval())
}

func TestSelectedOptionAccessors(t *testing.T) {
	var none *SelectedOption
	assert.Empty(t, none.GroupID())
	assert.Nil(t, none.ModelURLs())

	s := &SelectedOption{
		Model: &TraitOption{ID: "m1", GroupID: "head", Kind: TraitKindModel, Model: &ModelTrait{Directories: []string{"a.obj"}}},
		Color: &TraitOption{ID: "c1", GroupID: "skin", Kind: TraitKindColor, Color: &ColorTrait{Values: []string{"#fff"}}},
	}
	assert.Equal(t, "head", s.GroupID())
	assert.Equal(t, []string{"a.obj"}, s.ModelURLs())
	assert.Nil(t, s.TextureURLs())
	assert.Equal(t, []string{"#fff"}, s.ColorValues())
}
