package systems

import (
	"testing"

	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *SystemManager {
	t.Helper()
	sm, err := NewSystemManager(DefaultSystemManagerConfig())
	require.NoError(t, err)
	return sm
}

func meshNode(name string, tex *metadata.Texture) *metadata.Node {
	geo := metadata.NewGeometry(name, []math.Vertex3D{{}, {}, {}}, []uint32{0, 1, 2})
	mat := metadata.NewMaterial(name)
	mat.DiffuseMap = tex
	mat.ShadeMap = tex
	mesh := metadata.NewMesh(name, geo, mat)
	mesh.OrigMaterials = []*metadata.Material{mat}
	mesh.DebugMaterial = metadata.NewMaterial(name + "-debug")
	n := metadata.NewNode(name)
	n.Mesh = mesh
	return n
}

func TestNewSystemsRejectZeroCapacity(t *testing.T) {
	_, err := NewGeometrySystem(&GeometrySystemConfig{})
	assert.Error(t, err)
	_, err = NewSystemManager(SystemManagerConfig{MaxGeometryCount: 1, MaxMaterialCount: 1})
	assert.Error(t, err)
}

func TestRegisterAndDisposeNodeReleasesEverything(t *testing.T) {
	sm := newManager(t)
	tex := metadata.NewTexture("skin", nil)

	root := metadata.NewNode("avatar")
	group := metadata.NewNode("chest")
	a := meshNode("shirt", tex)
	b := meshNode("collar", tex)
	group.Add(a)
	group.Add(b)
	skeleton := &metadata.Skeleton{Bones: []*metadata.Bone{{Name: "spine", Node: a}}}
	group.Skeleton = skeleton
	root.Add(group)

	require.NoError(t, sm.RegisterNode(group))
	geos, mats, texs := sm.LiveCounts()
	assert.Equal(t, 2, geos)
	assert.Equal(t, 4, mats)
	assert.Equal(t, 1, texs)
	assert.Equal(t, uint64(2), sm.TextureSystem.ReferenceCount(tex))

	geo := a.Mesh.Geometry
	sm.DisposeNode(group)

	geos, mats, texs = sm.LiveCounts()
	assert.Zero(t, geos)
	assert.Zero(t, mats)
	assert.Zero(t, texs)
	assert.True(t, geo.Released)
	assert.Nil(t, geo.OriginalIndices)
	assert.True(t, tex.Released)
	assert.Empty(t, skeleton.Bones)
	assert.False(t, root.HasChild(group))
	assert.True(t, group.Disposed)

	// disposing twice is a no-op
	sm.DisposeNode(group)
}

func TestSharedTextureSurvivesPartialDisposal(t *testing.T) {
	sm := newManager(t)
	tex := metadata.NewTexture("shared", nil)
	a := meshNode("a", tex)
	b := meshNode("b", tex)

	require.NoError(t, sm.RegisterNode(a))
	require.NoError(t, sm.RegisterNode(b))

	sm.DisposeNode(a)
	assert.False(t, tex.Released)
	assert.Equal(t, uint64(1), sm.TextureSystem.ReferenceCount(tex))

	sm.DisposeNode(b)
	assert.True(t, tex.Released)
}

func TestMaterialSetTextureSwapsReferences(t *testing.T) {
	sm := newManager(t)
	oldTex := metadata.NewTexture("old", nil)
	newTex := metadata.NewTexture("new", nil)
	n := meshNode("body", oldTex)
	require.NoError(t, sm.RegisterNode(n))

	mat := n.Mesh.SurfaceMaterial()
	require.NoError(t, sm.MaterialSystem.SetTexture(mat, newTex))

	assert.True(t, oldTex.Released)
	assert.Equal(t, uint64(1), sm.TextureSystem.ReferenceCount(newTex))
	assert.Same(t, newTex, mat.DiffuseMap)
	assert.Same(t, newTex, mat.ShadeMap)
}

func TestDiscardOnlyFreesUnregisteredTextures(t *testing.T) {
	sm := newManager(t)
	held := metadata.NewTexture("held", nil)
	require.NoError(t, sm.TextureSystem.Acquire(held))
	loose := metadata.NewTexture("loose", nil)

	sm.TextureSystem.Discard(held)
	sm.TextureSystem.Discard(loose)
	assert.False(t, held.Released)
	assert.True(t, loose.Released)
}

func TestCapacityExceeded(t *testing.T) {
	gs, err := NewGeometrySystem(&GeometrySystemConfig{MaxGeometryCount: 1})
	require.NoError(t, err)
	require.NoError(t, gs.Acquire(metadata.NewGeometry("a", nil, nil)))
	assert.Error(t, gs.Acquire(metadata.NewGeometry("b", nil, nil)))
}
