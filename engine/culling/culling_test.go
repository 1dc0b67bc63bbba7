package culling

import (
	"testing"

	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadModel builds a model with one rectangle mesh in the XY plane at depth
// z, facing +Z.
func quadModel(name string, z, minX, maxX, minY, maxY float32, layer int) *metadata.Model {
	n := math.NewVec3(0, 0, 1)
	verts := []math.Vertex3D{
		{Position: math.NewVec3(minX, minY, z), Normal: n},
		{Position: math.NewVec3(maxX, minY, z), Normal: n},
		{Position: math.NewVec3(maxX, maxY, z), Normal: n},
		{Position: math.NewVec3(minX, maxY, z), Normal: n},
	}
	geo := metadata.NewGeometry(name, verts, []uint32{0, 1, 2, 0, 2, 3})
	node := metadata.NewNode(name)
	node.Mesh = metadata.NewMesh(name, geo, metadata.NewMaterial(name))

	m := metadata.NewModel(name, nil)
	m.Scene.Add(node)
	m.Culling.Layer = layer
	return m
}

func geometryOf(m *metadata.Model) *metadata.Geometry {
	return m.Meshes()[0].Geometry
}

func TestHigherLayerHidesCoveredTriangles(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	shirt := quadModel("shirt", 0.1, -1, 2, -0.7, 2.3, 1)

	res := Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 2, res.Participants)
	assert.Equal(t, 2, res.Layers)
	assert.Equal(t, 2, res.HiddenTriangles)

	assert.True(t, geometryOf(body).IsClipped())
	assert.Empty(t, geometryOf(body).Indices())
	assert.Len(t, geometryOf(body).OriginalIndices, 6)
	// the top layer is never culled
	assert.False(t, geometryOf(shirt).IsClipped())
	assert.Len(t, body.Culling.Meshes, 1)
}

func TestPartialCoverageKeepsUncoveredTriangles(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	// covers x in [-1, 0.5]: only vertex 0 and 3 of the body are covered
	patch := quadModel("patch", 0.1, -1, 0.5, -0.7, 2.3, 1)

	res := Update([]*metadata.Model{body, patch})
	assert.Equal(t, 0, res.HiddenTriangles)
	assert.False(t, geometryOf(body).IsClipped())
}

func TestDistanceWindowLimitsOcclusion(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	body.Culling.Far = 0.05
	shirt := quadModel("shirt", 0.1, -1, 2, -0.7, 2.3, 1)

	res := Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 0, res.HiddenTriangles)

	body.Culling.Far = math.Inf()
	body.Culling.Near = 0.2
	res = Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 0, res.HiddenTriangles)
}

func TestNegativeLayerRestoresAndSkips(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	shirt := quadModel("shirt", 0.1, -1, 2, -0.7, 2.3, 1)
	Update([]*metadata.Model{body, shirt})
	require.True(t, geometryOf(body).IsClipped())

	// the shirt is taken off culling; the body comes back
	shirt.Culling.Layer = -1
	res := Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 1, res.Participants)
	assert.False(t, geometryOf(body).IsClipped())
	assert.Len(t, geometryOf(body).Indices(), 6)
	assert.Empty(t, shirt.Culling.Meshes)
}

func TestIgnoredMeshesNeitherCullNorGetCulled(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	shirt := quadModel("shirt", 0.1, -1, 2, -0.7, 2.3, 1)
	shirt.Culling.IgnoreNames = []string{"shirt"}

	res := Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 1, res.Participants)
	assert.False(t, geometryOf(body).IsClipped())

	body.Culling.IgnoreNames = []string{"body"}
	shirt.Culling.IgnoreNames = nil
	res = Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 1, res.Participants)
	assert.False(t, geometryOf(body).IsClipped())
}

func TestWorldTransformIsApplied(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	shirt := quadModel("shirt", 0.1, -1, 2, -0.7, 2.3, 1)
	// move the shirt far away from the body
	shirt.Scene.Transform.SetPosition(math.NewVec3(10, 0, 0))

	res := Update([]*metadata.Model{body, shirt})
	assert.Equal(t, 0, res.HiddenTriangles)
}

func TestRestore(t *testing.T) {
	body := quadModel("body", 0, 0, 1, 0, 1, 0)
	shirt := quadModel("shirt", 0.1, -1, 2, -0.7, 2.3, 1)
	Update([]*metadata.Model{body, shirt})
	Restore([]*metadata.Model{body, shirt, nil})
	assert.False(t, geometryOf(body).IsClipped())
}
