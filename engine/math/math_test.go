package math

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuaternionRotatesRowVectors(t *testing.T) {
	q := NewQuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2, true)
	got := Vec3{1, 0, 0}.Transform(q.ToMat4())
	assert.True(t, got.Compare(Vec3{0, 1, 0}, 1e-5), "got %v", got)

	half := NewQuatFromAxisAngle(NewVec3Up(), math32.Pi, true)
	got = Vec3{1, 2, 3}.Transform(half.ToMat4())
	assert.True(t, got.Compare(Vec3{-1, 2, -3}, 1e-5), "got %v", got)
}

func TestTransformWorldChain(t *testing.T) {
	parent := TransformCreate()
	parent.SetScale(Vec3{2, 2, 2})
	parent.SetPosition(Vec3{0, 10, 0})

	child := TransformCreate()
	child.SetPosition(Vec3{1, 0, 0})
	child.Parent = parent

	got := Vec3{0, 0, 0}.Transform(child.GetWorld())
	assert.True(t, got.Compare(Vec3{2, 10, 0}, 1e-5), "got %v", got)
}

func TestRayIntersectsTriangle(t *testing.T) {
	v0, v1, v2 := Vec3{-1, -1, 1}, Vec3{1, -1, 1}, Vec3{0, 1, 1}

	dist, hit := RayIntersectsTriangle(Vec3{0, 0, 0}, Vec3{0, 0, 1}, v0, v1, v2)
	require.True(t, hit)
	assert.InDelta(t, 1.0, dist, 1e-5)

	dist, hit = RayIntersectsTriangle(Vec3{0, 0, 0}, Vec3{0, 0, -1}, v0, v1, v2)
	require.True(t, hit)
	assert.Less(t, dist, float32(0))

	_, hit = RayIntersectsTriangle(Vec3{5, 5, 0}, Vec3{0, 0, 1}, v0, v1, v2)
	assert.False(t, hit)
}

func TestExtentsIntersectsRay(t *testing.T) {
	e := ExtentsFromPoints([]Vec3{{-1, -1, 1}, {1, 1, 2}})
	assert.True(t, e.IntersectsRay(Vec3{}, Vec3{0, 0, 1}, 0, Inf()))
	assert.False(t, e.IntersectsRay(Vec3{}, Vec3{0, 0, 1}, 0, 0.5))
	assert.False(t, e.IntersectsRay(Vec3{}, Vec3{0, 0, -1}, 0, Inf()))
	assert.False(t, e.IntersectsRay(Vec3{3, 0, 0}, Vec3{0, 0, 1}, 0, Inf()))
}

func TestGeometryGenerateNormals(t *testing.T) {
	verts := []Vertex3D{
		{Position: Vec3{0, 0, 0}},
		{Position: Vec3{1, 0, 0}},
		{Position: Vec3{0, 1, 0}},
	}
	GeometryGenerateNormals(verts, []uint32{0, 1, 2})
	for _, v := range verts {
		assert.True(t, v.Normal.Compare(Vec3{0, 0, 1}, 1e-6), "got %v", v.Normal)
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.R, 1e-6)
	assert.InDelta(t, 128.0/255.0, c.G, 1e-6)
	assert.Equal(t, "#ff8000", c.Hex())

	short, err := ParseHexColor("0xfff")
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", short.Hex())

	_, err = ParseHexColor("nope")
	assert.Error(t, err)

	assert.Equal(t, "#cc6600", c.MulScalar(0.8).Hex())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, float32(0), Clamp(float32(-1), 0, 1))
}
