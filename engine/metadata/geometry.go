package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/math"
)

/**
 * @brief Represents actual geometry in the world.
 * The original index buffer is never modified; culling swaps a clipped
 * copy in and out.
 */
type Geometry struct {
	ID   uuid.UUID
	Name string
	/** @brief Vertex data in the mesh's local space. */
	Vertices []math.Vertex3D
	/** @brief The index buffer as authored. */
	OriginalIndices []uint32
	/** @brief The index buffer with hidden triangles removed, if culled. */
	ClippedIndices []uint32
	/** @brief The extents of the geometry in local space. */
	Extents math.Extents3D
	clipped bool
	/** @brief Set once the buffers have been freed. */
	Released bool
}

func NewGeometry(name string, vertices []math.Vertex3D, indices []uint32) *Geometry {
	g := &Geometry{
		ID:              uuid.New(),
		Name:            name,
		Vertices:        vertices,
		OriginalIndices: indices,
	}
	points := make([]math.Vec3, len(vertices))
	for i, v := range vertices {
		points[i] = v.Position
	}
	g.Extents = math.ExtentsFromPoints(points)
	return g
}

// Indices returns the active index buffer.
func (g *Geometry) Indices() []uint32 {
	if g.clipped {
		return g.ClippedIndices
	}
	return g.OriginalIndices
}

func (g *Geometry) IsClipped() bool {
	return g.clipped
}

// SetClipped installs a clipped index buffer while keeping the original.
func (g *Geometry) SetClipped(indices []uint32) {
	g.ClippedIndices = indices
	g.clipped = true
}

// Restore reinstates the original index buffer.
func (g *Geometry) Restore() {
	g.ClippedIndices = nil
	g.clipped = false
}

func (g *Geometry) TriangleCount() int {
	return len(g.Indices()) / 3
}

// Free drops every buffer. The geometry cannot be used afterwards.
func (g *Geometry) Free() {
	g.Vertices = nil
	g.OriginalIndices = nil
	g.ClippedIndices = nil
	g.clipped = false
	g.Released = true
}
