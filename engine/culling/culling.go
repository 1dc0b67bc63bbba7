package culling

import (
	"slices"

	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

// Result summarizes one culling pass.
type Result struct {
	// Participants is the number of meshes with a layer >= 0.
	Participants int
	// Layers is the number of distinct layers among participants.
	Layers int
	// HiddenTriangles counts triangles removed across all meshes.
	HiddenTriangles int
}

// target is one participating mesh with its geometry baked into world space.
type target struct {
	mesh      *metadata.Mesh
	layer     int
	near, far float32
	positions []math.Vec3
	normals   []math.Vec3
	extents   math.Extents3D
}

/**
 * @brief Recomputes hidden faces over every model currently worn.
 *
 * Every geometry is first restored to its original indices. Meshes are then
 * grouped by culling layer; a triangle of a lower layer is hidden when the
 * rays cast from its three vertices along their normals all hit a triangle of
 * some higher layer between the mesh's near and far distance. Layers below
 * zero and meshes named in the model's ignore list never take part.
 */
func Update(models []*metadata.Model) Result {
	targets := collect(models)

	var res Result
	res.Participants = len(targets)
	if len(targets) == 0 {
		return res
	}

	layers := make([]int, 0, len(targets))
	for _, t := range targets {
		layers = append(layers, t.layer)
	}
	slices.Sort(layers)
	layers = slices.Compact(layers)
	res.Layers = len(layers)
	top := layers[len(layers)-1]

	for _, t := range targets {
		if t.layer == top {
			continue
		}
		var occluders []*target
		for _, o := range targets {
			if o.layer > t.layer {
				occluders = append(occluders, o)
			}
		}
		res.HiddenTriangles += clip(t, occluders)
	}
	return res
}

// Restore puts the original index buffers back on every mesh of the models.
func Restore(models []*metadata.Model) {
	for _, m := range models {
		if m == nil || m.Scene == nil {
			continue
		}
		for _, mesh := range m.Scene.Meshes() {
			if mesh.Geometry != nil {
				mesh.Geometry.Restore()
			}
		}
	}
}

func collect(models []*metadata.Model) []*target {
	Restore(models)

	var targets []*target
	for _, m := range models {
		if m == nil || m.Scene == nil {
			continue
		}
		m.Culling.Meshes = nil
		if m.Culling.Layer < 0 {
			continue
		}
		for _, n := range m.Scene.MeshNodes() {
			if slices.Contains(m.Culling.IgnoreNames, n.Mesh.Name) || slices.Contains(m.Culling.IgnoreNames, n.Name) {
				continue
			}
			g := n.Mesh.Geometry
			if g == nil || g.Released || len(g.OriginalIndices) < 3 {
				continue
			}
			m.Culling.Meshes = append(m.Culling.Meshes, n.Mesh)
			targets = append(targets, bake(n, m.Culling))
		}
	}
	return targets
}

func bake(n *metadata.Node, info metadata.CullingInfo) *target {
	world := n.Transform.GetWorld()
	g := n.Mesh.Geometry
	t := &target{
		mesh:      n.Mesh,
		layer:     info.Layer,
		near:      info.Near,
		far:       info.Far,
		positions: make([]math.Vec3, len(g.Vertices)),
		normals:   make([]math.Vec3, len(g.Vertices)),
	}
	for i, v := range g.Vertices {
		t.positions[i] = v.Position.Transform(world)
		t.normals[i] = v.Normal.TransformDirection(world).Normalized()
	}
	t.extents = math.ExtentsFromPoints(t.positions)
	return t
}

// clip hides the triangles of t covered by the occluders and returns how many.
func clip(t *target, occluders []*target) int {
	if len(occluders) == 0 {
		return 0
	}
	g := t.mesh.Geometry
	covered := make(map[uint32]bool, len(g.Vertices))
	isCovered := func(i uint32) bool {
		if c, ok := covered[i]; ok {
			return c
		}
		c := occluded(t.positions[i], t.normals[i], t.near, t.far, occluders)
		covered[i] = c
		return c
	}

	kept := make([]uint32, 0, len(g.OriginalIndices))
	hidden := 0
	for i := 0; i+2 < len(g.OriginalIndices); i += 3 {
		a, b, c := g.OriginalIndices[i], g.OriginalIndices[i+1], g.OriginalIndices[i+2]
		if int(a) < len(t.positions) && int(b) < len(t.positions) && int(c) < len(t.positions) &&
			isCovered(a) && isCovered(b) && isCovered(c) {
			hidden++
			continue
		}
		kept = append(kept, a, b, c)
	}
	if hidden > 0 {
		g.SetClipped(kept)
	}
	return hidden
}

func occluded(origin, dir math.Vec3, near, far float32, occluders []*target) bool {
	if dir.LengthSquared() == 0 {
		return false
	}
	for _, o := range occluders {
		if !o.extents.IntersectsRay(origin, dir, near, far) {
			continue
		}
		idx := o.mesh.Geometry.OriginalIndices
		for i := 0; i+2 < len(idx); i += 3 {
			a, b, c := idx[i], idx[i+1], idx[i+2]
			if int(a) >= len(o.positions) || int(b) >= len(o.positions) || int(c) >= len(o.positions) {
				continue
			}
			d, hit := math.RayIntersectsTriangle(origin, dir, o.positions[a], o.positions[b], o.positions[c])
			if hit && d >= near && d <= far {
				return true
			}
		}
	}
	return false
}
