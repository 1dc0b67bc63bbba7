package metadata

import (
	"github.com/google/uuid"
)

type Mesh struct {
	ID       uuid.UUID
	Name     string
	Geometry *Geometry
	// Materials holds the active material slots.
	Materials []*Material
	// OrigMaterials keeps the authored materials while a debug material is shown.
	OrigMaterials []*Material
	DebugMaterial *Material
	// Skinned meshes are bound to a skeleton.
	Skinned bool
	// Legacy marks meshes of models authored for the 0.x rig convention.
	Legacy bool
	debug  bool
}

func NewMesh(name string, geometry *Geometry, materials ...*Material) *Mesh {
	return &Mesh{
		ID:        uuid.New(),
		Name:      name,
		Geometry:  geometry,
		Materials: materials,
	}
}

// SurfaceMaterial returns the first authored material, where textures and
// colours are applied regardless of the debug state.
func (m *Mesh) SurfaceMaterial() *Material {
	if len(m.OrigMaterials) > 0 {
		return m.OrigMaterials[0]
	}
	if len(m.Materials) > 0 {
		return m.Materials[0]
	}
	return nil
}

// AllMaterials returns every distinct material the mesh references.
func (m *Mesh) AllMaterials() []*Material {
	seen := make(map[*Material]struct{})
	var out []*Material
	add := func(mats ...*Material) {
		for _, mat := range mats {
			if mat == nil {
				continue
			}
			if _, ok := seen[mat]; ok {
				continue
			}
			seen[mat] = struct{}{}
			out = append(out, mat)
		}
	}
	add(m.OrigMaterials...)
	add(m.Materials...)
	add(m.DebugMaterial)
	return out
}

// SetDebugMode swaps the debug material into every slot, or restores the
// authored materials.
func (m *Mesh) SetDebugMode(enabled bool) {
	if m.DebugMaterial == nil || m.debug == enabled {
		return
	}
	m.debug = enabled
	if enabled {
		slots := make([]*Material, len(m.OrigMaterials))
		for i := range slots {
			slots[i] = m.DebugMaterial
		}
		m.Materials = slots
		return
	}
	m.Materials = append([]*Material(nil), m.OrigMaterials...)
}

func (m *Mesh) DebugMode() bool {
	return m.debug
}
