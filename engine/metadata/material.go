package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/math"
)

/**
 * @brief A material, which represents the surface of a mesh: its texture
 * maps and colours.
 */
type Material struct {
	ID   uuid.UUID
	Name string
	/** @brief The lit (diffuse) texture map. */
	DiffuseMap *Texture
	/** @brief The shade texture map used by toon materials. */
	ShadeMap *Texture
	/** @brief The lit colour. */
	Color math.Color
	/** @brief The shade colour. */
	ShadeColor math.Color
	/** @brief Draw as wireframe. */
	Wireframe   bool
	Transparent bool
	Released    bool
}

func NewMaterial(name string) *Material {
	return &Material{
		ID:         uuid.New(),
		Name:       name,
		Color:      math.Color{R: 1, G: 1, B: 1},
		ShadeColor: math.Color{R: 1, G: 1, B: 1},
	}
}

// Textures returns the distinct textures bound to the material.
func (m *Material) Textures() []*Texture {
	var out []*Texture
	if m.DiffuseMap != nil {
		out = append(out, m.DiffuseMap)
	}
	if m.ShadeMap != nil && m.ShadeMap != m.DiffuseMap {
		out = append(out, m.ShadeMap)
	}
	return out
}
