package systems

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

type MaterialSystemConfig struct {
	MaxMaterialCount uint32
}

type materialReference struct {
	ReferenceCount uint64
	Material       *metadata.Material
}

// MaterialSystem counts material references. A registered material holds one
// reference on each texture bound to it.
type MaterialSystem struct {
	Config *MaterialSystemConfig

	mu                  sync.Mutex
	registeredMaterials map[uuid.UUID]*materialReference
	textureSystem       *TextureSystem
}

func NewMaterialSystem(config *MaterialSystemConfig, ts *TextureSystem) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError("%v", err)
		return nil, err
	}
	return &MaterialSystem{
		Config:              config,
		registeredMaterials: make(map[uuid.UUID]*materialReference),
		textureSystem:       ts,
	}, nil
}

func (ms *MaterialSystem) Acquire(material *metadata.Material) error {
	if material == nil {
		return nil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ref, ok := ms.registeredMaterials[material.ID]; ok {
		ref.ReferenceCount++
		return nil
	}
	if uint32(len(ms.registeredMaterials)) >= ms.Config.MaxMaterialCount {
		return fmt.Errorf("unable to register material '%s', adjust MaxMaterialCount", material.Name)
	}
	for _, t := range material.Textures() {
		if err := ms.textureSystem.Acquire(t); err != nil {
			return err
		}
	}
	ms.registeredMaterials[material.ID] = &materialReference{ReferenceCount: 1, Material: material}
	return nil
}

func (ms *MaterialSystem) Release(material *metadata.Material) {
	if material == nil {
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ref, ok := ms.registeredMaterials[material.ID]
	if !ok {
		// never acquired, so it holds no texture references
		for _, t := range material.Textures() {
			ms.textureSystem.Discard(t)
		}
		material.DiffuseMap = nil
		material.ShadeMap = nil
		material.Released = true
		return
	}
	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	if ref.ReferenceCount < 1 {
		ms.destroyMaterial(ref.Material)
		delete(ms.registeredMaterials, material.ID)
	}
}

/**
 * @brief Binds texture as both the lit and shade map of the material. When the
 * material is registered the new texture is acquired before the old ones are released.
 */
func (ms *MaterialSystem) SetTexture(material *metadata.Material, texture *metadata.Texture) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	old := material.Textures()
	material.DiffuseMap = texture
	material.ShadeMap = texture
	material.Transparent = texture != nil && texture.HasTransparency

	if _, ok := ms.registeredMaterials[material.ID]; !ok {
		return nil
	}
	if err := ms.textureSystem.Acquire(texture); err != nil {
		return err
	}
	for _, t := range old {
		ms.textureSystem.Release(t)
	}
	return nil
}

func (ms *MaterialSystem) LiveCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.registeredMaterials)
}

func (ms *MaterialSystem) Shutdown() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for id, ref := range ms.registeredMaterials {
		ms.destroyMaterial(ref.Material)
		delete(ms.registeredMaterials, id)
	}
	return nil
}

// destroyMaterial releases the textures held by the material.
func (ms *MaterialSystem) destroyMaterial(material *metadata.Material) {
	for _, t := range material.Textures() {
		ms.textureSystem.Release(t)
	}
	material.DiffuseMap = nil
	material.ShadeMap = nil
	material.Released = true
}
