package systems

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

type textureReference struct {
	ReferenceCount uint64
	Texture        *metadata.Texture
}

type TextureSystem struct {
	Config *TextureSystemConfig

	mu sync.Mutex
	// Hashtable for texture lookups.
	registeredTextureTable map[uuid.UUID]*textureReference
}

func NewTextureSystem(config *TextureSystemConfig) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError("%v", err)
		return nil, err
	}
	return &TextureSystem{
		Config:                 config,
		registeredTextureTable: make(map[uuid.UUID]*textureReference),
	}, nil
}

func (ts *TextureSystem) Acquire(texture *metadata.Texture) error {
	if texture == nil {
		return nil
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ref, ok := ts.registeredTextureTable[texture.ID]; ok {
		ref.ReferenceCount++
		return nil
	}
	if uint32(len(ts.registeredTextureTable)) >= ts.Config.MaxTextureCount {
		return fmt.Errorf("func texture system Acquire failed to obtain a new texture slot for '%s'", texture.Name)
	}
	ts.registeredTextureTable[texture.ID] = &textureReference{ReferenceCount: 1, Texture: texture}
	return nil
}

func (ts *TextureSystem) Release(texture *metadata.Texture) {
	if texture == nil {
		return
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ref, ok := ts.registeredTextureTable[texture.ID]
	if !ok {
		texture.Free()
		return
	}
	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	if ref.ReferenceCount < 1 {
		ref.Texture.Free()
		delete(ts.registeredTextureTable, texture.ID)
	}
}

// Discard frees a texture that no material ever acquired. Registered textures are left alone.
func (ts *TextureSystem) Discard(texture *metadata.Texture) {
	if texture == nil {
		return
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.registeredTextureTable[texture.ID]; !ok {
		texture.Free()
	}
}

func (ts *TextureSystem) ReferenceCount(texture *metadata.Texture) uint64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ref, ok := ts.registeredTextureTable[texture.ID]; ok {
		return ref.ReferenceCount
	}
	return 0
}

func (ts *TextureSystem) LiveCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.registeredTextureTable)
}

func (ts *TextureSystem) Shutdown() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for id, ref := range ts.registeredTextureTable {
		ref.Texture.Free()
		delete(ts.registeredTextureTable, id)
	}
	return nil
}
