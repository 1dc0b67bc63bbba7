package systems

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

type GeometrySystemConfig struct {
	/** @brief The maximum number of geometries that can be registered at once. */
	MaxGeometryCount uint32
}

type geometryReference struct {
	ReferenceCount uint64
	Geometry       *metadata.Geometry
}

type GeometrySystem struct {
	Config *GeometrySystemConfig

	mu                   sync.Mutex
	registeredGeometries map[uuid.UUID]*geometryReference
}

func NewGeometrySystem(config *GeometrySystemConfig) (*GeometrySystem, error) {
	if config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogWarn("%v", err)
		return nil, err
	}
	return &GeometrySystem{
		Config:               config,
		registeredGeometries: make(map[uuid.UUID]*geometryReference),
	}, nil
}

/**
 * @brief Acquires a reference to the geometry, registering it on first use.
 */
func (gs *GeometrySystem) Acquire(geometry *metadata.Geometry) error {
	if geometry == nil {
		return nil
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if ref, ok := gs.registeredGeometries[geometry.ID]; ok {
		ref.ReferenceCount++
		return nil
	}
	if uint32(len(gs.registeredGeometries)) >= gs.Config.MaxGeometryCount {
		return fmt.Errorf("unable to register geometry '%s': %d slots in use, adjust MaxGeometryCount", geometry.Name, len(gs.registeredGeometries))
	}
	gs.registeredGeometries[geometry.ID] = &geometryReference{ReferenceCount: 1, Geometry: geometry}
	return nil
}

/**
 * @brief Releases a reference to the provided geometry. Buffers are freed
 * when no references remain. Unregistered geometries are freed directly.
 */
func (gs *GeometrySystem) Release(geometry *metadata.Geometry) {
	if geometry == nil {
		return
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	ref, ok := gs.registeredGeometries[geometry.ID]
	if !ok {
		core.LogDebug("geometry '%s' released without registration, freeing", geometry.Name)
		geometry.Free()
		return
	}
	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	if ref.ReferenceCount < 1 {
		ref.Geometry.Free()
		delete(gs.registeredGeometries, geometry.ID)
	}
}

func (gs *GeometrySystem) ReferenceCount(geometry *metadata.Geometry) uint64 {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if ref, ok := gs.registeredGeometries[geometry.ID]; ok {
		return ref.ReferenceCount
	}
	return 0
}

// LiveCount is the number of registered geometries.
func (gs *GeometrySystem) LiveCount() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.registeredGeometries)
}

func (gs *GeometrySystem) Shutdown() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	for id, ref := range gs.registeredGeometries {
		ref.Geometry.Free()
		delete(gs.registeredGeometries, id)
	}
	return nil
}
