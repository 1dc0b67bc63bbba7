package systems

type SystemManagerConfig struct {
	MaxGeometryCount uint32 `toml:"max_geometry_count" env:"MAX_GEOMETRY_COUNT"`
	MaxMaterialCount uint32 `toml:"max_material_count" env:"MAX_MATERIAL_COUNT"`
	MaxTextureCount  uint32 `toml:"max_texture_count" env:"MAX_TEXTURE_COUNT"`
}

func DefaultSystemManagerConfig() SystemManagerConfig {
	return SystemManagerConfig{
		MaxGeometryCount: 4096,
		MaxMaterialCount: 4096,
		MaxTextureCount:  1024,
	}
}

type SystemManager struct {
	GeometrySystem *GeometrySystem
	MaterialSystem *MaterialSystem
	TextureSystem  *TextureSystem
}

func NewSystemManager(config SystemManagerConfig) (*SystemManager, error) {
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
	})
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.MaxMaterialCount,
	}, ts)
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(&GeometrySystemConfig{
		MaxGeometryCount: config.MaxGeometryCount,
	})
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		GeometrySystem: gs,
		MaterialSystem: ms,
		TextureSystem:  ts,
	}, nil
}

// LiveCounts reports registered geometries, materials and textures.
func (sm *SystemManager) LiveCounts() (int, int, int) {
	return sm.GeometrySystem.LiveCount(), sm.MaterialSystem.LiveCount(), sm.TextureSystem.LiveCount()
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
