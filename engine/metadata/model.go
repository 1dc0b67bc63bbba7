package metadata

import "github.com/spaghettifunk/character-studio/engine/math"

// Legacy rig convention authored facing the opposite direction.
const LegacySpecVersion = "0"

type ModelMeta struct {
	// SpecVersion is the avatar format version the model declares ("0", "1"...).
	SpecVersion string
	Title       string
	Author      string
	// Humanoid maps canonical humanoid bone names to bone names in the model.
	Humanoid map[string]string
}

/**
 * @brief Culling settings resolved for one model.
 */
type CullingInfo struct {
	Layer       int
	Near        float32
	Far         float32
	Meshes      []*Mesh
	IgnoreNames []string
}

// DefaultCullingInfo does not participate in culling and is unbounded.
func DefaultCullingInfo() CullingInfo {
	return CullingInfo{Layer: -1, Near: 0, Far: math.Inf()}
}

/**
 * @brief A decoded model. Scene is the root node the model owns.
 */
type Model struct {
	Name     string
	URL      string
	Scene    *Node
	Meta     ModelMeta
	Skeleton *Skeleton
	// Colliders as decoded. CapturedColliders is filled for collider-relevant groups.
	Colliders         []Collider
	CapturedColliders []Collider
	Culling           CullingInfo
	OrientationFixed  bool
	LipSyncBound      bool
	// SizeBytes is the encoded size of the asset.
	SizeBytes int64
}

func NewModel(name string, scene *Node) *Model {
	if scene == nil {
		scene = NewNode(name)
	}
	return &Model{
		Name:    name,
		Scene:   scene,
		Culling: DefaultCullingInfo(),
	}
}

func (m *Model) Meshes() []*Mesh {
	if m == nil {
		return nil
	}
	return m.Scene.Meshes()
}

func (m *Model) IsLegacy() bool {
	return m.Meta.SpecVersion == LegacySpecVersion
}
