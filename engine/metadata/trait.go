package metadata

type TraitKind uint8

const (
	TraitKindModel TraitKind = iota
	TraitKindTexture
	TraitKindColor
)

func (k TraitKind) String() string {
	switch k {
	case TraitKindModel:
		return "model"
	case TraitKindTexture:
		return "texture"
	case TraitKindColor:
		return "color"
	default:
		return "unknown"
	}
}

// CullingHints are optional; nil means "inherit from the next level".
type CullingHints struct {
	Layer       *int
	Distance    *float32
	MaxDistance *float32
}

/**
 * @brief A named slot of the avatar (head, chest, legs...).
 */
type TraitGroup struct {
	ID         string
	Name       string
	IsRequired bool
	Culling    CullingHints
	// RestrictedTraits lists groups that cannot be worn together with this one.
	RestrictedTraits []string
	// RestrictedTypes lists option types that cannot be worn together with this group.
	RestrictedTypes []string
	Options         []*TraitOption
}

/**
 * @brief One catalog entry of a group. Exactly one of Model, Texture or
 * Color is set, matching Kind.
 */
type TraitOption struct {
	ID        string
	Name      string
	Thumbnail string
	GroupID   string
	Kind      TraitKind

	Model   *ModelTrait
	Texture *TextureTrait
	Color   *ColorTrait
}

type ModelTrait struct {
	// Directories are fully resolved asset locations.
	Directories []string
	// MeshTargets restrict texture and colour assignment to the named meshes.
	MeshTargets []string
	// CullingIgnore names meshes that neither cull nor get culled.
	CullingIgnore []string
	Culling       CullingHints
	// Types tag the option for restriction resolution (e.g. "pants").
	Types             []string
	TextureCollection string
	ColorCollection   string
}

type TextureTrait struct {
	Directories []string
}

type ColorTrait struct {
	Values []string
}

/**
 * @brief The options chosen for one group: a model plus, optionally, the
 * texture and colour variants applied to it.
 */
type SelectedOption struct {
	Model   *TraitOption
	Texture *TraitOption
	Color   *TraitOption
}

// GroupID reports the group of the model option, falling back to the variants.
func (s *SelectedOption) GroupID() string {
	if s == nil {
		return ""
	}
	for _, o := range []*TraitOption{s.Model, s.Texture, s.Color} {
		if o != nil {
			return o.GroupID
		}
	}
	return ""
}

func (s *SelectedOption) ModelURLs() []string {
	if s == nil || s.Model == nil || s.Model.Model == nil {
		return nil
	}
	return s.Model.Model.Directories
}

func (s *SelectedOption) TextureURLs() []string {
	if s == nil || s.Texture == nil || s.Texture.Texture == nil {
		return nil
	}
	return s.Texture.Texture.Directories
}

func (s *SelectedOption) ColorValues() []string {
	if s == nil || s.Color == nil || s.Color.Color == nil {
		return nil
	}
	return s.Color.Color.Values
}

/**
 * @brief One slot of a loading batch. A nil Option asks for nothing and
 * resolves to a nil LoadedData.
 */
type LoadRequest struct {
	GroupID string
	Option  *SelectedOption
}
