package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

// CustomGroupID is the single group of the optimizer catalog.
const CustomGroupID = "CUSTOM"

// FormatFromPath picks the decoder from the file extension, defaulting to JSON.
func FormatFromPath(location string) Format {
	p := location
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

/**
 * @brief A validated trait catalog.
 */
type Manifest struct {
	AssetsLocation  string
	TraitsDirectory string

	ExportScale    float32
	DefaultCulling metadata.CullingHints

	// Groups in catalog order.
	Groups             []*metadata.TraitGroup
	TextureCollections map[string][]*metadata.TraitOption
	ColorCollections   map[string][]*metadata.TraitOption
	TypeRestrictions   map[string][]string
	AttributesQuery    string

	colliderGroups map[string]bool
	lipSyncGroups  map[string]bool
	initialGroups  []string
	randomGroups   []string
	defaults       map[string]string
	groupIndex     map[string]*metadata.TraitGroup
}

// Parse decodes and validates a catalog document.
func Parse(data []byte, format Format) (*Manifest, error) {
	doc, err := toJSON(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", core.ErrConfiguration, err)
	}
	var raw rawManifest
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", core.ErrConfiguration, err)
	}
	m, err := build(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid manifest: %v", core.ErrConfiguration, err)
	}
	return m, nil
}

func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.YAMLToJSON(data)
	case FormatTOML:
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	default:
		return data, nil
	}
}

// NewOptimizerManifest returns the catalog used to inspect a single arbitrary model.
func NewOptimizerManifest() *Manifest {
	m := &Manifest{
		ExportScale:        1,
		TextureCollections: map[string][]*metadata.TraitOption{},
		ColorCollections:   map[string][]*metadata.TraitOption{},
		colliderGroups:     map[string]bool{CustomGroupID: true},
		lipSyncGroups:      map[string]bool{},
		defaults:           map[string]string{},
		groupIndex:         map[string]*metadata.TraitGroup{},
	}
	g := &metadata.TraitGroup{ID: CustomGroupID, Name: "Custom"}
	m.Groups = []*metadata.TraitGroup{g}
	m.groupIndex[g.ID] = g
	return m
}

func build(raw *rawManifest) (*Manifest, error) {
	m := &Manifest{
		AssetsLocation:     raw.AssetsLocation,
		TraitsDirectory:    raw.TraitsDirectory,
		ExportScale:        1,
		TextureCollections: make(map[string][]*metadata.TraitOption),
		ColorCollections:   make(map[string][]*metadata.TraitOption),
		TypeRestrictions:   raw.TypeRestrictions,
		AttributesQuery:    raw.ExternalAttributesQuery,
		colliderGroups:     toSet(raw.ColliderTraits),
		lipSyncGroups:      toSet(raw.LipSyncTraits),
		initialGroups:      raw.InitialTraits,
		randomGroups:       raw.RandomTraits,
		defaults:           make(map[string]string),
		groupIndex:         make(map[string]*metadata.TraitGroup),
		DefaultCulling: metadata.CullingHints{
			Layer:       raw.DefaultCullingLayer,
			Distance:    raw.DefaultCullingDistance,
			MaxDistance: raw.MaxCullingDistance,
		},
	}
	if raw.ExportScale != nil {
		if *raw.ExportScale <= 0 {
			return nil, fmt.Errorf("exportScale must be > 0, got %v", *raw.ExportScale)
		}
		m.ExportScale = *raw.ExportScale
	}
	if len(raw.Traits) == 0 {
		return nil, fmt.Errorf("no traits declared")
	}

	for _, rc := range raw.TextureCollections {
		opts, err := m.buildVariants(rc, metadata.TraitKindTexture)
		if err != nil {
			return nil, err
		}
		m.TextureCollections[rc.Trait] = opts
	}
	for _, rc := range raw.ColorCollections {
		opts, err := m.buildVariants(rc, metadata.TraitKindColor)
		if err != nil {
			return nil, err
		}
		m.ColorCollections[rc.Trait] = opts
	}

	required := toSet(raw.RequiredTraits)
	for _, rg := range raw.Traits {
		if rg.Trait == "" {
			return nil, fmt.Errorf("trait group without id")
		}
		if _, dup := m.groupIndex[rg.Trait]; dup {
			return nil, fmt.Errorf("duplicate trait group %q", rg.Trait)
		}
		g := &metadata.TraitGroup{
			ID:               rg.Trait,
			Name:             firstNonEmpty(rg.Name, rg.Trait),
			IsRequired:       rg.IsRequired || required[rg.Trait],
			RestrictedTraits: rg.RestrictedTraits,
			RestrictedTypes:  rg.RestrictedTypes,
			Culling: metadata.CullingHints{
				Layer:       rg.CullingLayer,
				Distance:    rg.CullingDistance,
				MaxDistance: rg.MaxCullingDistance,
			},
		}
		seen := make(map[string]bool)
		for _, item := range rg.Collection {
			if item.ID == "" {
				return nil, fmt.Errorf("group %q: option without id", g.ID)
			}
			if seen[item.ID] {
				return nil, fmt.Errorf("group %q: duplicate option %q", g.ID, item.ID)
			}
			seen[item.ID] = true
			if len(item.Directory) == 0 {
				return nil, fmt.Errorf("group %q option %q: model option without directory", g.ID, item.ID)
			}
			if item.TextureCollection != "" {
				if _, ok := m.TextureCollections[item.TextureCollection]; !ok {
					return nil, fmt.Errorf("group %q option %q: unknown texture collection %q", g.ID, item.ID, item.TextureCollection)
				}
			}
			if item.ColorCollection != "" {
				if _, ok := m.ColorCollections[item.ColorCollection]; !ok {
					return nil, fmt.Errorf("group %q option %q: unknown color collection %q", g.ID, item.ID, item.ColorCollection)
				}
			}
			g.Options = append(g.Options, &metadata.TraitOption{
				ID:        item.ID,
				Name:      firstNonEmpty(item.Name, item.ID),
				Thumbnail: item.Thumbnail,
				GroupID:   g.ID,
				Kind:      metadata.TraitKindModel,
				Model: &metadata.ModelTrait{
					Directories:   m.resolveAll(item.Directory),
					MeshTargets:   item.MeshTargets,
					CullingIgnore: item.CullingIgnore,
					Culling: metadata.CullingHints{
						Layer:       item.CullingLayer,
						Distance:    item.CullingDistance,
						MaxDistance: item.MaxCullingDistance,
					},
					Types:             item.Type,
					TextureCollection: item.TextureCollection,
					ColorCollection:   item.ColorCollection,
				},
			})
		}
		if rg.Default != "" {
			if !seen[rg.Default] {
				return nil, fmt.Errorf("group %q: default option %q not in collection", g.ID, rg.Default)
			}
			m.defaults[g.ID] = rg.Default
		}
		m.Groups = append(m.Groups, g)
		m.groupIndex[g.ID] = g
	}

	for _, list := range [][]string{raw.RequiredTraits, raw.InitialTraits, raw.RandomTraits} {
		for _, id := range list {
			if _, ok := m.groupIndex[id]; !ok {
				return nil, fmt.Errorf("unknown trait group %q referenced", id)
			}
		}
	}
	return m, nil
}

func (m *Manifest) buildVariants(rc rawCollection, kind metadata.TraitKind) ([]*metadata.TraitOption, error) {
	if rc.Trait == "" {
		return nil, fmt.Errorf("%s collection without id", kind)
	}
	out := make([]*metadata.TraitOption, 0, len(rc.Collection))
	for _, item := range rc.Collection {
		if item.ID == "" {
			return nil, fmt.Errorf("%s collection %q: entry without id", kind, rc.Trait)
		}
		opt := &metadata.TraitOption{
			ID:        item.ID,
			Name:      firstNonEmpty(item.Name, item.ID),
			Thumbnail: item.Thumbnail,
			GroupID:   rc.Trait,
			Kind:      kind,
		}
		switch kind {
		case metadata.TraitKindTexture:
			if len(item.Directory) == 0 {
				return nil, fmt.Errorf("texture %q in %q without directory", item.ID, rc.Trait)
			}
			opt.Texture = &metadata.TextureTrait{Directories: m.resolveAll(item.Directory)}
		case metadata.TraitKindColor:
			if len(item.Value) == 0 {
				return nil, fmt.Errorf("color %q in %q without value", item.ID, rc.Trait)
			}
			for _, v := range item.Value {
				if _, err := math.ParseHexColor(v); err != nil {
					return nil, fmt.Errorf("color %q in %q: %v", item.ID, rc.Trait, err)
				}
			}
			opt.Color = &metadata.ColorTrait{Values: item.Value}
		}
		out = append(out, opt)
	}
	return out, nil
}

// ResolveLocation joins a catalog-relative directory with the asset base.
// Absolute URLs are returned unchanged.
func (m *Manifest) ResolveLocation(dir string) string {
	if strings.Contains(dir, "://") {
		return dir
	}
	base := m.AssetsLocation + m.TraitsDirectory
	if base == "" {
		return dir
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(dir, "/")
}

func (m *Manifest) resolveAll(dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = m.ResolveLocation(d)
	}
	return out
}

func toSet(list []string) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, v := range list {
		out[v] = true
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
