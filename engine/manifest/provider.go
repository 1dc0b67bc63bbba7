package manifest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"golang.org/x/exp/rand"
)

// DefaultAttributesQuery extracts OpenSea style attributes.
const DefaultAttributesQuery = ".attributes[]"

/**
 * @brief Answers every catalog question the composer asks. Safe for
 * concurrent use.
 */
type Provider struct {
	manifest *Manifest
	query    *gojq.Code

	mu  sync.Mutex
	rng *rand.Rand
}

func NewProvider(m *Manifest, seed uint64) (*Provider, error) {
	expr := m.AttributesQuery
	if expr == "" {
		expr = DefaultAttributesQuery
	}
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: attributes query %q: %v", core.ErrConfiguration, expr, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("%w: attributes query %q: %v", core.ErrConfiguration, expr, err)
	}
	return &Provider{
		manifest: m,
		query:    code,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

func (p *Provider) Manifest() *Manifest {
	return p.manifest
}

// AllGroups returns the catalog groups in catalog order.
func (p *Provider) AllGroups() []*metadata.TraitGroup {
	return append([]*metadata.TraitGroup(nil), p.manifest.Groups...)
}

func (p *Provider) Group(groupID string) (*metadata.TraitGroup, error) {
	g, ok := p.manifest.groupIndex[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: trait group %q", core.ErrNotFound, groupID)
	}
	return g, nil
}

func (p *Provider) OptionsForGroup(groupID string) ([]*metadata.TraitOption, error) {
	g, err := p.Group(groupID)
	if err != nil {
		return nil, err
	}
	return g.Options, nil
}

func (p *Provider) IsRequired(groupID string) bool {
	g, ok := p.manifest.groupIndex[groupID]
	return ok && g.IsRequired
}

func (p *Provider) IsColliderRequired(groupID string) bool {
	return p.manifest.colliderGroups[groupID]
}

func (p *Provider) IsLipSyncSource(groupID string) bool {
	return p.manifest.lipSyncGroups[groupID]
}

func (p *Provider) ExportScale() float32 {
	return p.manifest.ExportScale
}

// DefaultCulling returns the template level culling hints.
func (p *Provider) DefaultCulling() metadata.CullingHints {
	return p.manifest.DefaultCulling
}

// Option resolves a model option with the first texture and colour of its collections.
func (p *Provider) Option(groupID, optionID string) (*metadata.SelectedOption, error) {
	g, err := p.Group(groupID)
	if err != nil {
		return nil, err
	}
	for _, o := range g.Options {
		if o.ID == optionID {
			return p.selected(o, false), nil
		}
	}
	return nil, fmt.Errorf("%w: option %q in group %q", core.ErrNotFound, optionID, groupID)
}

// CustomOption wraps an arbitrary model location for a catalog group.
func (p *Provider) CustomOption(groupID, url string) (*metadata.SelectedOption, error) {
	if _, err := p.Group(groupID); err != nil {
		return nil, err
	}
	return &metadata.SelectedOption{
		Model: &metadata.TraitOption{
			ID:      "custom",
			Name:    "Custom",
			GroupID: groupID,
			Kind:    metadata.TraitKindModel,
			Model:   &metadata.ModelTrait{Directories: []string{url}},
		},
	}, nil
}

/**
 * @brief The default selection: every required group plus the groups listed
 * as initial (all groups when the list is empty), each with its declared
 * default or first option. Catalog order.
 */
func (p *Provider) InitialSelection() []*metadata.SelectedOption {
	wanted := toSet(p.manifest.initialGroups)
	var out []*metadata.SelectedOption
	for _, g := range p.manifest.Groups {
		if len(g.Options) == 0 {
			continue
		}
		if len(wanted) > 0 && !wanted[g.ID] && !g.IsRequired {
			continue
		}
		opt := g.Options[0]
		if id, ok := p.manifest.defaults[g.ID]; ok {
			for _, o := range g.Options {
				if o.ID == id {
					opt = o
				}
			}
		}
		out = append(out, p.selected(opt, false))
	}
	return out
}

// RandomSelection picks one option per randomizable group, required groups always included.
func (p *Provider) RandomSelection() []*metadata.SelectedOption {
	wanted := toSet(p.manifest.randomGroups)
	var out []*metadata.SelectedOption
	for _, g := range p.manifest.Groups {
		if len(g.Options) == 0 {
			continue
		}
		if len(wanted) > 0 && !wanted[g.ID] && !g.IsRequired {
			continue
		}
		opt := g.Options[p.intn(len(g.Options))]
		out = append(out, p.selected(opt, true))
	}
	return out
}

func (p *Provider) selected(opt *metadata.TraitOption, random bool) *metadata.SelectedOption {
	s := &metadata.SelectedOption{Model: opt}
	if opt.Model == nil {
		return s
	}
	pick := func(list []*metadata.TraitOption) *metadata.TraitOption {
		if len(list) == 0 {
			return nil
		}
		if random {
			return list[p.intn(len(list))]
		}
		return list[0]
	}
	if c := opt.Model.TextureCollection; c != "" {
		s.Texture = pick(p.manifest.TextureCollections[c])
	}
	if c := opt.Model.ColorCollection; c != "" {
		s.Color = pick(p.manifest.ColorCollections[c])
	}
	return s
}

func (p *Provider) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

/**
 * @brief Maps an external metadata document (NFT style JSON) onto catalog
 * options. Attributes naming unknown groups are skipped; a known group with
 * an unknown value fails with ErrNotFound.
 */
func (p *Provider) ResolveExternalSelection(document []byte, ignoreGroups []string) ([]*metadata.SelectedOption, error) {
	doc, err := decodeDocument(document)
	if err != nil {
		return nil, fmt.Errorf("%w: external selection: %v", core.ErrConfiguration, err)
	}
	ignored := toSet(ignoreGroups)

	var out []*metadata.SelectedOption
	seen := make(map[string]bool)
	iter := p.query.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				break
			}
			return nil, fmt.Errorf("%w: external selection query: %v", core.ErrConfiguration, err)
		}
		attr, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		traitType, _ := attr["trait_type"].(string)
		value := fmt.Sprint(attr["value"])
		if traitType == "" {
			continue
		}
		g := p.findGroup(traitType)
		if g == nil {
			core.LogWarn("external selection names unknown trait group %q, skipping", traitType)
			continue
		}
		if ignored[g.ID] || seen[g.ID] {
			continue
		}
		opt := findOption(g, value)
		if opt == nil {
			return nil, fmt.Errorf("%w: option %q in group %q", core.ErrNotFound, value, g.ID)
		}
		seen[g.ID] = true
		out = append(out, p.selected(opt, false))
	}
	return out, nil
}

func (p *Provider) findGroup(name string) *metadata.TraitGroup {
	if g, ok := p.manifest.groupIndex[name]; ok {
		return g
	}
	for _, g := range p.manifest.Groups {
		if strings.EqualFold(g.ID, name) || strings.EqualFold(g.Name, name) {
			return g
		}
	}
	return nil
}

func findOption(g *metadata.TraitGroup, value string) *metadata.TraitOption {
	for _, o := range g.Options {
		if o.ID == value {
			return o
		}
	}
	for _, o := range g.Options {
		if strings.EqualFold(o.Name, value) || strings.EqualFold(o.ID, value) {
			return o
		}
	}
	return nil
}
