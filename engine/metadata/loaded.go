package metadata

import "github.com/spaghettifunk/character-studio/engine/math"

/**
 * @brief The resolved result of one LoadRequest slot. Models is nil for a
 * removal item. Failed assets leave a nil element at their index.
 */
type LoadedData struct {
	GroupID  string
	Source   *SelectedOption
	Models   []*Model
	Textures []*Texture
	Colors   []math.Color
	// Aborted marks a slot that failed as a whole. Integration leaves the
	// group as it was.
	Aborted bool
}

// NewRemoval builds the item that empties a group during integration.
func NewRemoval(groupID string) *LoadedData {
	return &LoadedData{GroupID: groupID}
}

func NewAborted(groupID string, source *SelectedOption) *LoadedData {
	return &LoadedData{GroupID: groupID, Source: source, Models: []*Model{}, Aborted: true}
}

func (d *LoadedData) IsRemoval() bool {
	return d == nil || (d.Models == nil && !d.Aborted)
}

// TextureAt returns textures[i] when present, otherwise textures[0].
func (d *LoadedData) TextureAt(i int) *Texture {
	if d == nil || len(d.Textures) == 0 {
		return nil
	}
	if i < len(d.Textures) && d.Textures[i] != nil {
		return d.Textures[i]
	}
	return d.Textures[0]
}

// ColorAt returns colors[i] when present, otherwise colors[0].
func (d *LoadedData) ColorAt(i int) (math.Color, bool) {
	if d == nil || len(d.Colors) == 0 {
		return math.Color{}, false
	}
	if i < len(d.Colors) {
		return d.Colors[i], true
	}
	return d.Colors[0], true
}

// FailedCount is the number of model or texture handles that did not load.
func (d *LoadedData) FailedCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, m := range d.Models {
		if m == nil {
			n++
		}
	}
	for _, t := range d.Textures {
		if t == nil {
			n++
		}
	}
	return n
}
