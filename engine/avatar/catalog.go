package avatar

import (
	"context"

	"github.com/spaghettifunk/character-studio/engine/loading"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

// Catalog is the read-only trait catalog. *manifest.Provider satisfies it.
type Catalog interface {
	AllGroups() []*metadata.TraitGroup
	Group(groupID string) (*metadata.TraitGroup, error)
	OptionsForGroup(groupID string) ([]*metadata.TraitOption, error)
	Option(groupID, optionID string) (*metadata.SelectedOption, error)
	CustomOption(groupID, url string) (*metadata.SelectedOption, error)
	InitialSelection() []*metadata.SelectedOption
	RandomSelection() []*metadata.SelectedOption
	ResolveExternalSelection(document []byte, ignoreGroups []string) ([]*metadata.SelectedOption, error)
	IsRequired(groupID string) bool
	IsColliderRequired(groupID string) bool
	IsLipSyncSource(groupID string) bool
	ExportScale() float32
	DefaultCulling() metadata.CullingHints
	Conflicts(candidate *metadata.SelectedOption, current map[string]*metadata.SelectedOption) []string
}

// Backend loads assets and raw documents. *assets.AssetManager satisfies it.
type Backend interface {
	loading.Backend
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// EffectSubsystem is told about every model that becomes visible (blink,
// look-at, animation...). Hooks run after the composer state is unlocked, so
// they may call its queries. They must not start another operation.
type EffectSubsystem interface {
	Attach(model *metadata.Model)
}

// EffectDetacher is implemented by effect subsystems that hold on to models.
// Detach runs once the models have left the avatar and their resources were
// released.
type EffectDetacher interface {
	Detach(model *metadata.Model)
}

// LipSyncBinder drives mouth shapes of the group flagged as lip-sync source.
type LipSyncBinder interface {
	Bind(model *metadata.Model)
}

// ExternalSource is an NFT style metadata document, given inline or by location.
type ExternalSource struct {
	Location string
	Data     []byte
}

// SelectionItem is the query view of one worn trait.
type SelectionItem struct {
	Name string
	ID   string
}
