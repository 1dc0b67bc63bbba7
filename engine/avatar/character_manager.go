package avatar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/culling"
	"github.com/spaghettifunk/character-studio/engine/loading"
	"github.com/spaghettifunk/character-studio/engine/manifest"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"github.com/spaghettifunk/character-studio/engine/systems"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/rand"
)

const tracerName = "github.com/spaghettifunk/character-studio/engine/avatar"

type Config struct {
	// EnableRestrictions removes worn traits that cannot be combined with a newly requested one.
	EnableRestrictions bool `toml:"enable_restrictions" env:"ENABLE_RESTRICTIONS"`
	// DebugMode shows the wireframe material on every mesh.
	DebugMode bool `toml:"debug_mode" env:"DEBUG_MODE"`
	// Seed drives random selections and debug colours.
	Seed           uint64 `toml:"seed" env:"SEED"`
	FailureHistory int    `toml:"failure_history" env:"FAILURE_HISTORY"`
}

/**
 * @brief The live representation of one group's current selection. Scene
 * is the group node owning every model part.
 */
type AvatarEntry struct {
	TraitInfo   *metadata.TraitOption
	TextureInfo *metadata.TraitOption
	ColorInfo   *metadata.TraitOption
	Name        string
	Scene       *metadata.Node
	// Model is the first model part that loaded, nil when none did.
	Model  *metadata.Model
	Models []*metadata.Model
}

type pendingEvent struct {
	code core.SystemEventCode
	ctx  core.EventContext
}

// pendingWork collects what integration owes to the outside world. It is
// flushed once the state lock is released: hooks first, in the order they were
// queued, then events.
type pendingWork struct {
	hooks  []func()
	events []pendingEvent
}

func (w *pendingWork) hook(fn func()) { w.hooks = append(w.hooks, fn) }

func (w *pendingWork) event(code core.SystemEventCode, ctx core.EventContext) {
	w.events = append(w.events, pendingEvent{code, ctx})
}

/**
 * @brief Owns the avatar state. Loads are fanned out through the trait
 * loading manager and integrated one item at a time under the state lock:
 * dispose the previous entry of a group, attach the new one, then recompute
 * culling over everything worn.
 *
 * Operations are serialized; queries may run concurrently with them.
 */
type CharacterManager struct {
	config  Config
	backend Backend
	loader  *loading.TraitLoadingManager
	systems *systems.SystemManager
	events  *core.EventBus
	logger  *log.Logger
	tracer  trace.Tracer

	effects []EffectSubsystem
	lipSync LipSyncBinder

	opMu sync.Mutex

	mu      sync.RWMutex
	catalog Catalog
	root    *metadata.Node
	avatar  map[string]*AvatarEntry
	debug   bool
	rng     *rand.Rand
}

func NewCharacterManager(config *Config, backend Backend, sm *systems.SystemManager, events *core.EventBus) (*CharacterManager, error) {
	if config == nil {
		config = &Config{}
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: character manager needs an asset backend", core.ErrConfiguration)
	}
	if sm == nil {
		return nil, fmt.Errorf("%w: character manager needs the resource systems", core.ErrConfiguration)
	}
	if events == nil {
		events = core.NewEventBus()
	}

	cm := &CharacterManager{
		config:  *config,
		backend: backend,
		systems: sm,
		events:  events,
		logger:  core.LogWith("component", "avatar"),
		tracer:  otel.Tracer(tracerName),
		root:    metadata.NewNode("avatar"),
		avatar:  make(map[string]*AvatarEntry),
		debug:   config.DebugMode,
		rng:     rand.New(rand.NewSource(config.Seed)),
	}

	loader, err := loading.NewTraitLoadingManager(backend, loading.Options{
		FailureHistory: config.FailureHistory,
		OnProgress: func(percent float64) {
			cm.events.Fire(core.EventLoadProgress, cm, core.EventContext{Percent: int(percent)})
		},
	})
	if err != nil {
		return nil, err
	}
	cm.loader = loader
	return cm, nil
}

// AddEffect registers a subsystem notified of every newly attached model.
func (cm *CharacterManager) AddEffect(effect EffectSubsystem) {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cm.effects = append(cm.effects, effect)
}

func (cm *CharacterManager) SetLipSyncBinder(binder LipSyncBinder) {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cm.lipSync = binder
}

func (cm *CharacterManager) Events() *core.EventBus {
	return cm.events
}

func (cm *CharacterManager) Loader() *loading.TraitLoadingManager {
	return cm.loader
}

// Root is the persistent node every group node is attached under.
func (cm *CharacterManager) Root() *metadata.Node {
	return cm.root
}

/* ---------------------------------------------------------------- catalog */

// LoadManifest fetches, parses and installs a catalog.
func (cm *CharacterManager) LoadManifest(ctx context.Context, location string) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()

	data, err := cm.backend.Fetch(ctx, location)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(data, manifest.FormatFromPath(location))
	if err != nil {
		return err
	}
	p, err := manifest.NewProvider(m, cm.config.Seed)
	if err != nil {
		return err
	}
	cm.setCatalog(p)
	cm.logger.Info("catalog loaded", "location", location, "groups", len(m.Groups))
	return nil
}

func (cm *CharacterManager) SetManifest(catalog Catalog) {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cm.setCatalog(catalog)
}

// RemoveManifest forgets the catalog. Worn traits stay.
func (cm *CharacterManager) RemoveManifest() {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cm.mu.Lock()
	cm.catalog = nil
	cm.mu.Unlock()
}

// LoadOptimizerManifest installs a catalog with the single CUSTOM group used
// to inspect arbitrary models.
func (cm *CharacterManager) LoadOptimizerManifest() error {
	p, err := manifest.NewProvider(manifest.NewOptimizerManifest(), cm.config.Seed)
	if err != nil {
		return err
	}
	cm.SetManifest(p)
	return nil
}

func (cm *CharacterManager) LoadOptimizerCharacter(ctx context.Context, url string) error {
	return cm.LoadCustomTrait(ctx, manifest.CustomGroupID, url)
}

func (cm *CharacterManager) setCatalog(catalog Catalog) {
	cm.mu.Lock()
	cm.catalog = catalog
	cm.mu.Unlock()
	cm.events.Fire(core.EventManifestLoaded, cm, core.EventContext{})
}

func (cm *CharacterManager) requireCatalog(op string) (Catalog, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog loaded, %s", core.ErrConfiguration, op)
	}
	return cm.catalog, nil
}

/* ------------------------------------------------------------- operations */

func (cm *CharacterManager) LoadInitialTraits(ctx context.Context) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("initial traits cannot be loaded")
	if err != nil {
		return err
	}
	return cm.loadSelections(ctx, cat, cat.InitialSelection(), false)
}

func (cm *CharacterManager) LoadRandomTraits(ctx context.Context) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("random traits cannot be loaded")
	if err != nil {
		return err
	}
	return cm.loadSelections(ctx, cat, cat.RandomSelection(), false)
}

func (cm *CharacterManager) LoadTrait(ctx context.Context, groupID, optionID string) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("trait cannot be loaded")
	if err != nil {
		return err
	}
	sel, err := cat.Option(groupID, optionID)
	if err != nil {
		return err
	}
	return cm.loadSelections(ctx, cat, []*metadata.SelectedOption{sel}, false)
}

// LoadCustomTrait loads a model location into a catalog group, bypassing its
// options.
func (cm *CharacterManager) LoadCustomTrait(ctx context.Context, groupID, url string) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("custom trait cannot be loaded")
	if err != nil {
		return err
	}
	sel, err := cat.CustomOption(groupID, url)
	if err != nil {
		return err
	}
	return cm.loadSelections(ctx, cat, []*metadata.SelectedOption{sel}, false)
}

// LoadTraitsFromExternalSelection resolves an NFT style document against the
// catalog and loads the result.
func (cm *CharacterManager) LoadTraitsFromExternalSelection(ctx context.Context, source ExternalSource, fullReplace bool, ignoreGroups []string) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("external traits cannot be loaded")
	if err != nil {
		return err
	}

	data := source.Data
	if len(data) == 0 {
		if source.Location == "" {
			return fmt.Errorf("%w: external selection has neither data nor location", core.ErrPrecondition)
		}
		if data, err = cm.backend.Fetch(ctx, source.Location); err != nil {
			return err
		}
	}
	sels, err := cat.ResolveExternalSelection(data, ignoreGroups)
	if err != nil {
		return err
	}
	return cm.loadSelections(ctx, cat, sels, fullReplace)
}

// LoadCustomTexture swaps the texture of a group's current model. A texture
// that cannot be fetched is logged and the model is left as it was.
func (cm *CharacterManager) LoadCustomTexture(ctx context.Context, groupID, url string) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("custom texture cannot be loaded")
	if err != nil {
		return err
	}
	if _, err := cat.Group(groupID); err != nil {
		return err
	}

	cm.mu.RLock()
	entry := cm.avatar[groupID]
	cm.mu.RUnlock()
	if entry == nil || entry.Model == nil {
		return fmt.Errorf("%w: group %q has no model to texture", core.ErrPrecondition, groupID)
	}

	tex, err := cm.backend.LoadTexture(ctx, url, nil)
	if err != nil {
		cm.logger.Error("custom texture not applied", "group", groupID, "err", err)
		return nil
	}

	var targets []string
	if entry.TraitInfo != nil && entry.TraitInfo.Model != nil {
		targets = entry.TraitInfo.Model.MeshTargets
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	bound := 0
	for _, m := range entry.Models {
		for _, mesh := range meshTargets(m, targets) {
			mat := mesh.SurfaceMaterial()
			if mat == nil {
				continue
			}
			if err := cm.systems.MaterialSystem.SetTexture(mat, tex); err != nil {
				cm.logger.Warn("binding texture", "mesh", mesh.Name, "err", err)
				continue
			}
			bound++
		}
	}
	if bound == 0 {
		cm.systems.TextureSystem.Discard(tex)
	}
	return nil
}

// RemoveTrait empties a group. Required groups are only removed with force.
func (cm *CharacterManager) RemoveTrait(groupID string, force bool) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()
	cat, err := cm.requireCatalog("trait cannot be removed")
	if err != nil {
		return err
	}
	if _, err := cat.Group(groupID); err != nil {
		cm.logger.Warn("no such group", "group", groupID)
		return err
	}
	if cat.IsRequired(groupID) && !force {
		cm.logger.Warn("group is required and cannot be removed", "group", groupID)
		return fmt.Errorf("%w: group %q is required", core.ErrPrecondition, groupID)
	}

	var work pendingWork
	cm.mu.Lock()
	cm.removeLocked(groupID, &work)
	cm.cullLocked(&work)
	cm.mu.Unlock()
	cm.flush(&work)
	return nil
}

// RemoveAll empties every group, required ones included.
func (cm *CharacterManager) RemoveAll() {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()

	var work pendingWork
	cm.mu.Lock()
	groups := make([]string, 0, len(cm.avatar))
	for g := range cm.avatar {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		cm.removeLocked(g, &work)
	}
	cm.cullLocked(&work)
	cm.mu.Unlock()
	cm.flush(&work)
}

// UpdateCulling recomputes hidden faces over the current state.
func (cm *CharacterManager) UpdateCulling() culling.Result {
	cm.mu.Lock()
	res := cm.cull()
	cm.mu.Unlock()
	cm.flush(&pendingWork{events: []pendingEvent{cullingEvent(res)}})
	return res
}

// SetDebugMode swaps the wireframe material in or out on every worn mesh.
func (cm *CharacterManager) SetDebugMode(enabled bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.debug = enabled
	for _, e := range cm.avatar {
		for _, m := range e.Models {
			for _, mesh := range m.Meshes() {
				mesh.SetDebugMode(enabled)
			}
		}
	}
}

func (cm *CharacterManager) Shutdown() error {
	cm.RemoveAll()
	return nil
}

/* ---------------------------------------------------------------- queries */

// Selection maps every worn group to the name and id of its option.
func (cm *CharacterManager) Selection() map[string]SelectionItem {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make(map[string]SelectionItem, len(cm.avatar))
	for g, e := range cm.avatar {
		item := SelectionItem{Name: e.Name}
		if e.TraitInfo != nil {
			item.ID = e.TraitInfo.ID
		}
		out[g] = item
	}
	return out
}

func (cm *CharacterManager) CurrentOption(groupID string) *metadata.TraitOption {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if e := cm.avatar[groupID]; e != nil {
		return e.TraitInfo
	}
	return nil
}

func (cm *CharacterManager) CurrentModel(groupID string) *metadata.Model {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if e := cm.avatar[groupID]; e != nil {
		return e.Model
	}
	return nil
}

func (cm *CharacterManager) Entry(groupID string) (*AvatarEntry, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	e, ok := cm.avatar[groupID]
	return e, ok
}

func (cm *CharacterManager) AllCatalogGroups() ([]*metadata.TraitGroup, error) {
	cat, err := cm.requireCatalog("no groups to list")
	if err != nil {
		return nil, err
	}
	return cat.AllGroups(), nil
}

func (cm *CharacterManager) IsGroupRequired(groupID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.catalog != nil && cm.catalog.IsRequired(groupID)
}

/* ------------------------------------------------------------ integration */

func (cm *CharacterManager) loadSelections(ctx context.Context, cat Catalog, sels []*metadata.SelectedOption, fullReplace bool) error {
	ctx, span := cm.tracer.Start(ctx, "avatar.load", trace.WithAttributes(
		attribute.Int("selections", len(sels)),
		attribute.Bool("full_replace", fullReplace),
	))
	defer span.End()

	requests := make([]metadata.LoadRequest, 0, len(sels))
	for _, s := range sels {
		if s == nil {
			continue
		}
		requests = append(requests, metadata.LoadRequest{GroupID: s.GroupID(), Option: s})
	}
	if cm.config.EnableRestrictions {
		requests = cm.withRestrictions(cat, requests)
	}

	results := cm.loader.LoadBatch(ctx, requests)
	cm.integrate(cat, requests, results, fullReplace)
	return nil
}

// withRestrictions appends a removal request for every worn, non-required
// group that cannot be combined with a requested option.
func (cm *CharacterManager) withRestrictions(cat Catalog, requests []metadata.LoadRequest) []metadata.LoadRequest {
	requested := make(map[string]bool, len(requests))
	for _, r := range requests {
		requested[r.GroupID] = true
	}

	cm.mu.RLock()
	current := make(map[string]*metadata.SelectedOption, len(cm.avatar))
	for g, e := range cm.avatar {
		if requested[g] {
			continue
		}
		current[g] = &metadata.SelectedOption{Model: e.TraitInfo, Texture: e.TextureInfo, Color: e.ColorInfo}
	}
	cm.mu.RUnlock()

	scheduled := make(map[string]bool)
	for _, r := range requests {
		for _, g := range cat.Conflicts(r.Option, current) {
			if scheduled[g] {
				continue
			}
			if cat.IsRequired(g) {
				cm.logger.Warn("restriction ignored for required group", "group", g, "requested", r.GroupID)
				continue
			}
			scheduled[g] = true
			cm.logger.Info("removing restricted trait", "group", g, "requested", r.GroupID)
			requests = append(requests, metadata.LoadRequest{GroupID: g})
		}
	}
	return requests
}

// integrate applies the batch results strictly in order. A nil result empties
// its group; an aborted one leaves it alone.
func (cm *CharacterManager) integrate(cat Catalog, requests []metadata.LoadRequest, results []*metadata.LoadedData, fullReplace bool) {
	items := make([]*metadata.LoadedData, 0, len(results))
	present := make(map[string]bool, len(requests))
	for i, r := range results {
		present[requests[i].GroupID] = true
		switch {
		case r == nil:
			items = append(items, metadata.NewRemoval(requests[i].GroupID))
		case r.Aborted:
			cm.logger.Warn("trait not updated", "group", r.GroupID)
		default:
			items = append(items, r)
		}
	}

	var work pendingWork
	cm.mu.Lock()
	if fullReplace {
		for _, g := range cat.AllGroups() {
			if present[g.ID] || cm.avatar[g.ID] == nil || cat.IsRequired(g.ID) {
				continue
			}
			items = append(items, metadata.NewRemoval(g.ID))
		}
	}
	for _, item := range items {
		if item.IsRemoval() {
			cm.removeLocked(item.GroupID, &work)
			continue
		}
		cm.attachLocked(cat, item, &work)
	}
	cm.cullLocked(&work)
	cm.mu.Unlock()

	cm.flush(&work)
}

func (cm *CharacterManager) attachLocked(cat Catalog, data *metadata.LoadedData, work *pendingWork) {
	group, _ := cat.Group(data.GroupID)

	node := metadata.NewNode(data.GroupID)
	var models []*metadata.Model
	for _, m := range data.Models {
		if m == nil {
			continue
		}
		cm.setupModel(m, data.GroupID, group, data)
		node.Add(m.Scene)
		models = append(models, m)
	}

	if err := cm.systems.RegisterNode(node); err != nil {
		cm.logger.Error("trait not attached", "group", data.GroupID, "err", err)
		cm.systems.DisposeNode(node)
		cm.discardTextures(data)
		return
	}

	if old := cm.avatar[data.GroupID]; old != nil {
		cm.disposeEntry(old, work)
	}
	cm.root.Add(node)
	cm.discardTextures(data)

	binder, effects := cm.lipSync, cm.effects
	for _, m := range models {
		m := m
		if m.LipSyncBound && binder != nil {
			work.hook(func() { binder.Bind(m) })
		}
		for _, e := range effects {
			e := e
			work.hook(func() { e.Attach(m) })
		}
	}

	entry := &AvatarEntry{Scene: node, Models: models}
	if src := data.Source; src != nil {
		entry.TraitInfo, entry.TextureInfo, entry.ColorInfo = src.Model, src.Texture, src.Color
		if src.Model != nil {
			entry.Name = src.Model.Name
		}
	}
	if len(models) > 0 {
		entry.Model = models[0]
	}
	cm.avatar[data.GroupID] = entry

	var optionID string
	if entry.TraitInfo != nil {
		optionID = entry.TraitInfo.ID
	}
	work.event(core.EventTraitAttached, core.EventContext{GroupID: data.GroupID, OptionID: optionID, Count: len(models)})
}

// discardTextures frees loaded textures that no material took a reference to.
func (cm *CharacterManager) discardTextures(data *metadata.LoadedData) {
	for _, t := range data.Textures {
		if t != nil {
			cm.systems.TextureSystem.Discard(t)
		}
	}
}

func (cm *CharacterManager) removeLocked(groupID string, work *pendingWork) {
	entry, ok := cm.avatar[groupID]
	if !ok {
		return
	}
	cm.disposeEntry(entry, work)
	delete(cm.avatar, groupID)
	work.event(core.EventTraitRemoved, core.EventContext{GroupID: groupID})
}

// disposeEntry releases every resource of the entry and detaches its node.
// Effects are told to drop the models once the state lock is gone.
func (cm *CharacterManager) disposeEntry(entry *AvatarEntry, work *pendingWork) {
	for _, m := range entry.Models {
		m := m
		for _, e := range cm.effects {
			if d, ok := e.(EffectDetacher); ok {
				work.hook(func() { d.Detach(m) })
			}
		}
		cm.systems.DisposeModel(m)
	}
	cm.systems.DisposeNode(entry.Scene)
}

func (cm *CharacterManager) cull() culling.Result {
	var models []*metadata.Model
	for _, e := range cm.avatar {
		models = append(models, e.Models...)
	}
	return culling.Update(models)
}

func (cm *CharacterManager) cullLocked(work *pendingWork) {
	res := cm.cull()
	work.events = append(work.events, cullingEvent(res))
}

func cullingEvent(res culling.Result) pendingEvent {
	return pendingEvent{core.EventCullingUpdated, core.EventContext{Count: res.Participants}}
}

// flush runs the queued hooks and fires the queued events. Callers must not
// hold cm.mu: hooks and handlers are free to query the composer.
func (cm *CharacterManager) flush(work *pendingWork) {
	for _, fn := range work.hooks {
		fn()
	}
	for _, e := range work.events {
		cm.events.Fire(e.code, cm, e.ctx)
	}
}

func (cm *CharacterManager) randFloat() float32 {
	return cm.rng.Float32()
}
