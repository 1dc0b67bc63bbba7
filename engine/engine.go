package engine

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/character-studio/engine/assets"
	"github.com/spaghettifunk/character-studio/engine/avatar"
	"github.com/spaghettifunk/character-studio/engine/config"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/systems"
	"github.com/spaghettifunk/character-studio/engine/telemetry"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every resource
	EngineStageShutdown
)

// Stats is a snapshot of the resource registries and of the loading metrics.
type Stats struct {
	Geometries, Materials, Textures int
	Batches                         int64
	AvgBatchMs                      float64
	AssetsLoaded, AssetsFailed      int64
	RecentFailures                  []*core.AssetFetchError
}

type Engine struct {
	currentStage     Stage
	config           *config.Config
	clock            *core.Clock
	events           *core.EventBus
	assetManager     *assets.AssetManager
	systemManager    *systems.SystemManager
	characterManager *avatar.CharacterManager
	traceShutdown    telemetry.ShutdownFunc
}

func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.LogLevel)

	am, err := assets.NewAssetManager(cfg.Assets, s3Client(cfg.Assets.S3))
	if err != nil {
		core.LogError("%v", err)
		return nil, err
	}

	sm, err := systems.NewSystemManager(cfg.Systems)
	if err != nil {
		core.LogError("%v", err)
		return nil, err
	}

	events := core.NewEventBus()
	cm, err := avatar.NewCharacterManager(&cfg.Avatar, am, sm, events)
	if err != nil {
		core.LogError("%v", err)
		return nil, err
	}

	return &Engine{
		currentStage:     EngineStageUninitialized,
		config:           cfg,
		clock:            core.NewClock(),
		events:           events,
		assetManager:     am,
		systemManager:    sm,
		characterManager: cm,
	}, nil
}

// s3Client keeps a nil *s3.Client out of the assets.S3Client interface.
func s3Client(cfg assets.S3Config) assets.S3Client {
	if c := assets.NewS3Client(cfg); c != nil {
		return c
	}
	return nil
}

func (e *Engine) Initialize(ctx context.Context) error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("%w: engine already initialized", core.ErrPrecondition)
	}
	e.currentStage = EngineStageInitializing
	e.clock.Start()

	shutdown, err := telemetry.Setup(ctx, e.config.Telemetry)
	if err != nil {
		return err
	}
	e.traceShutdown = shutdown

	if err := e.assetManager.Initialize(); err != nil {
		return err
	}

	// register some events
	e.events.Register(core.EventTraitAttached, e, e.onTraitEvent)
	e.events.Register(core.EventTraitRemoved, e, e.onTraitEvent)
	e.events.Register(core.EventLoadProgress, e, e.onProgress)

	if e.config.Manifest != "" {
		if err := e.characterManager.LoadManifest(ctx, e.config.Manifest); err != nil {
			return err
		}
	}

	e.clock.Update()
	core.LogInfo("engine initialized in %s", e.clock.Elapsed())
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Characters() *avatar.CharacterManager {
	return e.characterManager
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Stats() Stats {
	g, m, t := e.systemManager.LiveCounts()
	loader := e.characterManager.Loader()
	metrics := loader.Metrics()
	loaded, failed := metrics.Assets()
	return Stats{
		Geometries:     g,
		Materials:      m,
		Textures:       t,
		Batches:        metrics.Batches(),
		AvgBatchMs:     metrics.BatchTime(),
		AssetsLoaded:   loaded,
		AssetsFailed:   failed,
		RecentFailures: loader.RecentFailures(),
	}
}

func (e *Engine) Shutdown(ctx context.Context) error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if err := e.characterManager.Shutdown(); err != nil {
		return err
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if e.traceShutdown != nil {
		if err := e.traceShutdown(ctx); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageShutdown
	return nil
}

func (e *Engine) onTraitEvent(code core.SystemEventCode, _ interface{}, _ interface{}, context core.EventContext) bool {
	switch code {
	case core.EventTraitAttached:
		core.LogDebug("trait %s/%s attached (%d models)", context.GroupID, context.OptionID, context.Count)
	case core.EventTraitRemoved:
		core.LogDebug("trait group %s emptied", context.GroupID)
	}
	return false
}

func (e *Engine) onProgress(_ core.SystemEventCode, _ interface{}, _ interface{}, context core.EventContext) bool {
	core.LogDebug("loading %d%%", context.Percent)
	return false
}
