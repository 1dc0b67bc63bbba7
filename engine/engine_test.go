package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/character-studio/engine/config"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = "o quad\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nvn 0 0 1\nf 1//1 2//1 3//1\nf 1//1 3//1 4//1\n"

const catalog = `{
  "requiredTraits": ["BODY"],
  "traits": [
    { "trait": "BODY", "collection": [ { "id": "base", "directory": "body.obj" } ] },
    { "trait": "HAT", "collection": [ { "id": "cap", "directory": "cap.obj" }, { "id": "lost", "directory": "lost.obj" } ] }
  ]
}`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	for name, body := range map[string]string{
		"catalog.json": catalog,
		"body.obj":     quadOBJ,
		"cap.obj":      quadOBJ,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}

	cfg := config.Default()
	cfg.Assets.Root = root
	cfg.Assets.Remote = false
	cfg.Manifest = "catalog.json"

	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return e
}

func TestEngineLifecycle(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.ErrorIs(t, e.Initialize(context.Background()), core.ErrPrecondition)

	ctx := context.Background()
	cm := e.Characters()
	require.NoError(t, cm.LoadInitialTraits(ctx))
	assert.Len(t, cm.Selection(), 2)

	stats := e.Stats()
	assert.Equal(t, 2, stats.Geometries)
	assert.Equal(t, int64(1), stats.Batches)
	assert.Equal(t, int64(2), stats.AssetsLoaded)

	require.NoError(t, cm.LoadTrait(ctx, "HAT", "lost"))
	stats = e.Stats()
	assert.Equal(t, int64(1), stats.AssetsFailed)
	require.Len(t, stats.RecentFailures, 1)
	assert.Equal(t, "lost.obj", stats.RecentFailures[0].URL)

	require.NoError(t, e.Shutdown(ctx))
	assert.Equal(t, EngineStageShutdown, e.Stage())
	stats = e.Stats()
	assert.Zero(t, stats.Geometries)
	assert.Zero(t, stats.Materials)
	// a second shutdown is a no-op
	assert.NoError(t, e.Shutdown(ctx))
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Systems.MaxGeometryCount = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestEngineMissingManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Assets.Root = t.TempDir()
	cfg.Manifest = "absent.json"

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Shutdown(context.Background())
	assert.ErrorIs(t, e.Initialize(context.Background()), core.ErrAssetFetch)
}
