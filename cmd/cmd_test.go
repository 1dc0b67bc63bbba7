package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = "o quad\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"

const catalog = `{
  "requiredTraits": ["BODY"],
  "traits": [
    { "trait": "BODY", "collection": [ { "id": "base", "directory": "body.obj" } ] },
    { "trait": "HAT", "collection": [ { "id": "cap", "directory": "cap.obj" }, { "id": "beanie", "directory": "beanie.obj" } ] },
    { "trait": "GLASSES", "collection": [ { "id": "round", "directory": "glasses.obj" } ] }
  ],
  "initialTraits": ["BODY", "HAT"]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	core.SetLogOutput(os.Stderr)
	return out.String(), err
}

func assetRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"catalog.json": catalog,
		"body.obj":     quadOBJ,
		"cap.obj":      quadOBJ,
		"beanie.obj":   quadOBJ,
		"glasses.obj":  quadOBJ,
		"nft.json":     `{"attributes": [{"trait_type": "GLASSES", "value": "round"}]}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	t.Setenv("STUDIO_ASSETS_ROOT", root)
	t.Setenv("STUDIO_ASSETS_REMOTE", "false")
	return root
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", filepath.Join("..", "engine", "manifest", "testdata", "catalog.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog")
	assert.Contains(t, out, "BODY")
	assert.Contains(t, out, "masculine, feminine")
	assert.Contains(t, out, "layer 0, far 0.5")
}

func TestInspectRejectsInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"traits": []}`), 0o644))
	_, err := run(t, "inspect", path)
	assert.Error(t, err)
}

func TestComposeInitialThenEdit(t *testing.T) {
	assetRoot(t)
	out, err := run(t, "compose", "--manifest", "catalog.json", "--trait", "HAT=beanie", "--selection", "nft.json")
	require.NoError(t, err)
	assert.Contains(t, out, "beanie")
	assert.Contains(t, out, "round")
	assert.Contains(t, out, "3 geometries")
}

func TestComposeRemove(t *testing.T) {
	assetRoot(t)
	_, err := run(t, "compose", "--manifest", "catalog.json", "--remove", "BODY")
	assert.ErrorIs(t, err, core.ErrPrecondition)

	out, err := run(t, "compose", "--manifest", "catalog.json", "--remove", "BODY", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "1 geometries")
}

func TestComposeNeedsCatalog(t *testing.T) {
	assetRoot(t)
	_, err := run(t, "compose")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = run(t, "compose", "--manifest", "catalog.json", "--trait", "HAT")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
