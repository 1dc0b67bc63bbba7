//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Composes the initial avatar of the catalog named by $STUDIO_MANIFEST.
func (Run) Compose() error {
	mg.Deps(Build.Binary)
	manifest := os.Getenv("STUDIO_MANIFEST")
	if manifest == "" {
		return fmt.Errorf("set STUDIO_MANIFEST to a catalog location")
	}
	fmt.Println("Composing avatar...")
	if _, err := executeCmd("bin/studio", withArgs("compose", "--manifest", manifest), withStream()); err != nil {
		return err
	}
	return nil
}

// Validates every catalog file passed in $CATALOG.
func (Run) Inspect() error {
	mg.Deps(Build.Binary)
	catalog := os.Getenv("CATALOG")
	if catalog == "" {
		catalog = "engine/manifest/testdata/catalog.json"
	}
	if _, err := executeCmd("bin/studio", withArgs("inspect", catalog), withStream()); err != nil {
		return err
	}
	return nil
}
