//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the studio binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/studio", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests with the race detector.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withEnv("STUDIO_LOG_LEVEL=warn"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet over every package.
func (Build) Vet() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
