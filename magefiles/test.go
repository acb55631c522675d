//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every package's tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs every package's tests with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover runs every package's tests and writes coverage.out.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func=coverage.out")
}

// Smoke builds the binary and runs init, a category create and toc check
// against a scratch config and data directory.
func (Test) Smoke() error {
	mg.Deps(Build)

	dir, err := os.MkdirTemp("", "librarian-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin, err := filepath.Abs(binaryPath())
	if err != nil {
		return err
	}
	run := func(argv ...string) error {
		base := []string{"--config-dir", filepath.Join(dir, "config"), "--data-dir", filepath.Join(dir, "data")}
		return sh.RunV(bin, append(base, argv...)...)
	}

	steps := [][]string{
		{"init"},
		{"category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד"},
		{"toc", "rebuild"},
		{"toc", "check"},
	}
	for _, argv := range steps {
		if err := run(argv...); err != nil {
			return fmt.Errorf("smoke %v: %w", argv, err)
		}
	}
	fmt.Println("smoke test passed")
	return nil
}
