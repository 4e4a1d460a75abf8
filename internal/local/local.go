// SPDX-License-Identifier: MPL-2.0

// Package local manages the versions already installed on disk: listing
// them, measuring their size, and removing them.
package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"cudup-cli/internal/active"
	"cudup-cli/internal/config"
	"cudup-cli/internal/cuda"
)

var (
	// ErrNotInstalled indicates the requested version has no install directory.
	ErrNotInstalled = errors.New("version not installed")

	// ErrVersionActive indicates the requested version is the active one and
	// force was not given.
	ErrVersionActive = errors.New("version is currently active")
)

// InstalledVersions lists the installed versions in ascending numeric order.
// A missing versions directory means nothing is installed. Directory entries
// that are not valid version strings are ignored.
func InstalledVersions(paths config.Paths) ([]cuda.Version, error) {
	entries, err := os.ReadDir(paths.VersionsDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading versions directory: %w", err)
	}

	var versions []cuda.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := cuda.ParseVersion(e.Name())
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}

	slices.SortFunc(versions, cuda.Version.Compare)
	return versions, nil
}

// DirSize returns the total size in bytes of all regular files under path.
func DirSize(path string) (uint64, error) {
	var size uint64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", path, err)
	}
	return size, nil
}

// Uninstall removes an installed version. Removing the active version
// requires force and also clears the active pointer. The directory is
// renamed aside before removal so a concurrent uninstall of the same version
// fails fast instead of both racing the recursive delete.
func Uninstall(paths config.Paths, version cuda.Version, force bool) error {
	installDir := paths.VersionDir(version.String())
	if _, err := os.Stat(installDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotInstalled, version)
		}
		return fmt.Errorf("checking %s: %w", installDir, err)
	}

	state, isActive, err := active.Read(paths)
	if err != nil {
		return err
	}
	activeMatch := isActive && state.Version == version.String()
	if activeMatch && !force {
		return fmt.Errorf("%w: %s", ErrVersionActive, version)
	}

	tomb := filepath.Join(paths.VersionsDir(),
		fmt.Sprintf(".removing-%s-%d", version, time.Now().UnixNano()))
	if err := os.Rename(installDir, tomb); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s was removed by another process", ErrNotInstalled, version)
		}
		return fmt.Errorf("removing %s: %w", version, err)
	}
	if err := os.RemoveAll(tomb); err != nil {
		return fmt.Errorf("removing %s: %w", version, err)
	}

	if activeMatch {
		if err := active.Clear(paths); err != nil {
			return fmt.Errorf("clearing active pointer: %w", err)
		}
	}

	return nil
}
