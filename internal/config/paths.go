// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the resolved on-disk layout of the cudup state home. It is built
// once at startup and handed to every component that touches disk; no
// package reads CUDUP_HOME or the home directory on its own.
type Paths struct {
	// Home is the state home, ~/.cudup by default.
	Home string
}

// DefaultPaths resolves the state home from CUDUP_HOME or ~/.cudup.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWith(os.Getenv)
}

// DefaultPathsWith resolves the state home using the provided getenv
// function, so tests can run without mutating process-global state.
func DefaultPathsWith(getenv func(string) string) (Paths, error) {
	if envHome := getenv(HomeEnv); envHome != "" {
		return Paths{Home: envHome}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return Paths{Home: filepath.Join(home, "."+AppName)}, nil
}

// CacheDir is the metadata/version-list cache directory.
func (p Paths) CacheDir() string { return filepath.Join(p.Home, "cache") }

// VersionsDir holds one subdirectory per installed version.
func (p Paths) VersionsDir() string { return filepath.Join(p.Home, "versions") }

// VersionDir is the install directory for one version, named by its string.
func (p Paths) VersionDir(version string) string {
	return filepath.Join(p.VersionsDir(), version)
}

// DownloadsDir is the shared staging directory for in-flight archives.
func (p Paths) DownloadsDir() string { return filepath.Join(p.Home, "downloads") }

// ActiveFile is the active-version pointer file.
func (p Paths) ActiveFile() string { return filepath.Join(p.Home, "active.toml") }

// EnvFile is the generated shell-integration script.
func (p Paths) EnvFile() string { return filepath.Join(p.Home, "env.sh") }
