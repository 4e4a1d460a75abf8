// SPDX-License-Identifier: MPL-2.0

// Package active tracks which installed version is currently selected. The
// selection is a small TOML pointer file plus a shell snippet that exports
// the toolkit environment.
package active

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cudup-cli/internal/config"
)

// State is the persisted pointer to the active version.
type State struct {
	Version     string    `toml:"version"`
	InstallDir  string    `toml:"install_dir"`
	ActivatedAt time.Time `toml:"activated_at"`
}

// EnvScript renders the shell snippet that activates installDir for the
// calling shell. Existing PATH and LD_LIBRARY_PATH entries are preserved.
func EnvScript(version, installDir string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# CUDA %s activated\n", version)
	fmt.Fprintf(&b, "export CUDA_HOME=%q\n", installDir)
	b.WriteString("export PATH=\"$CUDA_HOME/bin${PATH:+:$PATH}\"\n")
	b.WriteString("export LD_LIBRARY_PATH=\"$CUDA_HOME/lib64${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}\"\n")
	return b.String()
}

// Write persists the selection: the TOML pointer file and the matching env
// script, both created with the home directory if needed.
func Write(paths config.Paths, state State) error {
	if err := os.MkdirAll(paths.Home, 0o755); err != nil {
		return fmt.Errorf("creating home directory: %w", err)
	}

	data, err := toml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding active state: %w", err)
	}
	if err := os.WriteFile(paths.ActiveFile(), data, 0o644); err != nil {
		return fmt.Errorf("writing active state: %w", err)
	}

	script := EnvScript(state.Version, state.InstallDir)
	if err := os.WriteFile(paths.EnvFile(), []byte(script), 0o644); err != nil {
		return fmt.Errorf("writing env script: %w", err)
	}

	return nil
}

// Read loads the current selection. A missing pointer file means no version
// is active and is not an error.
func Read(paths config.Paths) (State, bool, error) {
	data, err := os.ReadFile(paths.ActiveFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("reading active state: %w", err)
	}

	var state State
	if err := toml.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("decoding active state %s: %w", paths.ActiveFile(), err)
	}

	return state, true, nil
}

// Clear removes the selection. Clearing when nothing is active is a no-op.
func Clear(paths config.Paths) error {
	for _, path := range []string{paths.ActiveFile(), paths.EnvFile()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}
