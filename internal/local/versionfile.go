// SPDX-License-Identifier: MPL-2.0

package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cudup-cli/internal/cuda"
)

// VersionFileName is the per-directory pin file, found by walking up from
// the working directory.
const VersionFileName = ".cuda-version"

// ErrNoVersionFile indicates no pin file exists between the working
// directory and the home directory.
var ErrNoVersionFile = errors.New("no " + VersionFileName + " file found")

// Pin is a parsed pin file: the toolkit version on the first line, plus
// optional key=value settings on later lines.
type Pin struct {
	Version      cuda.Version
	CudnnVersion string   // optional "cudnn" key, empty when absent
	UnknownKeys  []string // unrecognized keys, surfaced so callers can warn
}

// ParsePin parses the contents of a pin file. Blank lines and lines starting
// with '#' are ignored. The first remaining line must be a version string;
// later lines are key=value pairs. Unknown keys and malformed lines are
// collected rather than rejected so an old tool version can read a newer file.
func ParsePin(contents string) (Pin, error) {
	var pin Pin
	haveVersion := false

	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !haveVersion {
			v, err := cuda.ParseVersion(line)
			if err != nil {
				return Pin{}, fmt.Errorf("pin file: %w", err)
			}
			pin.Version = v
			haveVersion = true
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			pin.UnknownKeys = append(pin.UnknownKeys, line)
			continue
		}
		switch strings.TrimSpace(key) {
		case "cudnn":
			pin.CudnnVersion = strings.TrimSpace(value)
		default:
			pin.UnknownKeys = append(pin.UnknownKeys, strings.TrimSpace(key))
		}
	}

	if !haveVersion {
		return Pin{}, errors.New("pin file: no version found")
	}
	return pin, nil
}

// FindVersionFile walks from startDir up towards the filesystem root looking
// for a pin file, stopping after checking homeDir when startDir is inside it.
func FindVersionFile(startDir, homeDir string) (string, error) {
	dir := filepath.Clean(startDir)
	for {
		candidate := filepath.Join(dir, VersionFileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}

		if dir == filepath.Clean(homeDir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrNoVersionFile
}

// WritePin creates or replaces the pin file in dir.
func WritePin(dir string, version cuda.Version) (string, error) {
	path := filepath.Join(dir, VersionFileName)
	if err := os.WriteFile(path, []byte(version.String()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing pin file: %w", err)
	}
	return path, nil
}
