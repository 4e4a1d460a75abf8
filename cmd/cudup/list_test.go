// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"cudup-cli/internal/active"
	"cudup-cli/internal/config"
)

func TestRunListInstalledEmpty(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := listParams{
		stdout:    &out,
		app:       &app{paths: config.Paths{Home: t.TempDir()}},
		installed: true,
	}

	if err := runList(context.Background(), p); err != nil {
		t.Fatalf("runList() error = %v", err)
	}
	if !strings.Contains(out.String(), "No CUDA versions installed") {
		t.Errorf("output %q should report an empty install set", out.String())
	}
}

func TestRunListInstalledMarksActive(t *testing.T) {
	t.Parallel()

	paths := config.Paths{Home: t.TempDir()}
	for _, v := range []string{"11.8.0", "12.4.1"} {
		if err := os.MkdirAll(paths.VersionDir(v), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	state := active.State{Version: "12.4.1", InstallDir: paths.VersionDir("12.4.1")}
	if err := active.Write(paths, state); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	p := listParams{
		stdout:    &out,
		app:       &app{paths: paths},
		installed: true,
	}

	if err := runList(context.Background(), p); err != nil {
		t.Fatalf("runList() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out.String())
	}
	// Ascending numeric order, active version flagged.
	if !strings.Contains(lines[0], "11.8.0") || strings.Contains(lines[0], "active") {
		t.Errorf("first line = %q, want plain 11.8.0", lines[0])
	}
	if !strings.Contains(lines[1], "12.4.1") || !strings.Contains(lines[1], "active") {
		t.Errorf("second line = %q, want 12.4.1 marked active", lines[1])
	}
}
