// SPDX-License-Identifier: MPL-2.0

package local

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cudup-cli/internal/active"
	"cudup-cli/internal/config"
	"cudup-cli/internal/cuda"
)

func installVersion(t *testing.T, paths config.Paths, version string) {
	t.Helper()
	dir := paths.VersionDir(version)
	if err := os.MkdirAll(filepath.Join(dir, "lib64"), 0o755); err != nil {
		t.Fatalf("creating install dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib64", "libcudart.so"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("writing install file: %v", err)
	}
}

func TestInstalledVersions(t *testing.T) {
	t.Parallel()

	paths := config.Paths{Home: t.TempDir()}
	for _, v := range []string{"12.4.1", "9.10.0", "9.9.0"} {
		installVersion(t, paths, v)
	}
	// Non-version entries are ignored.
	if err := os.MkdirAll(filepath.Join(paths.VersionsDir(), ".removing-old"), 0o755); err != nil {
		t.Fatalf("creating stray dir: %v", err)
	}

	got, err := InstalledVersions(paths)
	if err != nil {
		t.Fatalf("InstalledVersions: %v", err)
	}

	want := []string{"9.9.0", "9.10.0", "12.4.1"}
	if len(got) != len(want) {
		t.Fatalf("got %d versions, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Errorf("versions[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestInstalledVersions_NoDirectory(t *testing.T) {
	t.Parallel()

	got, err := InstalledVersions(config.Paths{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestDirSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 50), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := DirSize(dir)
	if err != nil {
		t.Fatalf("DirSize: %v", err)
	}
	if got != 150 {
		t.Errorf("DirSize = %d, want 150", got)
	}
}

func TestUninstall(t *testing.T) {
	t.Parallel()

	paths := config.Paths{Home: t.TempDir()}
	installVersion(t, paths, "12.4.1")

	if err := Uninstall(paths, cuda.MustParseVersion("12.4.1"), false); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(paths.VersionDir("12.4.1")); !os.IsNotExist(err) {
		t.Error("install dir survived uninstall")
	}
}

func TestUninstall_NotInstalled(t *testing.T) {
	t.Parallel()

	err := Uninstall(config.Paths{Home: t.TempDir()}, cuda.MustParseVersion("12.4.1"), false)
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("got %v, want ErrNotInstalled", err)
	}
}

func TestUninstall_ActiveVersionNeedsForce(t *testing.T) {
	t.Parallel()

	paths := config.Paths{Home: t.TempDir()}
	installVersion(t, paths, "12.4.1")
	state := active.State{
		Version:     "12.4.1",
		InstallDir:  paths.VersionDir("12.4.1"),
		ActivatedAt: time.Now(),
	}
	if err := active.Write(paths, state); err != nil {
		t.Fatalf("activating: %v", err)
	}

	err := Uninstall(paths, cuda.MustParseVersion("12.4.1"), false)
	if !errors.Is(err, ErrVersionActive) {
		t.Fatalf("got %v, want ErrVersionActive", err)
	}

	// With force the version and the stale pointer both go.
	if err := Uninstall(paths, cuda.MustParseVersion("12.4.1"), true); err != nil {
		t.Fatalf("forced Uninstall: %v", err)
	}
	if _, found, _ := active.Read(paths); found {
		t.Error("active pointer survived a forced uninstall of the active version")
	}
}

func TestParsePin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		contents  string
		wantVer   string
		wantCudnn string
		wantErr   bool
	}{
		{
			name:     "version only",
			contents: "12.4.1\n",
			wantVer:  "12.4.1",
		},
		{
			name:      "version with cudnn",
			contents:  "# toolchain pin\n12.4.1\ncudnn = 9.2.0\n",
			wantVer:   "12.4.1",
			wantCudnn: "9.2.0",
		},
		{
			name:     "empty",
			contents: "# only comments\n\n",
			wantErr:  true,
		},
		{
			name:     "bad version",
			contents: "12.4\n",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pin, err := ParsePin(tt.contents)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePin: %v", err)
			}
			if pin.Version.String() != tt.wantVer {
				t.Errorf("Version = %s, want %s", pin.Version, tt.wantVer)
			}
			if pin.CudnnVersion != tt.wantCudnn {
				t.Errorf("CudnnVersion = %q, want %q", pin.CudnnVersion, tt.wantCudnn)
			}
		})
	}
}

func TestParsePin_CollectsUnknownKeys(t *testing.T) {
	t.Parallel()

	pin, err := ParsePin("12.4.1\ndriver = 550\nnot a pair\n")
	if err != nil {
		t.Fatalf("ParsePin: %v", err)
	}
	if len(pin.UnknownKeys) != 2 {
		t.Errorf("UnknownKeys = %v, want two entries", pin.UnknownKeys)
	}
}

func TestFindVersionFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	project := filepath.Join(home, "work", "project")
	nested := filepath.Join(project, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := WritePin(project, cuda.MustParseVersion("12.4.1")); err != nil {
		t.Fatalf("WritePin: %v", err)
	}

	got, err := FindVersionFile(nested, home)
	if err != nil {
		t.Fatalf("FindVersionFile: %v", err)
	}
	if want := filepath.Join(project, VersionFileName); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFindVersionFile_StopsAtHome(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	home := filepath.Join(root, "home")
	nested := filepath.Join(home, "project")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	// A pin file above the home directory must not be picked up.
	if _, err := WritePin(root, cuda.MustParseVersion("12.4.1")); err != nil {
		t.Fatalf("WritePin: %v", err)
	}

	_, err := FindVersionFile(nested, home)
	if !errors.Is(err, ErrNoVersionFile) {
		t.Errorf("got %v, want ErrNoVersionFile", err)
	}
}
