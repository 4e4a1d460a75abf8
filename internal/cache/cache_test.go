// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"cudup-cli/internal/cuda"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleMetadata(t *testing.T) *cuda.ReleaseMetadata {
	t.Helper()
	doc := `{
		"release_date": "2024-06-01",
		"cuda_cudart": {
			"name": "CUDA Runtime",
			"license": "NVIDIA Software License",
			"version": "12.4.127",
			"linux-x86_64": {
				"relative_path": "cuda_cudart/linux-x86_64/cuda_cudart-12.4.127-archive.tar.xz",
				"sha256": "789012345678901234567890123456789012345678901234567890123456789a",
				"md5": "789012345678",
				"size": "3456789"
			}
		}
	}`
	var meta cuda.ReleaseMetadata
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return &meta
}

func TestVersionList_RoundTrip(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	versions := []string{"11.8.0", "12.4.1", "12.5.0"}

	if err := c.SaveVersionList("cuda", versions); err != nil {
		t.Fatalf("SaveVersionList: %v", err)
	}

	got, found, err := c.VersionList("cuda", false)
	if err != nil {
		t.Fatalf("VersionList: %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if !reflect.DeepEqual(got, versions) {
		t.Errorf("got %v, want %v", got, versions)
	}
}

func TestVersionList_MissingIsMiss(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	_, found, err := c.VersionList("cuda", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("missing file should be a miss, not a hit")
	}
}

func TestVersionList_ForceBypassesFreshEntry(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	if err := c.SaveVersionList("cuda", []string{"12.4.1"}); err != nil {
		t.Fatalf("SaveVersionList: %v", err)
	}

	if _, found, _ := c.VersionList("cuda", true); found {
		t.Error("force refresh must bypass a valid entry")
	}
}

func TestVersionList_TTLBoundaryIsExclusive(t *testing.T) {
	t.Parallel()

	const ttl = 24 * time.Hour
	dir := t.TempDir()
	base := time.Unix(1_700_000_000, 0)

	writer := New(dir, WithClock(fixedClock(base)))
	if err := writer.SaveVersionList("cuda", []string{"12.4.1"}); err != nil {
		t.Fatalf("SaveVersionList: %v", err)
	}

	// One second inside the TTL: still valid.
	reader := New(dir, WithClock(fixedClock(base.Add(ttl-time.Second))), WithVersionListTTL(ttl))
	if _, found, _ := reader.VersionList("cuda", false); !found {
		t.Error("entry one second inside the TTL should be valid")
	}

	// Exactly TTL old: expired.
	reader = New(dir, WithClock(fixedClock(base.Add(ttl))), WithVersionListTTL(ttl))
	if _, found, _ := reader.VersionList("cuda", false); found {
		t.Error("entry exactly TTL old should be expired")
	}
}

func TestVersionList_CorruptIsHardError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := New(dir)
	path := filepath.Join(dir, "cuda_versions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	_, _, err := c.VersionList("cuda", false)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("got %v, want ErrCorrupt", err)
	}
}

func TestVersionList_SaveOverwrites(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	if err := c.SaveVersionList("cuda", []string{"11.8.0"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := c.SaveVersionList("cuda", []string{"12.4.1"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, found, err := c.VersionList("cuda", false)
	if err != nil || !found {
		t.Fatalf("VersionList: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, []string{"12.4.1"}) {
		t.Errorf("got %v, want the replacement entry only", got)
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	meta := sampleMetadata(t)

	if err := c.SaveMetadata("cuda", "12.4.1", meta); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	got, found, err := c.Metadata("cuda", "12.4.1", false)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if !reflect.DeepEqual(got, meta) {
		t.Errorf("round trip is lossy:\ngot:  %#v\nwant: %#v", got, meta)
	}
}

func TestMetadata_KeyedByProductAndVersion(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	if err := c.SaveMetadata("cuda", "12.4.1", sampleMetadata(t)); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	if _, found, _ := c.Metadata("cuda", "12.5.0", false); found {
		t.Error("different version must be a distinct key")
	}
	if _, found, _ := c.Metadata("cudnn", "12.4.1", false); found {
		t.Error("different product must be a distinct key")
	}
}

func TestMetadata_StaleIsMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Unix(1_700_000_000, 0)

	writer := New(dir, WithClock(fixedClock(base)))
	if err := writer.SaveMetadata("cuda", "12.4.1", sampleMetadata(t)); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	reader := New(dir, WithClock(fixedClock(base.Add(8*24*time.Hour))))
	if _, found, _ := reader.Metadata("cuda", "12.4.1", false); found {
		t.Error("entry older than the metadata TTL should be a miss")
	}
}

func TestClearAndStats(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	if err := c.SaveVersionList("cuda", []string{"12.4.1"}); err != nil {
		t.Fatalf("SaveVersionList: %v", err)
	}
	if err := c.SaveMetadata("cuda", "12.4.1", sampleMetadata(t)); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	if err := c.SaveMetadata("cuda", "12.5.0", sampleMetadata(t)); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	stats := c.CollectStats("cuda", "cudnn")
	if !stats.VersionLists["cuda"] || stats.VersionLists["cudnn"] {
		t.Errorf("VersionLists = %v, want cuda only", stats.VersionLists)
	}
	if stats.MetadataFiles["cuda"] != 2 || stats.MetadataFiles["cudnn"] != 0 {
		t.Errorf("MetadataFiles = %v, want cuda:2 cudnn:0", stats.MetadataFiles)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats = c.CollectStats("cuda")
	if stats.VersionLists["cuda"] || stats.MetadataFiles["cuda"] != 0 {
		t.Errorf("cache not empty after Clear: %+v", stats)
	}
}
