// SPDX-License-Identifier: MPL-2.0

// Package cache is a TTL-scoped persistent store for discovery results:
// available-version sets per product and per-version release metadata.
// Layout under the cache directory:
//
//	{product}_versions.json     available-version set
//	{product}/{version}.json    release metadata
//
// Each file is a JSON envelope carrying the payload plus a cached_at unix
// timestamp. Entries are overwritten whole on refresh, never merged, and
// stale entries are left in place until the next successful fetch replaces
// them.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cudup-cli/internal/config"
	"cudup-cli/internal/cuda"
)

// ErrCorrupt marks a cache file that exists but cannot be parsed. This is
// surfaced to the caller rather than treated as a miss: silently refetching
// over corruption would hide disk problems. Callers may recover by clearing
// the cache.
var ErrCorrupt = errors.New("corrupt cache entry")

type (
	// Cache reads and writes the persistent discovery cache. Constructed
	// from an explicit directory and TTLs; it never consults ambient state.
	Cache struct {
		dir            string
		versionListTTL time.Duration
		metadataTTL    time.Duration
		now            func() time.Time
	}

	// Option configures a Cache during construction.
	Option func(*Cache)

	// Stats summarizes what the cache currently holds.
	Stats struct {
		VersionLists  map[string]bool // product -> version list present
		MetadataFiles map[string]int  // product -> cached metadata documents
	}

	versionListEntry struct {
		Versions []string `json:"versions"`
		CachedAt int64    `json:"cached_at"`
	}

	metadataEntry struct {
		Metadata *cuda.ReleaseMetadata `json:"metadata"`
		CachedAt int64                 `json:"cached_at"`
	}
)

// WithVersionListTTL overrides the version-list TTL.
func WithVersionListTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.versionListTTL = ttl
		}
	}
}

// WithMetadataTTL overrides the metadata TTL.
func WithMetadataTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.metadataTTL = ttl
		}
	}
}

// WithClock overrides the wall clock, for freshness tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cache rooted at dir.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:            dir,
		versionListTTL: config.DefaultVersionListTTL,
		metadataTTL:    config.DefaultMetadataTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VersionList returns the cached available-version set for product, with a
// found flag. force, a missing file, and a stale entry all report a miss;
// an unparsable file is an ErrCorrupt error.
func (c *Cache) VersionList(product string, force bool) ([]string, bool, error) {
	if force {
		return nil, false, nil
	}

	path := c.versionListPath(product)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var entry versionListEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	if !c.fresh(entry.CachedAt, c.versionListTTL) {
		return nil, false, nil
	}
	return entry.Versions, true, nil
}

// SaveVersionList persists the version set with a fresh timestamp,
// unconditionally replacing any prior entry for the product.
func (c *Cache) SaveVersionList(product string, versions []string) error {
	entry := versionListEntry{Versions: versions, CachedAt: c.now().Unix()}
	return c.writeEntry(c.versionListPath(product), entry)
}

// Metadata returns the cached release metadata for product/version, with a
// found flag, under the same miss/corrupt contract as VersionList.
func (c *Cache) Metadata(product, version string, force bool) (*cuda.ReleaseMetadata, bool, error) {
	if force {
		return nil, false, nil
	}

	path := c.metadataPath(product, version)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var entry metadataEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	if entry.Metadata == nil || !c.fresh(entry.CachedAt, c.metadataTTL) {
		return nil, false, nil
	}
	return entry.Metadata, true, nil
}

// SaveMetadata persists release metadata with a fresh timestamp.
func (c *Cache) SaveMetadata(product, version string, meta *cuda.ReleaseMetadata) error {
	entry := metadataEntry{Metadata: meta, CachedAt: c.now().Unix()}
	return c.writeEntry(c.metadataPath(product, version), entry)
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clearing cache %s: %w", c.dir, err)
	}
	return nil
}

// CollectStats reports what the cache holds for the given products.
func (c *Cache) CollectStats(products ...string) Stats {
	stats := Stats{
		VersionLists:  make(map[string]bool, len(products)),
		MetadataFiles: make(map[string]int, len(products)),
	}
	for _, product := range products {
		_, err := os.Stat(c.versionListPath(product))
		stats.VersionLists[product] = err == nil
		stats.MetadataFiles[product] = countJSONFiles(filepath.Join(c.dir, product))
	}
	return stats
}

// fresh applies the exclusive TTL boundary: an entry exactly TTL old has
// expired, one second fresher is still valid.
func (c *Cache) fresh(cachedAt int64, ttl time.Duration) bool {
	age := c.now().Unix() - cachedAt
	return age < int64(ttl.Seconds())
}

func (c *Cache) versionListPath(product string) string {
	return filepath.Join(c.dir, product+"_versions.json")
}

func (c *Cache) metadataPath(product, version string) string {
	return filepath.Join(c.dir, product, version+".json")
}

func (c *Cache) writeEntry(path string, entry any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func countJSONFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			count++
		}
	}
	return count
}
