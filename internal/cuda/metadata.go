// SPDX-License-Identifier: MPL-2.0

package cuda

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Reserved release-level keys. Every other top-level key in a release
// document is a package name — the schema is dynamic and package names must
// be discovered from the document itself.
const (
	keyReleaseDate    = "release_date"
	keyReleaseLabel   = "release_label"
	keyReleaseProduct = "release_product"
)

// Reserved package-level keys; the remaining keys are platform identifiers
// (e.g. "linux-x86_64").
const (
	keyName        = "name"
	keyLicense     = "license"
	keyLicensePath = "license_path"
	keyVersion     = "version"
	keyCudaVariant = "cuda_variant"
)

type (
	// ReleaseMetadata is one version's vendor-published release document:
	// a few fixed release-level fields plus a package map absorbing every
	// other top-level key.
	ReleaseMetadata struct {
		ReleaseDate    string
		ReleaseLabel   string
		ReleaseProduct string
		Packages       map[string]PackageInfo
	}

	// PackageInfo describes one redistributable package within a release.
	// CudaVariant, when present, lists the toolkit major versions this
	// package declares compatibility with (decimal strings, e.g. "12").
	PackageInfo struct {
		Name        string
		License     string
		LicensePath string
		Version     string
		CudaVariant []string
		Platforms   map[string]PlatformInfo
	}

	// PlatformInfo is an untagged union: either a single download for the
	// platform, or a map of variant key -> download when the package ships
	// different binaries per toolkit major line. Exactly one arm is set.
	PlatformInfo struct {
		simple   *DownloadInfo
		variants map[string]DownloadInfo
	}

	// DownloadInfo locates and authenticates one downloadable archive.
	// Size is a decimal string in the wire format (vendor quirk).
	DownloadInfo struct {
		RelativePath string `json:"relative_path"`
		SHA256       string `json:"sha256"`
		MD5          string `json:"md5"`
		Size         string `json:"size"`
	}
)

// Package returns the named package, if present.
func (m *ReleaseMetadata) Package(name string) (PackageInfo, bool) {
	p, ok := m.Packages[name]
	return p, ok
}

// PackageNames returns the names of all packages in the document, in no
// particular order.
func (m *ReleaseMetadata) PackageNames() []string {
	names := make([]string, 0, len(m.Packages))
	for name := range m.Packages {
		names = append(names, name)
	}
	return names
}

// Platform returns the platform entry for the given platform identifier.
func (p *PackageInfo) Platform(platform string) (PlatformInfo, bool) {
	pi, ok := p.Platforms[platform]
	return pi, ok
}

// SupportsCudaMajor reports whether the package's cuda_variant list declares
// compatibility with the given toolkit major version.
func (p *PackageInfo) SupportsCudaMajor(major uint32) bool {
	want := strconv.FormatUint(uint64(major), 10)
	for _, v := range p.CudaVariant {
		if v == want {
			return true
		}
	}
	return false
}

// AsSimple returns the single download when this platform entry is the
// simple shape. A false return is routine, not an error: the platform may
// simply ship variants instead.
func (p PlatformInfo) AsSimple() (DownloadInfo, bool) {
	if p.simple == nil {
		return DownloadInfo{}, false
	}
	return *p.simple, true
}

// Variant returns the download for the given variant key (e.g. "cuda12").
func (p PlatformInfo) Variant(key string) (DownloadInfo, bool) {
	d, ok := p.variants[key]
	return d, ok
}

// Variants returns the variant map, or nil for the simple shape.
func (p PlatformInfo) Variants() map[string]DownloadInfo {
	return p.variants
}

// SimplePlatform builds the single-download arm of the union. Test and
// fixture helper; decoding is the production construction path.
func SimplePlatform(d DownloadInfo) PlatformInfo {
	return PlatformInfo{simple: &d}
}

// VariantPlatform builds the variant-map arm of the union.
func VariantPlatform(variants map[string]DownloadInfo) PlatformInfo {
	return PlatformInfo{variants: variants}
}

// SizeBytes parses the decimal size string. A malformed size degrades to
// "unknown" rather than failing: size is advisory, used only for progress
// display and download ordering.
func (d DownloadInfo) SizeBytes() (uint64, bool) {
	n, err := strconv.ParseUint(d.Size, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UnmarshalJSON folds the release document's dynamic top level: reserved
// keys populate the fixed fields, everything else must decode as a package.
func (m *ReleaseMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("release metadata: %w", err)
	}

	m.Packages = make(map[string]PackageInfo, len(raw))
	for key, val := range raw {
		switch key {
		case keyReleaseDate:
			if err := unmarshalOptionalString(val, &m.ReleaseDate); err != nil {
				return fmt.Errorf("release metadata: %s: %w", key, err)
			}
		case keyReleaseLabel:
			if err := unmarshalOptionalString(val, &m.ReleaseLabel); err != nil {
				return fmt.Errorf("release metadata: %s: %w", key, err)
			}
		case keyReleaseProduct:
			if err := unmarshalOptionalString(val, &m.ReleaseProduct); err != nil {
				return fmt.Errorf("release metadata: %s: %w", key, err)
			}
		default:
			var pkg PackageInfo
			if err := json.Unmarshal(val, &pkg); err != nil {
				return fmt.Errorf("release metadata: package %q: %w", key, err)
			}
			m.Packages[key] = pkg
		}
	}
	return nil
}

// MarshalJSON re-flattens the document so that a decode/encode round trip
// through the cache is lossless.
func (m ReleaseMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Packages)+3)
	if m.ReleaseDate != "" {
		out[keyReleaseDate] = m.ReleaseDate
	}
	if m.ReleaseLabel != "" {
		out[keyReleaseLabel] = m.ReleaseLabel
	}
	if m.ReleaseProduct != "" {
		out[keyReleaseProduct] = m.ReleaseProduct
	}
	for name, pkg := range m.Packages {
		out[name] = pkg
	}
	return json.Marshal(out)
}

// UnmarshalJSON folds the package's dynamic keys: reserved keys populate the
// fixed fields, everything else must decode as a platform entry.
func (p *PackageInfo) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Platforms = make(map[string]PlatformInfo)
	for key, val := range raw {
		switch key {
		case keyName:
			if err := json.Unmarshal(val, &p.Name); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		case keyLicense:
			if err := json.Unmarshal(val, &p.License); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		case keyLicensePath:
			if err := unmarshalOptionalString(val, &p.LicensePath); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		case keyVersion:
			if err := json.Unmarshal(val, &p.Version); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		case keyCudaVariant:
			if err := json.Unmarshal(val, &p.CudaVariant); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		default:
			var pi PlatformInfo
			if err := json.Unmarshal(val, &pi); err != nil {
				return fmt.Errorf("platform %q: %w", key, err)
			}
			p.Platforms[key] = pi
		}
	}
	return nil
}

// MarshalJSON re-flattens the package for cache round trips.
func (p PackageInfo) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Platforms)+5)
	out[keyName] = p.Name
	out[keyLicense] = p.License
	out[keyVersion] = p.Version
	if p.LicensePath != "" {
		out[keyLicensePath] = p.LicensePath
	}
	if p.CudaVariant != nil {
		out[keyCudaVariant] = p.CudaVariant
	}
	for platform, pi := range p.Platforms {
		out[platform] = pi
	}
	return json.Marshal(out)
}

// UnmarshalJSON resolves the untagged union by ordered attempt: the value is
// first decoded as a single download, accepted when the required fields are
// present (extra vendor fields are tolerated); otherwise it is re-decoded as
// a variant map. A variant map never passes the first attempt: its keys are
// variant names, so the download's required fields come out empty. Only if
// neither shape fits is the document malformed.
func (p *PlatformInfo) UnmarshalJSON(data []byte) error {
	var d DownloadInfo
	if err := json.Unmarshal(data, &d); err == nil && d.RelativePath != "" && d.SHA256 != "" {
		p.simple = &d
		p.variants = nil
		return nil
	}

	var variants map[string]DownloadInfo
	if err := json.Unmarshal(data, &variants); err != nil {
		return fmt.Errorf("neither a download nor a variant map: %w", err)
	}
	p.simple = nil
	p.variants = variants
	return nil
}

// MarshalJSON emits whichever arm of the union is populated.
func (p PlatformInfo) MarshalJSON() ([]byte, error) {
	if p.simple != nil {
		return json.Marshal(p.simple)
	}
	return json.Marshal(p.variants)
}

// unmarshalOptionalString accepts either a JSON string or null, matching the
// optional fields in the vendor documents.
func unmarshalOptionalString(data json.RawMessage, dst *string) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*dst = ""
		return nil
	}
	return json.Unmarshal(data, dst)
}
