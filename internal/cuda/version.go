// SPDX-License-Identifier: MPL-2.0

// Package cuda defines the domain model for NVIDIA redist releases: the
// validated version identifier and the per-version release metadata document
// published alongside each redistributable archive set.
package cuda

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a validated CUDA-style version string (e.g. "12.4.1").
//
// The three numeric components are parsed once at construction so that
// accessors and comparisons are O(1). Equality is by the raw string; the
// parser guarantees a raw string always re-parses to the same components.
type Version struct {
	raw   string
	major uint32
	minor uint32
	patch uint32
}

// ParseVersion validates and decomposes a "major.minor.patch" version string.
// Anything other than exactly three dot-separated non-negative base-10
// components is rejected with an error naming the offending component.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected format \"major.minor.patch\" (e.g. \"12.4.1\")", s)
	}

	names := [3]string{"major", "minor", "patch"}
	var nums [3]uint32
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %s component %q is not a number", s, names[i], part)
		}
		nums[i] = uint32(n)
	}

	return Version{raw: s, major: nums[0], minor: nums[1], patch: nums[2]}, nil
}

// MustParseVersion is ParseVersion for trusted inputs; it panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major component (12 for "12.4.1").
func (v Version) Major() uint32 { return v.major }

// Minor returns the minor component (4 for "12.4.1").
func (v Version) Minor() uint32 { return v.minor }

// Patch returns the patch component (1 for "12.4.1").
func (v Version) Patch() uint32 { return v.patch }

// String returns the raw version string.
func (v Version) String() string { return v.raw }

// IsZero reports whether v is the zero Version (not produced by ParseVersion).
func (v Version) IsZero() bool { return v.raw == "" }

// VariantKey returns the variant selector for this version's major line,
// e.g. "cuda12" for "12.4.1". Release metadata keys per-major builds of a
// package under this string.
func (v Version) VariantKey() string {
	return "cuda" + strconv.FormatUint(uint64(v.major), 10)
}

// MajorString returns the major component as its decimal string, the form
// used by cuda_variant compatibility lists in release metadata.
func (v Version) MajorString() string {
	return strconv.FormatUint(uint64(v.major), 10)
}

// Compare orders versions by their numeric components. Raw-string ordering
// must never be used here: "9.10.0" is newer than "9.9.0" even though it
// sorts lower lexicographically.
func (v Version) Compare(o Version) int {
	if c := cmpUint32(v.major, o.major); c != 0 {
		return c
	}
	if c := cmpUint32(v.minor, o.minor); c != 0 {
		return c
	}
	return cmpUint32(v.patch, o.patch)
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
