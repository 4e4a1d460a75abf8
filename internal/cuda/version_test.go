// SPDX-License-Identifier: MPL-2.0

package cuda

import (
	"strings"
	"testing"
)

func TestParseVersion_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in                  string
		major, minor, patch uint32
	}{
		{"12.4.1", 12, 4, 1},
		{"11.8.0", 11, 8, 0},
		{"10.0.0", 10, 0, 0},
		{"9.10.0", 9, 10, 0},
	}

	for _, tt := range tests {
		v, err := ParseVersion(tt.in)
		if err != nil {
			t.Fatalf("ParseVersion(%q): unexpected error: %v", tt.in, err)
		}
		if v.Major() != tt.major || v.Minor() != tt.minor || v.Patch() != tt.patch {
			t.Errorf("ParseVersion(%q) = %d.%d.%d, want %d.%d.%d",
				tt.in, v.Major(), v.Minor(), v.Patch(), tt.major, tt.minor, tt.patch)
		}
		if v.String() != tt.in {
			t.Errorf("String() = %q, want %q", v.String(), tt.in)
		}
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"12",
		"12.4",
		"12.4.1.0",
		"12.x.1",
		"12.4.x",
		"abc",
		"-1.0.0",
		"12..1",
	} {
		if _, err := ParseVersion(in); err == nil {
			t.Errorf("ParseVersion(%q): expected error, got nil", in)
		}
	}
}

func TestParseVersion_ErrorMessages(t *testing.T) {
	t.Parallel()

	_, err := ParseVersion("12")
	if err == nil || !strings.Contains(err.Error(), "major.minor.patch") {
		t.Errorf("shape error should describe the expected format, got %v", err)
	}

	_, err = ParseVersion("12.x.1")
	if err == nil || !strings.Contains(err.Error(), "minor") {
		t.Errorf("component error should name the component, got %v", err)
	}
}

func TestVersion_Compare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"12.4.1", "12.4.1", 0},
		{"12.4.1", "12.4.0", 1},
		{"11.8.0", "12.0.0", -1},
		// Numeric ordering, not lexicographic: "9.10.0" > "9.9.0".
		{"9.10.0", "9.9.0", 1},
		{"9.9.0", "9.10.0", -1},
	}

	for _, tt := range tests {
		got := MustParseVersion(tt.a).Compare(MustParseVersion(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestVersion_VariantKey(t *testing.T) {
	t.Parallel()

	if got := MustParseVersion("12.4.1").VariantKey(); got != "cuda12" {
		t.Errorf("VariantKey() = %q, want %q", got, "cuda12")
	}
	if got := MustParseVersion("11.8.0").MajorString(); got != "11" {
		t.Errorf("MajorString() = %q, want %q", got, "11")
	}
}

func TestVersion_Equality(t *testing.T) {
	t.Parallel()

	a := MustParseVersion("12.4.1")
	b := MustParseVersion("12.4.1")
	if a != b {
		t.Error("versions parsed from the same string should be equal")
	}
	if a == MustParseVersion("12.4.0") {
		t.Error("distinct versions should not be equal")
	}
}
