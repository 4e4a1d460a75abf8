// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "linux-x86_64", false},
		{"linux", "arm64", "linux-sbsa", false},
		{"linux", "ppc64le", "linux-ppc64le", false},
		{"linux", "riscv64", "", true},
		{"darwin", "amd64", "", true},
		{"windows", "amd64", "", true},
	}

	for _, tt := range tests {
		got, err := detect(tt.goos, tt.goarch)
		if tt.wantErr {
			if err == nil {
				t.Errorf("detect(%s, %s): expected error, got %q", tt.goos, tt.goarch, got)
			} else if !errors.Is(err, ErrUnsupported) {
				t.Errorf("detect(%s, %s): error %v should wrap ErrUnsupported", tt.goos, tt.goarch, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("detect(%s, %s): unexpected error: %v", tt.goos, tt.goarch, err)
			continue
		}
		if got != tt.want {
			t.Errorf("detect(%s, %s) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
}
