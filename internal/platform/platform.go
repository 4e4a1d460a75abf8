// SPDX-License-Identifier: MPL-2.0

// Package platform maps the host to the vendor's platform identifiers.
package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported indicates the host has no redist platform identifier.
var ErrUnsupported = errors.New("unsupported platform")

// Detect returns the redist platform identifier for the host, following the
// vendor's naming ("linux-x86_64", "linux-sbsa"). Hosts the vendor does not
// publish archives for fail with ErrUnsupported; the platform can still be
// forced via configuration or the --platform flag for cross-host staging.
func Detect() (string, error) {
	return detect(runtime.GOOS, runtime.GOARCH)
}

func detect(goos, goarch string) (string, error) {
	if goos != "linux" {
		return "", fmt.Errorf("%w: OS %q: redist archives are published for linux only", ErrUnsupported, goos)
	}

	switch goarch {
	case "amd64":
		return "linux-x86_64", nil
	case "arm64":
		return "linux-sbsa", nil
	case "ppc64le":
		return "linux-ppc64le", nil
	default:
		return "", fmt.Errorf("%w: architecture %q", ErrUnsupported, goarch)
	}
}
