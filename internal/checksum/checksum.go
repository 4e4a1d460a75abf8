// SPDX-License-Identifier: MPL-2.0

// Package checksum verifies downloaded archives against the SHA256 digests
// published in the release metadata.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMismatch indicates the computed SHA256 hash does not match the expected hash.
var ErrMismatch = errors.New("checksum mismatch")

// MismatchError provides details about a checksum verification failure.
// It wraps ErrMismatch so callers can use errors.Is for classification.
type MismatchError struct {
	Package  string
	Expected string
	Got      string
}

// Error returns a human-readable description of the checksum mismatch,
// showing both expected and actual hash values for debugging.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Package, e.Expected, e.Got)
}

// Unwrap returns ErrMismatch so callers can use errors.Is.
func (e *MismatchError) Unwrap() error { return ErrMismatch }

// VerifyFile computes the SHA256 hash of the file at path and compares it with
// expectedHash. Leading and trailing whitespace around expectedHash is ignored
// and the comparison is case-insensitive. Returns a *MismatchError wrapping
// ErrMismatch if the hashes differ; packageName is used only for reporting.
func VerifyFile(path, expectedHash, packageName string) error {
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}

	expected := strings.TrimSpace(expectedHash)
	if !strings.EqualFold(got, expected) {
		return &MismatchError{
			Package:  packageName,
			Expected: strings.ToLower(expected),
			Got:      got,
		}
	}

	return nil
}

// ComputeFileHash computes and returns the lowercase hex-encoded SHA256 digest
// of the file at path. It streams the file through the hash function to avoid
// loading the entire archive into memory.
func ComputeFileHash(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic (NFS edge cases).
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
