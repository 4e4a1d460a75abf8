// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExtractError reports a failed archive extraction, carrying the tar
// process's stderr for diagnostics.
type ExtractError struct {
	Archive string
	Stderr  string
	Err     error
}

// Error formats the extraction failure, including stderr when present.
func (e *ExtractError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("extracting %s: %v: %s", e.Archive, e.Err, e.Stderr)
	}
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

// Unwrap returns the underlying process error.
func (e *ExtractError) Unwrap() error { return e.Err }

// ExtractArchive unpacks the tar archive at archivePath into destDir,
// stripping the archive's single top-level directory so package contents land
// directly in destDir. Decompression is delegated to tar, which picks the
// codec (xz for the vendor archives) from the file itself.
func ExtractArchive(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}

	cmd := exec.CommandContext(ctx, "tar", "xf", archivePath, "-C", destDir, "--strip-components=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &ExtractError{
			Archive: archivePath,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	return nil
}
