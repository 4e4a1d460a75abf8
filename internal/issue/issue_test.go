// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"cudup-cli/internal/cache"
	"cudup-cli/internal/checksum"
	"cudup-cli/internal/fetch"
	"cudup-cli/internal/local"
	"cudup-cli/internal/platform"
)

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique and sequential
	ids := []Id{
		VersionUnavailableId,
		AlreadyInstalledId,
		NotInstalledId,
		ChecksumMismatchId,
		CacheCorruptId,
		NoCompatibleCudnnId,
		PlatformUnsupportedId,
		DriverNotFoundId,
		ExtractionFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if VersionUnavailableId != 1 {
		t.Errorf("VersionUnavailableId = %d, want 1", VersionUnavailableId)
	}
}

func TestGet_AllIdsRegistered(t *testing.T) {
	for id := VersionUnavailableId; id <= ExtractionFailedId; id++ {
		issue := Get(id)
		if issue == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if issue.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, issue.Id())
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has an empty message", id)
		}
	}
}

func TestIssue_MarkdownMsg(t *testing.T) {
	issue := Get(VersionUnavailableId)
	if issue == nil {
		t.Fatal("Get(VersionUnavailableId) returned nil")
	}

	msg := issue.MarkdownMsg()
	if !strings.Contains(string(msg), "Version not available") {
		t.Error("MarkdownMsg() should contain 'Version not available'")
	}
}

func TestValues(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Errorf("Values() returned %d issues, want %d", len(values), len(issues))
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantId Id
		wantOk bool
	}{
		{
			name:   "version unavailable",
			err:    fmt.Errorf("wrapped: %w", fetch.ErrVersionUnavailable),
			wantId: VersionUnavailableId,
			wantOk: true,
		},
		{
			name:   "already installed",
			err:    fetch.ErrAlreadyInstalled,
			wantId: AlreadyInstalledId,
			wantOk: true,
		},
		{
			name:   "not installed",
			err:    local.ErrNotInstalled,
			wantId: NotInstalledId,
			wantOk: true,
		},
		{
			name:   "checksum mismatch",
			err:    &checksum.MismatchError{Package: "cuda_nvcc"},
			wantId: ChecksumMismatchId,
			wantOk: true,
		},
		{
			name:   "cache corrupt",
			err:    fmt.Errorf("%w: /tmp/x.json", cache.ErrCorrupt),
			wantId: CacheCorruptId,
			wantOk: true,
		},
		{
			name:   "unsupported platform",
			err:    fmt.Errorf("resolving target: %w", platform.ErrUnsupported),
			wantId: PlatformUnsupportedId,
			wantOk: true,
		},
		{
			name:   "extraction failure",
			err:    &fetch.ExtractError{Archive: "a.tar.xz", Err: errors.New("exit status 2")},
			wantId: ExtractionFailedId,
			wantOk: true,
		},
		{
			name:   "unclassified",
			err:    errors.New("something else"),
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue, ok := FromError(tt.err)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && issue.Id() != tt.wantId {
				t.Errorf("Id = %d, want %d", issue.Id(), tt.wantId)
			}
		})
	}
}
