// SPDX-License-Identifier: MPL-2.0

// Package fetch turns release metadata into download tasks and runs the
// download, verify, and extract pipeline that installs a release on disk.
package fetch

import (
	"fmt"
	"slices"
	"strings"

	"cudup-cli/internal/cuda"
)

// releasePrefix marks release-level entries in the package map (for example
// release notes bundles) that are not installable archives.
const releasePrefix = "release_"

// DownloadTask is one archive to download, verify, and extract.
type DownloadTask struct {
	PackageName    string
	PackageVersion string
	URL            string
	SHA256         string
	Size           uint64
	SizeKnown      bool
	RelativePath   string
}

// ArchiveName returns the filename component of the task's relative path,
// used to name the downloaded file on disk.
func (t DownloadTask) ArchiveName() string {
	if i := strings.LastIndexByte(t.RelativePath, '/'); i >= 0 && i+1 < len(t.RelativePath) {
		return t.RelativePath[i+1:]
	}
	if t.RelativePath != "" {
		return t.RelativePath
	}
	return "archive.tar.xz"
}

// CollectCUDATasks builds the download tasks for a toolkit release on the
// given platform. Release-level entries are skipped, as are packages with no
// build for the platform. Variant-shaped platforms resolve through the
// toolkit version's own variant key. Tasks are returned largest first so the
// slowest downloads start earliest; tasks with unknown size sort last.
func CollectCUDATasks(meta *cuda.ReleaseMetadata, version cuda.Version, platform, baseURL string) []DownloadTask {
	var tasks []DownloadTask

	for name, pkg := range meta.Packages {
		if strings.HasPrefix(name, releasePrefix) {
			continue
		}

		pi, ok := pkg.Platform(platform)
		if !ok {
			continue
		}

		dl, ok := pi.AsSimple()
		if !ok {
			dl, ok = pi.Variant(version.VariantKey())
			if !ok {
				continue
			}
		}

		tasks = append(tasks, newTask(name, pkg.Version, dl, baseURL))
	}

	sortTasks(tasks)
	return tasks
}

// CollectCudnnTask builds the download task for the companion library on the
// given platform, resolving variant-shaped platforms through variantKey.
// Returns ok=false when the release has no build for the platform or variant.
func CollectCudnnTask(meta *cuda.ReleaseMetadata, variantKey, platform, baseURL string) (DownloadTask, bool) {
	pkg, ok := meta.Package("cudnn")
	if !ok {
		return DownloadTask{}, false
	}

	pi, ok := pkg.Platform(platform)
	if !ok {
		return DownloadTask{}, false
	}

	dl, ok := pi.AsSimple()
	if !ok {
		dl, ok = pi.Variant(variantKey)
		if !ok {
			return DownloadTask{}, false
		}
	}

	return newTask("cudnn", pkg.Version, dl, baseURL), true
}

func newTask(name, version string, dl cuda.DownloadInfo, baseURL string) DownloadTask {
	size, known := dl.SizeBytes()
	return DownloadTask{
		PackageName:    name,
		PackageVersion: version,
		URL:            fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), strings.TrimLeft(dl.RelativePath, "/")),
		SHA256:         dl.SHA256,
		Size:           size,
		SizeKnown:      known,
		RelativePath:   dl.RelativePath,
	}
}

// sortTasks orders tasks by size descending with unknown sizes last, breaking
// ties by package name for a stable, reproducible order.
func sortTasks(tasks []DownloadTask) {
	slices.SortFunc(tasks, func(a, b DownloadTask) int {
		switch {
		case a.SizeKnown && !b.SizeKnown:
			return -1
		case !a.SizeKnown && b.SizeKnown:
			return 1
		case a.SizeKnown && b.SizeKnown && a.Size != b.Size:
			if a.Size > b.Size {
				return -1
			}
			return 1
		default:
			return strings.Compare(a.PackageName, b.PackageName)
		}
	})
}
