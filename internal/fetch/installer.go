// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"cudup-cli/internal/checksum"
	"cudup-cli/internal/config"
	"cudup-cli/internal/cuda"
	"cudup-cli/internal/discover"
)

var (
	// ErrVersionUnavailable indicates the requested toolkit version is not
	// published on the redistributable server.
	ErrVersionUnavailable = errors.New("version not available")

	// ErrAlreadyInstalled indicates the requested version already has an
	// install directory.
	ErrAlreadyInstalled = errors.New("version already installed")
)

type (
	// Discovery is the subset of the discovery client the installer needs,
	// substitutable in tests.
	Discovery interface {
		AvailableVersions(ctx context.Context, product string, force bool) ([]cuda.Version, error)
		FetchMetadata(ctx context.Context, product string, version cuda.Version, force bool) (*cuda.ReleaseMetadata, error)
		FindCompatibleCudnn(ctx context.Context, cudaVersion cuda.Version, force bool) (cuda.Version, *cuda.ReleaseMetadata, bool, error)
		BaseURL(product string) string
	}

	// Progress receives running download byte counts per package. total is
	// zero when the release metadata does not declare a usable size.
	Progress func(packageName string, received, total uint64)

	// Result summarizes a completed installation.
	Result struct {
		Version      cuda.Version
		InstallDir   string
		PackageCount int
		TotalSize    uint64
		CudnnVersion cuda.Version // zero when no compatible companion release existed
	}

	// Installer runs the end-to-end pipeline: resolve a release, download its
	// archives, verify them, and extract them into a fresh version directory.
	// Failures remove the version directory so no partial install survives.
	Installer struct {
		discovery  Discovery
		httpClient HTTPDoer
		paths      config.Paths
		platform   string
		logger     *log.Logger
		progress   Progress
	}

	// InstallerOption configures an Installer during construction.
	InstallerOption func(*Installer)
)

// WithHTTPClient sets a custom HTTP client for archive downloads.
func WithHTTPClient(c HTTPDoer) InstallerOption {
	return func(i *Installer) {
		i.httpClient = c
	}
}

// WithLogger sets the logger used for install progress and warnings.
func WithLogger(logger *log.Logger) InstallerOption {
	return func(i *Installer) {
		i.logger = logger
	}
}

// WithProgress sets the per-package download progress callback.
func WithProgress(p Progress) InstallerOption {
	return func(i *Installer) {
		i.progress = p
	}
}

// NewInstaller creates an Installer for the given platform, installing under
// the given paths. Defaults: NewDownloadClient, discarded logs, no progress.
func NewInstaller(d Discovery, paths config.Paths, platform string, opts ...InstallerOption) *Installer {
	i := &Installer{
		discovery:  d,
		httpClient: NewDownloadClient(),
		paths:      paths,
		platform:   platform,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install installs the given toolkit version together with the newest
// compatible companion-library release, when one exists. The archives of a
// release are processed strictly one at a time: download, verify, extract.
// Any failure removes the version directory entirely. forceRefresh bypasses
// the metadata cache when resolving the release.
func (i *Installer) Install(ctx context.Context, version cuda.Version, forceRefresh bool) (*Result, error) {
	available, err := i.discovery.AvailableVersions(ctx, discover.ProductCUDA, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("checking available versions: %w", err)
	}
	if !containsVersion(available, version) {
		return nil, fmt.Errorf("%w: %s", ErrVersionUnavailable, version)
	}

	meta, err := i.discovery.FetchMetadata(ctx, discover.ProductCUDA, version, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata for %s: %w", version, err)
	}

	tasks := CollectCUDATasks(meta, version, i.platform, i.discovery.BaseURL(discover.ProductCUDA))
	if len(tasks) == 0 {
		return nil, fmt.Errorf("release %s has no packages for platform %s", version, i.platform)
	}

	result := &Result{Version: version}

	// A missing companion release is a warning, never an install failure.
	cudnnVersion, cudnnMeta, found, err := i.discovery.FindCompatibleCudnn(ctx, version, forceRefresh)
	if err != nil {
		return nil, err
	}
	if found {
		task, ok := CollectCudnnTask(cudnnMeta, version.VariantKey(), i.platform, i.discovery.BaseURL(discover.ProductCudnn))
		if ok {
			i.logger.Info("including cudnn", "version", cudnnVersion)
			tasks = append(tasks, task)
			result.CudnnVersion = cudnnVersion
		} else {
			i.logger.Warn("compatible cudnn release has no build for platform",
				"version", cudnnVersion, "platform", i.platform)
		}
	} else {
		i.logger.Warn("no compatible cudnn release found", "cuda", version)
	}

	for _, t := range tasks {
		result.TotalSize += t.Size
	}
	result.PackageCount = len(tasks)

	if err := os.MkdirAll(i.paths.VersionsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating versions directory: %w", err)
	}
	if err := os.MkdirAll(i.paths.DownloadsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating downloads directory: %w", err)
	}

	installDir := i.paths.VersionDir(version.String())

	// Mkdir (not MkdirAll) so a concurrent install of the same version loses
	// the race cleanly instead of both writing into the directory.
	if err := os.Mkdir(installDir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s at %s", ErrAlreadyInstalled, version, installDir)
		}
		return nil, fmt.Errorf("creating install directory: %w", err)
	}

	// All or nothing: a failed task removes the whole version directory.
	succeeded := false
	defer func() {
		if !succeeded {
			_ = os.RemoveAll(installDir)
		}
	}()

	for _, task := range tasks {
		if err := i.runTask(ctx, task, installDir); err != nil {
			return nil, err
		}
	}

	succeeded = true
	result.InstallDir = installDir
	return result, nil
}

// runTask downloads one archive, verifies its digest, and extracts it into
// installDir. The downloaded archive is removed afterwards in every case.
func (i *Installer) runTask(ctx context.Context, task DownloadTask, installDir string) error {
	archivePath := filepath.Join(i.paths.DownloadsDir(), task.ArchiveName())

	var report func(uint64)
	if i.progress != nil {
		report = func(received uint64) {
			i.progress(task.PackageName, received, task.Size)
		}
	}

	i.logger.Info("downloading", "package", task.PackageName, "size", FormatSize(task.Size))
	if err := DownloadFile(ctx, i.httpClient, task.URL, archivePath, report); err != nil {
		return fmt.Errorf("downloading %s: %w", task.PackageName, err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := checksum.VerifyFile(archivePath, task.SHA256, task.PackageName); err != nil {
		return err
	}

	i.logger.Info("extracting", "package", task.PackageName)
	if err := ExtractArchive(ctx, archivePath, installDir); err != nil {
		return err
	}

	return nil
}

func containsVersion(versions []cuda.Version, want cuda.Version) bool {
	for _, v := range versions {
		if v.Compare(want) == 0 {
			return true
		}
	}
	return false
}
