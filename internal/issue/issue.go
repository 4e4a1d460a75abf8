// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"errors"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"cudup-cli/internal/cache"
	"cudup-cli/internal/checksum"
	"cudup-cli/internal/fetch"
	"cudup-cli/internal/local"
	"cudup-cli/internal/platform"
)

type Id int

const (
	VersionUnavailableId Id = iota + 1
	AlreadyInstalledId
	NotInstalledId
	ChecksumMismatchId
	CacheCorruptId
	NoCompatibleCudnnId
	PlatformUnsupportedId
	DriverNotFoundId
	ExtractionFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	versionUnavailableIssue = &Issue{
		id: VersionUnavailableId,
		mdMsg: `
# Version not available!

The version you asked for is not published on the download server.

## Things you can try:
- List all published versions:
~~~
$ cudup list
~~~

- Refresh the cached version listing in case it is stale:
~~~
$ cudup list --refresh
~~~

- Check for typos: versions are written as major.minor.patch, e.g. 12.4.1`,
	}

	alreadyInstalledIssue = &Issue{
		id: AlreadyInstalledId,
		mdMsg: `
# Already installed!

This version already has an install directory under ~/.cudup/versions.

## Things you can try:
- Activate it instead of reinstalling:
~~~
$ cudup use <version>
~~~

- Reinstall from scratch by removing it first:
~~~
$ cudup uninstall <version>
$ cudup install <version>
~~~`,
	}

	notInstalledIssue = &Issue{
		id: NotInstalledId,
		mdMsg: `
# Version not installed!

The version you referenced has no install directory on this machine.

## Things you can try:
- See what is installed:
~~~
$ cudup list --installed
~~~

- Install it:
~~~
$ cudup install <version>
~~~`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Downloaded archive failed verification!

A downloaded archive did not match the SHA256 digest published in the
release metadata. The partial installation has been removed.

## Common causes:
- A corporate proxy or captive portal rewrote the download
- The download was truncated by a flaky connection
- Stale metadata in the local cache

## Things you can try:
- Retry with a refreshed cache:
~~~
$ cudup install <version> --refresh
~~~

- Check your network path to developer.download.nvidia.com`,
	}

	cacheCorruptIssue = &Issue{
		id: CacheCorruptId,
		mdMsg: `
# Cache corrupted!

A file in the metadata cache could not be parsed. The cache is never
silently rebuilt, so this needs an explicit reset.

## Things you can try:
- Clear the cache and retry:
~~~
$ cudup cache clear
~~~

- If this recurs, check for other tools writing into ~/.cudup/cache`,
	}

	noCompatibleCudnnIssue = &Issue{
		id: NoCompatibleCudnnId,
		mdMsg: `
# No compatible cuDNN found!

No published cuDNN release declares support for this CUDA major version.
The toolkit was installed without cuDNN.

## Things you can try:
- Refresh the release listings in case a new cuDNN shipped recently:
~~~
$ cudup list --refresh
~~~

- Install a CUDA major line that cuDNN currently supports`,
	}

	platformUnsupportedIssue = &Issue{
		id: PlatformUnsupportedId,
		mdMsg: `
# Platform not supported!

cudup installs the Linux redistributable archives and recognizes the
x86_64, sbsa (arm64 server), and ppc64le architectures.

## Things you can try:
- On other operating systems, use the official installers from
  https://developer.nvidia.com/cuda-downloads
- Override the platform explicitly if the detection is wrong:
~~~
$ cudup install <version> --platform linux-sbsa
~~~`,
	}

	driverNotFoundIssue = &Issue{
		id: DriverNotFoundId,
		mdMsg: `
# NVIDIA driver not found!

nvidia-smi is not on PATH, so no driver appears to be installed. The
toolkit will install fine, but nothing will run on a GPU.

## Things you can try:
- Install the driver from your distribution:
  - Ubuntu: ` + "`sudo ubuntu-drivers install`" + `
  - Fedora: ` + "`sudo dnf install akmod-nvidia`" + `
- Or download it from https://www.nvidia.com/drivers
- Verify with:
~~~
$ nvidia-smi
~~~`,
	}

	extractionFailedIssue = &Issue{
		id: ExtractionFailedId,
		mdMsg: `
# Archive extraction failed!

The tar command failed while unpacking a verified archive. The partial
installation has been removed.

## Common causes:
- tar is missing or too old to handle xz archives
- The disk filled up mid-extraction

## Things you can try:
- Make sure tar and xz are installed:
~~~
$ tar --version && xz --version
~~~

- Check free space under ~/.cudup:
~~~
$ df -h ~/.cudup
~~~`,
	}

	issues = map[Id]*Issue{
		versionUnavailableIssue.Id():  versionUnavailableIssue,
		alreadyInstalledIssue.Id():    alreadyInstalledIssue,
		notInstalledIssue.Id():        notInstalledIssue,
		checksumMismatchIssue.Id():    checksumMismatchIssue,
		cacheCorruptIssue.Id():        cacheCorruptIssue,
		noCompatibleCudnnIssue.Id():   noCompatibleCudnnIssue,
		platformUnsupportedIssue.Id(): platformUnsupportedIssue,
		driverNotFoundIssue.Id():      driverNotFoundIssue,
		extractionFailedIssue.Id():    extractionFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}

// FromError maps a classified error to its issue, when one applies.
func FromError(err error) (*Issue, bool) {
	var extractErr *fetch.ExtractError
	switch {
	case errors.Is(err, fetch.ErrVersionUnavailable):
		return Get(VersionUnavailableId), true
	case errors.Is(err, fetch.ErrAlreadyInstalled):
		return Get(AlreadyInstalledId), true
	case errors.Is(err, local.ErrNotInstalled):
		return Get(NotInstalledId), true
	case errors.Is(err, checksum.ErrMismatch):
		return Get(ChecksumMismatchId), true
	case errors.Is(err, cache.ErrCorrupt):
		return Get(CacheCorruptId), true
	case errors.Is(err, platform.ErrUnsupported):
		return Get(PlatformUnsupportedId), true
	case errors.As(err, &extractErr):
		return Get(ExtractionFailedId), true
	default:
		return nil, false
	}
}
