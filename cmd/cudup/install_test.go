// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cudup-cli/internal/cuda"
	"cudup-cli/internal/fetch"
)

// fakeToolkitInstaller returns a canned result so runInstall's output
// handling can be tested without downloads.
type fakeToolkitInstaller struct {
	result *fetch.Result
	err    error
}

func (f *fakeToolkitInstaller) Install(context.Context, cuda.Version, bool) (*fetch.Result, error) {
	return f.result, f.err
}

func TestRunInstallReportsIncludedCudnn(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := installParams{
		stdout: &out,
		app:    &app{platform: "linux-x86_64"},
		installer: &fakeToolkitInstaller{result: &fetch.Result{
			Version:      cuda.MustParseVersion("12.4.1"),
			InstallDir:   "/home/dev/.cudup/versions/12.4.1",
			PackageCount: 3,
			TotalSize:    1 << 30,
			CudnnVersion: cuda.MustParseVersion("9.2.0"),
		}},
		version: cuda.MustParseVersion("12.4.1"),
	}

	if err := runInstall(context.Background(), p); err != nil {
		t.Fatalf("runInstall() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Included cuDNN 9.2.0") {
		t.Errorf("output %q missing the cuDNN line", got)
	}
	if !strings.Contains(got, `eval "$(cudup use 12.4.1)"`) {
		t.Errorf("output %q missing the activation hint", got)
	}
}

func TestRunInstallRendersAdviceWithoutCudnn(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := installParams{
		stdout: &out,
		app:    &app{platform: "linux-x86_64"},
		installer: &fakeToolkitInstaller{result: &fetch.Result{
			Version:      cuda.MustParseVersion("12.4.1"),
			InstallDir:   "/home/dev/.cudup/versions/12.4.1",
			PackageCount: 2,
		}},
		version: cuda.MustParseVersion("12.4.1"),
	}

	if err := runInstall(context.Background(), p); err != nil {
		t.Fatalf("runInstall() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "installed without it") {
		t.Errorf("output %q missing the cuDNN warning", got)
	}
	// The rendered card follows with remediation steps.
	if !strings.Contains(got, "Things you can try") {
		t.Errorf("output %q missing the rendered guidance card", got)
	}
}

func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	progress := newProgressPrinter(&out)

	progress("cuda_nvcc", 512, 2048)
	progress("cuda_nvcc", 2048, 2048)

	got := out.String()
	if !strings.Contains(got, "cuda_nvcc") {
		t.Errorf("progress output %q missing package name", got)
	}
	if !strings.Contains(got, "\r") {
		t.Error("progress lines should rewrite in place with carriage returns")
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("a completed download should end its status line")
	}
}

func TestProgressPrinterUnknownTotal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	progress := newProgressPrinter(&out)

	progress("cudnn", 1024, 0)

	got := out.String()
	if !strings.Contains(got, "cudnn") {
		t.Errorf("progress output %q missing package name", got)
	}
	if strings.Contains(got, "/") {
		t.Errorf("unknown total should not print a ratio: %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("in-flight progress should stay on one line")
	}
}
