// SPDX-License-Identifier: MPL-2.0

// Package check runs environment diagnostics: the on-disk layout, the active
// selection, and the host's compiler and driver tooling.
package check

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"cudup-cli/internal/active"
	"cudup-cli/internal/config"
	"cudup-cli/internal/issue"
	"cudup-cli/internal/local"
)

// Status classifies a single diagnostic outcome.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusError
)

// Result is one diagnostic's outcome. Issue, when non-zero, names the issue
// card the caller can render for remediation guidance.
type Result struct {
	Name   string
	Status Status
	Detail string
	Issue  issue.Id
}

// Summary aggregates a full diagnostic run.
type Summary struct {
	Results  []Result
	Errors   int
	Warnings int
}

// runCommand is a seam so tests can fake nvcc and nvidia-smi.
var runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// Run executes every diagnostic against the given home layout.
func Run(ctx context.Context, paths config.Paths) Summary {
	results := []Result{
		checkHome(paths),
		checkInstalledVersions(paths),
		checkActiveVersion(paths),
		checkNvcc(ctx),
		checkDriver(ctx),
		checkGPU(ctx),
	}

	s := Summary{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusError:
			s.Errors++
		case StatusWarning:
			s.Warnings++
		}
	}
	return s
}

func checkHome(paths config.Paths) Result {
	if _, err := os.Stat(paths.Home); err != nil {
		return Result{
			Name:   "cudup directory",
			Status: StatusWarning,
			Detail: fmt.Sprintf("%s does not exist (created on first install)", paths.Home),
		}
	}
	return Result{Name: "cudup directory", Status: StatusOK, Detail: paths.Home}
}

func checkInstalledVersions(paths config.Paths) Result {
	versions, err := local.InstalledVersions(paths)
	if err != nil {
		return Result{Name: "installed versions", Status: StatusError, Detail: err.Error()}
	}
	if len(versions) == 0 {
		return Result{Name: "installed versions", Status: StatusOK, Detail: "none"}
	}

	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.String()
	}
	return Result{
		Name:   "installed versions",
		Status: StatusOK,
		Detail: fmt.Sprintf("%d (%s)", len(versions), strings.Join(names, ", ")),
	}
}

// checkActiveVersion verifies the active pointer still names an existing
// install directory. A pointer to a removed directory is an error: the user's
// environment exports paths that no longer resolve.
func checkActiveVersion(paths config.Paths) Result {
	state, found, err := active.Read(paths)
	if err != nil {
		return Result{Name: "active version", Status: StatusError, Detail: err.Error()}
	}
	if !found {
		return Result{Name: "active version", Status: StatusWarning, Detail: "none selected"}
	}
	if _, err := os.Stat(state.InstallDir); err != nil {
		return Result{
			Name:   "active version",
			Status: StatusError,
			Detail: fmt.Sprintf("%s points at missing directory %s", state.Version, state.InstallDir),
		}
	}
	return Result{Name: "active version", Status: StatusOK, Detail: state.Version}
}

func checkNvcc(ctx context.Context) Result {
	out, err := runCommand(ctx, "nvcc", "--version")
	if err != nil {
		return Result{Name: "nvcc", Status: StatusWarning, Detail: "not found in PATH"}
	}

	// nvcc reports "Cuda compilation tools, release 12.4, V12.4.99".
	for _, line := range strings.Split(out, "\n") {
		if _, rest, ok := strings.Cut(line, "release"); ok {
			version, _, _ := strings.Cut(rest, ",")
			return Result{Name: "nvcc", Status: StatusOK, Detail: strings.TrimSpace(version)}
		}
	}
	return Result{Name: "nvcc", Status: StatusOK, Detail: "found"}
}

func checkDriver(ctx context.Context) Result {
	out, err := runCommand(ctx, "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")
	if err != nil {
		return Result{
			Name:   "nvidia driver",
			Status: StatusWarning,
			Detail: "nvidia-smi not found",
			Issue:  issue.DriverNotFoundId,
		}
	}

	version, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if version == "" {
		return Result{Name: "nvidia driver", Status: StatusError, Detail: "nvidia-smi returned nothing"}
	}
	return Result{Name: "nvidia driver", Status: StatusOK, Detail: "v" + version}
}

func checkGPU(ctx context.Context) Result {
	out, err := runCommand(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return Result{Name: "gpu", Status: StatusWarning, Detail: "nvidia-smi not available"}
	}

	gpus := strings.Split(strings.TrimSpace(out), "\n")
	if len(gpus) == 0 || gpus[0] == "" {
		return Result{Name: "gpu", Status: StatusWarning, Detail: "could not detect"}
	}
	detail := gpus[0]
	if len(gpus) > 1 {
		detail = fmt.Sprintf("%d GPUs", len(gpus))
	}
	return Result{Name: "gpu", Status: StatusOK, Detail: detail}
}
