// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cudup-cli/internal/active"
	"cudup-cli/internal/cuda"
	"cudup-cli/internal/issue"
	"cudup-cli/internal/local"
)

// useParams bundles the dependencies for the use command so runUse can be
// tested without a real Cobra command.
type useParams struct {
	stdout  io.Writer
	app     *app
	version cuda.Version // zero means resolve from the nearest pin file
}

// newUseCommand creates the `cudup use` command.
func newUseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use [version]",
		Short: "Activate an installed CUDA version",
		Long: `Print the shell exports that activate an installed CUDA version
and record it as the active selection.

The command prints to stdout so it composes with eval. Without an
argument, the version comes from the nearest .cuda-version file
between the working directory and your home directory.`,
		Example: `  # Activate in the current shell
  eval "$(cudup use 12.4.1)"

  # Activate whatever the project pins
  eval "$(cudup use)"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			var version cuda.Version
			if len(args) > 0 {
				v, err := cuda.ParseVersion(args[0])
				if err != nil {
					return err
				}
				version = v
			}

			a, err := newApp("")
			if err != nil {
				return reportError(cmd, err)
			}

			p := useParams{stdout: cmd.OutOrStdout(), app: a, version: version}
			if err := runUse(p); err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}

	return cmd
}

// runUse is the core activation logic, separated from Cobra for testability.
func runUse(p useParams) error {
	version := p.version
	if version.IsZero() {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}

		pinned, err := resolvePinnedVersion(p.app, wd, home)
		if err != nil {
			return err
		}
		version = pinned
	}

	installDir := p.app.paths.VersionDir(version.String())
	if _, err := os.Stat(installDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s; run 'cudup install %s' first", local.ErrNotInstalled, version, version)
		}
		return fmt.Errorf("checking %s: %w", installDir, err)
	}

	state := active.State{
		Version:     version.String(),
		InstallDir:  installDir,
		ActivatedAt: time.Now().UTC(),
	}
	if err := active.Write(p.app.paths, state); err != nil {
		return err
	}

	fmt.Fprint(p.stdout, active.EnvScript(version.String(), installDir))
	return nil
}

// resolvePinnedVersion finds and parses the nearest pin file between
// startDir and homeDir.
func resolvePinnedVersion(a *app, startDir, homeDir string) (cuda.Version, error) {
	path, err := local.FindVersionFile(startDir, homeDir)
	if err != nil {
		return cuda.Version{}, issue.NewErrorContext().
			WithOperation("resolve pinned version").
			WithSuggestion("Run 'cudup local <version>' to pin one for this project").
			WithSuggestion("Or pass a version directly: cudup use <version>").
			Wrap(err).
			BuildError()
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return cuda.Version{}, fmt.Errorf("reading %s: %w", path, err)
	}

	pin, err := local.ParsePin(string(contents))
	if err != nil {
		return cuda.Version{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, key := range pin.UnknownKeys {
		a.logger.Warn("ignoring unknown entry in pin file", "file", path, "entry", key)
	}
	if pin.CudnnVersion != "" {
		a.logger.Warn("cudnn pinning is not supported yet; ignoring", "file", path)
	}

	a.logger.Info("using pinned version", "file", path, "version", pin.Version)
	return pin.Version, nil
}
