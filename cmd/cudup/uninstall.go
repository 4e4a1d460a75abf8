// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cudup-cli/internal/cuda"
	"cudup-cli/internal/fetch"
	"cudup-cli/internal/issue"
	"cudup-cli/internal/local"
)

// uninstallParams bundles the dependencies and flags for the uninstall
// command so runUninstall can be tested with scripted stdin.
type uninstallParams struct {
	stdout  io.Writer
	stdin   io.Reader
	app     *app
	version cuda.Version // zero when --all
	force   bool         // --force: no prompt, allow removing the active version
	all     bool         // --all: remove every installed version
}

// newUninstallCommand creates the `cudup uninstall` command.
func newUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall [version]",
		Short: "Remove an installed CUDA version",
		Long: `Remove an installed CUDA version from ~/.cudup/versions.

Removing the currently active version requires --force and clears the
active selection. With --all, every installed version is removed.`,
		Example: `  # Remove one version (asks for confirmation)
  cudup uninstall 12.4.1

  # Remove without prompting
  cudup uninstall 12.4.1 --force

  # Remove everything
  cudup uninstall --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			force, _ := cmd.Flags().GetBool("force")
			all, _ := cmd.Flags().GetBool("all")

			if !all && len(args) == 0 {
				return errors.New("specify a version or use --all")
			}

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

			p := uninstallParams{
				stdout:  cmd.OutOrStdout(),
				stdin:   cmd.InOrStdin(),
				app:     a,
				version: version,
				force:   force,
				all:     all,
			}

			if err := runUninstall(p); err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation and allow removing the active version")
	cmd.Flags().Bool("all", false, "Remove all installed versions")

	return cmd
}

// runUninstall is the core uninstall logic, separated from Cobra for testability.
func runUninstall(p uninstallParams) error {
	if p.all {
		return uninstallAll(p)
	}
	return uninstallSingle(p, p.version)
}

func uninstallSingle(p uninstallParams, version cuda.Version) error {
	installDir := p.app.paths.VersionDir(version.String())
	// Size is display-only; a missing directory is reported by Uninstall below.
	size, err := local.DirSize(installDir)
	if err != nil {
		size = 0
	}

	fmt.Fprintf(p.stdout, "This will remove CUDA %s:\n  - %s (%s)\n\n", version, installDir, fetch.FormatSize(size))

	if !p.force && !confirm(p.stdin, p.stdout, "Proceed with uninstall?") {
		fmt.Fprintln(p.stdout, "Uninstall cancelled.")
		return nil
	}

	if err := local.Uninstall(p.app.paths, version, p.force); err != nil {
		if errors.Is(err, local.ErrVersionActive) {
			return issue.NewErrorContext().
				WithOperation("uninstall version").
				WithResource(version.String()).
				WithSuggestion("Pass --force to remove the active version and clear the selection").
				Wrap(err).
				BuildError()
		}
		return err
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render(fmt.Sprintf("Removed CUDA %s", version)))
	return nil
}

func uninstallAll(p uninstallParams) error {
	versions, err := local.InstalledVersions(p.app.paths)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(p.stdout, "No CUDA versions installed.")
		return nil
	}

	var total uint64
	fmt.Fprintf(p.stdout, "This will remove %d CUDA version(s):\n", len(versions))
	for _, v := range versions {
		size, sizeErr := local.DirSize(p.app.paths.VersionDir(v.String()))
		if sizeErr != nil {
			size = 0
		}
		total += size
		fmt.Fprintf(p.stdout, "  - %s (%s)\n", v, fetch.FormatSize(size))
	}
	fmt.Fprintf(p.stdout, "\nTotal: %s\n\n", fetch.FormatSize(total))

	if !p.force && !confirm(p.stdin, p.stdout, "Proceed with uninstall?") {
		fmt.Fprintln(p.stdout, "Uninstall cancelled.")
		return nil
	}

	removed := 0
	for _, v := range versions {
		if err := local.Uninstall(p.app.paths, v, p.force); err != nil {
			if errors.Is(err, local.ErrVersionActive) {
				return fmt.Errorf("%w; use --force to remove the active version", err)
			}
			if errors.Is(err, local.ErrNotInstalled) {
				// Lost a race with a concurrent uninstall; nothing left to do.
				continue
			}
			return err
		}
		fmt.Fprintf(p.stdout, "Removed CUDA %s\n", v)
		removed++
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render(fmt.Sprintf("Removed %d version(s)", removed)))
	return nil
}

// confirm asks a y/N question on stdout and reads the answer from stdin.
// Anything but y/yes (case-insensitive) declines.
func confirm(stdin io.Reader, stdout io.Writer, prompt string) bool {
	fmt.Fprintf(stdout, "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
