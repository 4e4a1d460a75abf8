// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cudup-cli/internal/cuda"
	"cudup-cli/internal/fetch"
	"cudup-cli/internal/issue"
)

// toolkitInstaller is the slice of the install pipeline runInstall needs,
// substitutable in tests.
type toolkitInstaller interface {
	Install(ctx context.Context, version cuda.Version, forceRefresh bool) (*fetch.Result, error)
}

// installParams bundles the dependencies and flags for the install command,
// enabling the core logic in runInstall to be tested without a real Cobra
// command or live downloads.
type installParams struct {
	stdout    io.Writer
	app       *app
	installer toolkitInstaller
	version   cuda.Version
	refresh   bool // --refresh: bypass cached listings and metadata
}

// newInstallCommand creates the `cudup install` command.
func newInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <version>",
		Short: "Install a CUDA version with its matching cuDNN",
		Long: `Install a CUDA version from the official redistributable archives.

Each package archive is downloaded, verified against its published
SHA256 digest, and extracted into ~/.cudup/versions/<version>. The
newest cuDNN release compatible with the CUDA major version is
installed into the same directory; if none exists, the install
proceeds without cuDNN.

A failure at any point removes the whole version directory, so a
version directory either holds a complete install or does not exist.`,
		Example: `  # Install with cached release metadata
  cudup install 12.4.1

  # Bypass the cache when resolving the release
  cudup install 12.4.1 --refresh

  # Stage archives for a different architecture
  cudup install 12.4.1 --platform linux-sbsa`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			refresh, _ := cmd.Flags().GetBool("refresh")
			platformFlag, _ := cmd.Flags().GetString("platform")

			version, err := cuda.ParseVersion(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(platformFlag)
			if err != nil {
				return reportError(cmd, err)
			}

			p := installParams{
				stdout:  cmd.OutOrStdout(),
				app:     a,
				version: version,
				refresh: refresh,
			}
			p.installer = fetch.NewInstaller(a.client, a.paths, a.platform,
				fetch.WithLogger(a.logger),
				fetch.WithProgress(newProgressPrinter(cmd.ErrOrStderr())))

			if err := runInstall(cmd.Context(), p); err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "Bypass cached listings and metadata")
	cmd.Flags().String("platform", "", "Override the detected platform (e.g. linux-sbsa)")

	return cmd
}

// runInstall is the core install logic, separated from Cobra for testability.
func runInstall(ctx context.Context, p installParams) error {
	fmt.Fprintf(p.stdout, "Installing CUDA %s for %s\n", CmdStyle.Render(p.version.String()), p.app.platform)

	result, err := p.installer.Install(ctx, p.version, p.refresh)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "\n%s\n", SuccessStyle.Render(fmt.Sprintf(
		"Installed CUDA %s (%d packages, %s)", result.Version, result.PackageCount, fetch.FormatSize(result.TotalSize))))
	if result.CudnnVersion.IsZero() {
		fmt.Fprintln(p.stdout, WarningStyle.Render("No compatible cuDNN was found; installed without it."))
		if card, renderErr := issue.Get(issue.NoCompatibleCudnnId).Render("dark"); renderErr == nil {
			fmt.Fprintln(p.stdout, card)
		}
	} else {
		fmt.Fprintf(p.stdout, "Included cuDNN %s\n", result.CudnnVersion)
	}

	fmt.Fprintf(p.stdout, "\nTo use this version, run:\n  eval \"$(cudup use %s)\"\n", result.Version)
	return nil
}

// newProgressPrinter returns a Progress callback that rewrites a single
// status line per package. stderr keeps progress out of pipeline output.
func newProgressPrinter(w io.Writer) fetch.Progress {
	return func(packageName string, received, total uint64) {
		if total > 0 {
			fmt.Fprintf(w, "\r%-30s %s / %s", packageName, fetch.FormatSize(received), fetch.FormatSize(total))
		} else {
			fmt.Fprintf(w, "\r%-30s %s", packageName, fetch.FormatSize(received))
		}
		if total > 0 && received >= total {
			fmt.Fprintln(w)
		}
	}
}
