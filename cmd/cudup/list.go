// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cudup-cli/internal/active"
	"cudup-cli/internal/cuda"
	"cudup-cli/internal/discover"
	"cudup-cli/internal/local"
)

// listParams bundles the dependencies and flags for the list command so the
// core logic in runList can be tested without a real Cobra command.
type listParams struct {
	stdout    io.Writer
	app       *app
	installed bool // --installed: local versions only, no network
	refresh   bool // --refresh: bypass the version-list cache
}

// newListCommand creates the `cudup list` command.
func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available or installed CUDA versions",
		Long: `List the CUDA versions published on the download server.

The listing is cached for a day; --refresh forces a fresh scrape.
With --installed, only the locally installed versions are shown and
no network access happens at all.`,
		Example: `  # All published versions (cached)
  cudup list

  # Force a fresh listing
  cudup list --refresh

  # Only what is installed locally
  cudup list --installed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			installed, _ := cmd.Flags().GetBool("installed")
			refresh, _ := cmd.Flags().GetBool("refresh")

			a, err := newApp("")
			if err != nil {
				return reportError(cmd, err)
			}

			p := listParams{
				stdout:    cmd.OutOrStdout(),
				app:       a,
				installed: installed,
				refresh:   refresh,
			}

			if err := runList(cmd.Context(), p); err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("installed", false, "Show only locally installed versions")
	cmd.Flags().Bool("refresh", false, "Bypass the cached version listing")

	return cmd
}

// runList is the core listing logic, separated from Cobra for testability.
func runList(ctx context.Context, p listParams) error {
	installedSet := make(map[string]bool)
	installedVersions, err := local.InstalledVersions(p.app.paths)
	if err != nil {
		return err
	}
	for _, v := range installedVersions {
		installedSet[v.String()] = true
	}

	activeVersion := ""
	if state, found, err := active.Read(p.app.paths); err == nil && found {
		activeVersion = state.Version
	}

	var versions []cuda.Version
	if p.installed {
		versions = installedVersions
	} else {
		versions, err = p.app.client.AvailableVersions(ctx, discover.ProductCUDA, p.refresh)
		if err != nil {
			return err
		}
	}

	if len(versions) == 0 {
		if p.installed {
			fmt.Fprintln(p.stdout, "No CUDA versions installed. Run 'cudup install <version>' to add one.")
		} else {
			fmt.Fprintln(p.stdout, "No CUDA versions found on the download server.")
		}
		return nil
	}

	for _, v := range versions {
		marker := "  "
		suffix := ""
		switch {
		case v.String() == activeVersion:
			marker = SuccessStyle.Render("* ")
			suffix = SubtitleStyle.Render(" (active)")
		case installedSet[v.String()]:
			suffix = SubtitleStyle.Render(" (installed)")
		}
		fmt.Fprintf(p.stdout, "%s%s%s\n", marker, v, suffix)
	}

	return nil
}
