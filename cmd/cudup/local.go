// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cudup-cli/internal/cuda"
	"cudup-cli/internal/local"
)

// localParams bundles the dependencies for the local command.
type localParams struct {
	stdout  io.Writer
	app     *app
	version cuda.Version
	dir     string
}

// newLocalCommand creates the `cudup local` command.
func newLocalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local <version>",
		Short: "Pin a CUDA version for the current directory",
		Long: `Write a .cuda-version file in the current directory.

'cudup use' without an argument walks up from the working directory
and activates the first pinned version it finds, stopping at your
home directory.`,
		Example: `  # Pin this project to 12.4.1
  cudup local 12.4.1

  # Then activate it from anywhere in the project
  eval "$(cudup use)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			version, err := cuda.ParseVersion(args[0])
			if err != nil {
				return err
			}

			a, err := newApp("")
			if err != nil {
				return reportError(cmd, err)
			}

			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving working directory: %w", err)
			}

			p := localParams{stdout: cmd.OutOrStdout(), app: a, version: version, dir: wd}
			if err := runLocal(p); err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}

	return cmd
}

// runLocal writes the pin and warns when the pinned version is not installed.
func runLocal(p localParams) error {
	path, err := local.WritePin(p.dir, p.version)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.stdout, "Set CUDA %s in %s\n", CmdStyle.Render(p.version.String()), path)

	if _, err := os.Stat(p.app.paths.VersionDir(p.version.String())); err != nil {
		fmt.Fprintln(p.stdout, WarningStyle.Render(fmt.Sprintf(
			"Warning: CUDA %s is not installed. Run 'cudup install %s' to install it.", p.version, p.version)))
	}
	return nil
}
