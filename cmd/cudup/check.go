// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cudup-cli/internal/check"
	"cudup-cli/internal/issue"
)

// newCheckCommand creates the `cudup check` command.
func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Diagnose the host environment",
		Long: `Run diagnostics against the cudup home directory, the active
selection, and the host's CUDA tooling (nvcc, driver, GPUs).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp("")
			if err != nil {
				return reportError(cmd, err)
			}

			summary := check.Run(cmd.Context(), a.paths)
			printCheckSummary(cmd.OutOrStdout(), summary)

			if summary.Errors > 0 {
				return &ExitError{Code: 1, Err: fmt.Errorf("%d check(s) failed", summary.Errors)}
			}
			return nil
		},
	}
}

func printCheckSummary(w io.Writer, s check.Summary) {
	fmt.Fprintln(w, TitleStyle.Render("cudup check"))
	fmt.Fprintln(w)

	for _, r := range s.Results {
		var symbol string
		switch r.Status {
		case check.StatusOK:
			symbol = SuccessStyle.Render("✓")
		case check.StatusWarning:
			symbol = WarningStyle.Render("!")
		case check.StatusError:
			symbol = ErrorStyle.Render("✗")
		}

		if r.Detail != "" {
			fmt.Fprintf(w, "[%s] %s: %s\n", symbol, r.Name, r.Detail)
		} else {
			fmt.Fprintf(w, "[%s] %s\n", symbol, r.Name)
		}
	}

	// Render the remediation card for any flagged diagnostic.
	for _, r := range s.Results {
		if r.Issue == 0 || r.Status == check.StatusOK {
			continue
		}
		if card, err := issue.Get(r.Issue).Render("dark"); err == nil {
			fmt.Fprintln(w, card)
		}
	}

	fmt.Fprintln(w)
	switch {
	case s.Errors > 0:
		fmt.Fprintln(w, ErrorStyle.Render(fmt.Sprintf("%d error(s), %d warning(s)", s.Errors, s.Warnings)))
	case s.Warnings > 0:
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("No errors, %d warning(s)", s.Warnings)))
	default:
		fmt.Fprintln(w, SuccessStyle.Render("All checks passed!"))
	}
}
