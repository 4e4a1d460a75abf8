// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cudup-cli/internal/discover"
)

// newCacheCommand creates the `cudup cache` command group.
func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata cache",
		Long: `Manage the on-disk cache of version listings and release metadata.

Version listings are cached for a day and release metadata for a
week. A corrupted cache file is never rebuilt silently; clear the
cache to recover.`,
	}

	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCacheStatsCommand())
	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached listings and metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp("")
			if err != nil {
				return reportError(cmd, err)
			}

			if err := a.cache.Clear(); err != nil {
				return reportError(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Cache cleared."))
			return nil
		},
	}
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the cache currently holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp("")
			if err != nil {
				return reportError(cmd, err)
			}

			printCacheStats(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func printCacheStats(w io.Writer, a *app) {
	stats := a.cache.CollectStats(discover.ProductCUDA, discover.ProductCudnn)

	fmt.Fprintln(w, TitleStyle.Render("Cache")+SubtitleStyle.Render(" ("+a.paths.CacheDir()+")"))
	for _, product := range []string{discover.ProductCUDA, discover.ProductCudnn} {
		listing := "no"
		if stats.VersionLists[product] {
			listing = "yes"
		}
		fmt.Fprintf(w, "  %-6s version listing: %-3s  metadata files: %d\n",
			product, listing, stats.MetadataFiles[product])
	}
}
