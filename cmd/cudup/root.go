// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"cudup-cli/internal/cache"
	"cudup-cli/internal/config"
	"cudup-cli/internal/discover"
	"cudup-cli/internal/issue"
	"cudup-cli/internal/platform"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "cudup",
		Short: "A version manager for the CUDA toolkit and cuDNN",
		Long: TitleStyle.Render("cudup") + SubtitleStyle.Render(" - A version manager for the CUDA toolkit and cuDNN") + `

cudup installs the official NVIDIA redistributable archives under
~/.cudup/versions, one directory per toolkit version, and pairs each
install with the newest compatible cuDNN release. Switching versions
only rewrites environment variables; nothing is touched system-wide.

` + SubtitleStyle.Render("Quick Start:") + `
  1. cudup list                 See the published versions
  2. cudup install 12.4.1       Install one (with matching cuDNN)
  3. eval "$(cudup use 12.4.1)" Activate it in the current shell

` + SubtitleStyle.Render("Examples:") + `
  cudup list --installed    Show what is installed locally
  cudup uninstall 12.4.1    Remove an installed version
  cudup cache stats         Inspect the metadata cache
  cudup check               Diagnose the host environment`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cudup/config.toml)")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newUninstallCommand())
	rootCmd.AddCommand(newUseCommand())
	rootCmd.AddCommand(newLocalCommand())
	rootCmd.AddCommand(newCacheCommand())
	rootCmd.AddCommand(newCheckCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// app bundles the wired dependencies each subcommand needs. Building it in
// one place keeps the RunE closures down to flag plumbing.
type app struct {
	cfg      *config.Config
	paths    config.Paths
	cache    *cache.Cache
	client   *discover.Client
	logger   *log.Logger
	platform string
}

// newApp loads configuration and constructs the shared dependency graph.
// platformOverride, when non-empty, wins over both config and detection.
func newApp(platformOverride string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		ec := issue.NewErrorContext().WithOperation("load configuration")
		if cfgFile != "" {
			ec = ec.WithResource(cfgFile)
		}
		return nil, ec.
			WithSuggestion("Check the file for TOML syntax errors").
			WithSuggestion("Pass --config to point at a different file").
			Wrap(err).
			BuildError()
	}

	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr)
	if verbose || cfg.Verbose {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	plat := platformOverride
	if plat == "" {
		plat = cfg.Platform
	}
	if plat == "" {
		plat, err = platform.Detect()
		if err != nil {
			return nil, err
		}
	}

	c := cache.New(paths.CacheDir(),
		cache.WithVersionListTTL(cfg.VersionListTTL),
		cache.WithMetadataTTL(cfg.MetadataTTL))

	client := discover.NewClient(c,
		discover.WithBaseURLs(cfg.CUDABaseURL, cfg.CudnnBaseURL),
		discover.WithLogger(logger))

	return &app{
		cfg:      cfg,
		paths:    paths,
		cache:    c,
		client:   client,
		logger:   logger,
		platform: plat,
	}, nil
}

// reportError prints err for the user and converts it to a non-zero exit.
// Every RunE failure path funnels through here so ActionableError
// suggestions and issue cards render consistently.
func reportError(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: 1, Err: err}
}

// formatErrorForDisplay formats an error for user display. Known failure
// classes render their issue card; ActionableErrors use their own Format.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}

	if iss, ok := issue.FromError(err); ok {
		if rendered, renderErr := iss.Render("dark"); renderErr == nil {
			return err.Error() + "\n" + rendered
		}
	}

	return err.Error()
}
