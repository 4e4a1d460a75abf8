// SPDX-License-Identifier: MPL-2.0

// Package config resolves the cudup configuration and on-disk layout. All
// state locations flow from an explicit Paths value constructed once at
// startup; nothing below the CLI layer consults the environment directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "cudup"

	// HomeEnv overrides the default state home (~/.cudup).
	HomeEnv = "CUDUP_HOME"

	// DefaultCUDABaseURL is the redist endpoint for toolkit releases.
	DefaultCUDABaseURL = "https://developer.download.nvidia.com/compute/cuda/redist"

	// DefaultCudnnBaseURL is the redist endpoint for cuDNN releases.
	DefaultCudnnBaseURL = "https://developer.download.nvidia.com/compute/cudnn/redist"

	// DefaultVersionListTTL bounds the age of cached available-version sets.
	DefaultVersionListTTL = 24 * time.Hour

	// DefaultMetadataTTL bounds the age of cached release metadata.
	// Published metadata is immutable in practice, so it is kept longer.
	DefaultMetadataTTL = 7 * 24 * time.Hour
)

// Config carries the tunable settings read from the config file and
// CUDUP_* environment variables.
type Config struct {
	CUDABaseURL    string
	CudnnBaseURL   string
	Platform       string // empty means auto-detect
	VersionListTTL time.Duration
	MetadataTTL    time.Duration
	Verbose        bool
}

// DefaultConfig returns the built-in settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		CUDABaseURL:    DefaultCUDABaseURL,
		CudnnBaseURL:   DefaultCudnnBaseURL,
		VersionListTTL: DefaultVersionListTTL,
		MetadataTTL:    DefaultMetadataTTL,
	}
}

// Load reads the config file (if any) and environment overrides.
// A missing config file is not an error; a malformed one is.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("cuda_base_url", defaults.CUDABaseURL)
	v.SetDefault("cudnn_base_url", defaults.CudnnBaseURL)
	v.SetDefault("platform", "")
	v.SetDefault("cache.version_list_ttl", defaults.VersionListTTL)
	v.SetDefault("cache.metadata_ttl", defaults.MetadataTTL)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("CUDUP")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	return &Config{
		CUDABaseURL:    v.GetString("cuda_base_url"),
		CudnnBaseURL:   v.GetString("cudnn_base_url"),
		Platform:       v.GetString("platform"),
		VersionListTTL: v.GetDuration("cache.version_list_ttl"),
		MetadataTTL:    v.GetDuration("cache.metadata_ttl"),
		Verbose:        v.GetBool("verbose"),
	}, nil
}

// ConfigDir returns the cudup configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS,
// and $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolving home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}
