package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"kagglesync/internal/core/types"

	"github.com/goccy/go-yaml"
)

// LoadConfig loads configuration from a YAML file and applies defaults.
// A missing or empty path yields the defaults.
func LoadConfig(configFile string) (*types.Config, error) {
	loaded := &types.Config{}

	if configFile != "" && fileExists(configFile) {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		if err := yaml.Unmarshal(data, loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	return mergeConfig(loaded, types.DefaultConfig()), nil
}

// mergeConfig merges loaded config with defaults, with loaded values taking precedence
func mergeConfig(loaded *types.Config, defaults types.Config) *types.Config {
	result := types.Config{
		Debug: loaded.Debug,
		Kaggle: types.KaggleConfig{
			Binary:  coalesce(loaded.Kaggle.Binary, defaults.Kaggle.Binary),
			WorkDir: coalesce(loaded.Kaggle.WorkDir, defaults.Kaggle.WorkDir),
			Env:     mergeMap(defaults.Kaggle.Env, loaded.Kaggle.Env),
		},
		Storage: types.StorageConfig{
			Root:   expandHome(coalesce(loaded.Storage.Root, defaults.Storage.Root)),
			Marker: coalesce(loaded.Storage.Marker, defaults.Storage.Marker),
		},
		Extract: types.ExtractConfig{
			RateLimit: coalesce(loaded.Extract.RateLimit, defaults.Extract.RateLimit),
			Progress:  loaded.Extract.Progress || defaults.Extract.Progress,
		},
		Aliases: types.AliasConfig{
			Competitions: mergeMap(defaults.Aliases.Competitions, loaded.Aliases.Competitions),
			Datasets:     mergeMap(defaults.Aliases.Datasets, loaded.Aliases.Datasets),
		},
		Mirror: coalescePtr(loaded.Mirror, defaults.Mirror),
	}
	return &result
}

// Helper functions to reduce repetitive conditional logic
func coalesce[T comparable](loaded, defaultVal T) T {
	var zero T
	if loaded != zero {
		return loaded
	}
	return defaultVal
}

func coalescePtr[T any](loaded, defaultVal *T) *T {
	if loaded != nil {
		return loaded
	}
	return defaultVal
}

// mergeMap returns a copy of defaults overlaid with loaded.
func mergeMap(defaults, loaded map[string]string) map[string]string {
	result := make(map[string]string, len(defaults)+len(loaded))
	maps.Copy(result, defaults)
	maps.Copy(result, loaded)
	return result
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !hasHomePrefix(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func hasHomePrefix(path string) bool {
	return len(path) > 1 && path[0] == '~' && path[1] == '/'
}

// fileExists checks if a file exists
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) || err != nil {
		return false
	}
	return !info.IsDir()
}

// UserConfigPath is the per-user configuration file.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "kagglesync", "config.yaml")
}

// ResolveConfigPath resolves a config file path, checking common locations
func ResolveConfigPath(configFile string) string {
	if configFile != "" {
		if filepath.IsAbs(configFile) || fileExists(configFile) {
			return configFile
		}
	}

	commonPaths := []string{
		"kagglesync.yaml",
		"kagglesync.yml",
	}
	if user := UserConfigPath(); user != "" {
		commonPaths = append(commonPaths, user)
	}

	for _, path := range commonPaths {
		if fileExists(path) {
			return path
		}
	}

	return configFile // Return original even if it doesn't exist
}
