package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kagglesync/internal/core/types"

	"gopkg.in/yaml.v3"
)

// Encode renders cfg as YAML with two-space indentation.
func Encode(w io.Writer, cfg any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes cfg to path, creating parent directories. The file is
// written beside path and renamed, so a failed write keeps the old file.
func SaveYAML(path string, cfg any) error {
	if path == "" {
		return fmt.Errorf("config file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*")
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	return path != "" && fileExists(path)
}

// WriteStarter writes the default configuration to path. An existing file is
// left alone unless force is set.
func WriteStarter(path string, force bool) error {
	if FileExists(path) && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	return SaveYAML(path, types.DefaultConfig())
}
