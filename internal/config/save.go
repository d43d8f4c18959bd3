package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes c to path as YAML, creating the parent directory. The file is
// written to a temporary sibling first and renamed into place.
func (c *Config) Save(path string) error {
	if path == "" {
		return fmt.Errorf("no configuration path: home directory unknown")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o750); mkdirErr != nil {
		return fmt.Errorf("creating configuration directory: %w", mkdirErr)
	}

	tmpPath := path + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing configuration temp file: %w", writeErr)
	}
	if renameErr := os.Rename(tmpPath, path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming configuration temp file: %w", renameErr)
	}
	return nil
}
