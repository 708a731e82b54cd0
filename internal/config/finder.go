package config

import (
	"os"
	"path/filepath"
)

// configExtensions are the formats viper can read, in lookup order
var configExtensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExtensions {
			path := filepath.Join(dir, ".assetc."+ext)

			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig returns the user-level config file, if any
func FindGlobalConfig() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return ""
	}

	for _, ext := range configExtensions {
		path := filepath.Join(base, "assetc", "config."+ext)

		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
