package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by assetc (e.g. ASSETC_ASSET_PREFIX)
const EnvPrefix = "ASSETC"

// flagKeys maps command flags to their configuration keys
var flagKeys = map[string]string{
	"config":      "config",
	"debug":       "debug",
	"prefix":      "asset_prefix",
	"timeout":     "timeout",
	"hash":        "hash",
	"precompress": "precompress",
	"manifest":    "manifest",
}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForCommand loads configuration for a command operating on args.
// Sources, lowest precedence first: defaults, global config, local config,
// environment (including .env), flags. An explicit --config replaces both config files.
func (l *Loader) LoadForCommand(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadDotEnv()
	l.bindEnv()
	l.bindCommandFlags(cmd)

	if explicit := viper.GetString("config"); explicit != "" {
		viper.SetConfigFile(explicit)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", explicit, err)
		}
	} else {
		l.loadGlobalConfig()
		l.loadLocalConfig(args)
	}

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("debug", DefaultDebug)
	viper.SetDefault("asset_prefix", DefaultAssetPrefix)
	viper.SetDefault("each_request", DefaultEachRequest)
	viper.SetDefault("each_boot", DefaultEachBoot)
	viper.SetDefault("asset_paths", []string{})
	viper.SetDefault("timeout", "0s")
	viper.SetDefault("hash", DefaultHash)
	viper.SetDefault("precompress", DefaultPrecompress)
	viper.SetDefault("memo_size", DefaultMemoSize)
}

// loadDotEnv loads a .env file from the working directory, if present
func (l *Loader) loadDotEnv() {
	_ = godotenv.Load()
}

// bindEnv makes ASSETC_* variables override config files
func (l *Loader) bindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
}

// loadGlobalConfig loads the user-level configuration
func (l *Loader) loadGlobalConfig() {
	if globalPath := FindGlobalConfig(); globalPath != "" {
		viper.SetConfigFile(globalPath)
		_ = viper.ReadInConfig()
	}
}

// loadLocalConfig merges the project configuration found above the first argument,
// or above the working directory when there are no arguments
func (l *Loader) loadLocalConfig(args []string) {
	start := "."
	if len(args) > 0 {
		start = args[0]
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}
