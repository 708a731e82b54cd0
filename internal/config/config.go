package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/assetc/internal/fingerprint"
	"github.com/Norgate-AV/assetc/internal/registry"
	"github.com/Norgate-AV/assetc/internal/utils"
)

// Default configuration values
const (
	DefaultDebug       = false
	DefaultAssetPrefix = "_"
	DefaultEachRequest = true
	DefaultEachBoot    = false
	DefaultHash        = string(fingerprint.MD5)
	DefaultPrecompress = false
	DefaultMemoSize    = 1024
)

// Holds the configuration options for assetc
type Config struct {
	// Enable debug logging
	Debug bool `yaml:"debug"`

	// Prefix prepended to every generated filename
	AssetPrefix string `yaml:"asset_prefix"`

	// Recompile on every request instead of checking once per source
	EachRequest bool `yaml:"each_request"`

	// Batch compile AssetPaths at startup
	EachBoot bool `yaml:"each_boot"`

	// Directories compiled at startup
	AssetPaths []string `yaml:"asset_paths"`

	// Registered compilers, in registration order
	Compilers []registry.CompilerSpec `yaml:"compilers"`

	// Per-invocation compiler timeout, zero for none
	Timeout time.Duration `yaml:"-"`

	// Fingerprint algorithm
	Hash fingerprint.Algorithm `yaml:"hash"`

	// Publish a gzip sibling next to each artifact
	Precompress bool `yaml:"precompress"`

	// Path of the artifact manifest, empty to disable recording
	Manifest string `yaml:"manifest,omitempty"`

	// Capacity of the memo used when EachRequest is false
	MemoSize int `yaml:"memo_size"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Debug:       viper.GetBool("debug"),
		AssetPrefix: viper.GetString("asset_prefix"),
		EachRequest: viper.GetBool("each_request"),
		EachBoot:    viper.GetBool("each_boot"),
		AssetPaths:  parseAssetPaths(viper.Get("asset_paths")),
		Timeout:     viper.GetDuration("timeout"),
		Hash:        fingerprint.Algorithm(viper.GetString("hash")),
		Precompress: viper.GetBool("precompress"),
		Manifest:    viper.GetString("manifest"),
		MemoSize:    viper.GetInt("memo_size"),
	}

	if err := viper.UnmarshalKey("compilers", &cfg.Compilers); err != nil {
		return nil, fmt.Errorf("invalid compilers: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	c.AssetPrefix = strings.TrimSpace(c.AssetPrefix)

	alg, err := fingerprint.ParseAlgorithm(string(c.Hash))
	if err != nil {
		return err
	}

	c.Hash = alg

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}

	if c.MemoSize <= 0 {
		c.MemoSize = DefaultMemoSize
	}

	// Resolve manifest path
	if c.Manifest != "" {
		abs, err := filepath.Abs(c.Manifest)
		if err != nil {
			return fmt.Errorf("invalid manifest path: %v", err)
		}

		c.Manifest = abs
	}

	// Validate compilers
	for i, spec := range c.Compilers {
		spec.SourceExtension = registry.NormalizeExtension(spec.SourceExtension)
		if spec.SourceExtension == "" {
			return fmt.Errorf("compiler #%d has no ext", i+1)
		}

		if err := spec.Validate(); err != nil {
			return fmt.Errorf("invalid compiler #%d: %w", i+1, err)
		}

		c.Compilers[i] = spec
	}

	return nil
}

// MarshalYAML renders the timeout as a duration string, matching how it is configured
func (c Config) MarshalYAML() (any, error) {
	type plain Config

	return struct {
		plain   `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}{plain(c), c.Timeout.String()}, nil
}

// Registry builds a registry from the configured compilers, in file order
func (c *Config) Registry() (*registry.Registry, error) {
	reg := registry.New()

	for _, spec := range c.Compilers {
		if err := reg.RegisterSpec(spec); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// parseAssetPaths accepts a whitespace/newline separated string or a list whose
// items may themselves hold several paths
func parseAssetPaths(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case string:
		return utils.ParseList(val)
	case []string:
		return utils.ParseList(strings.Join(val, "\n"))
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, fmt.Sprint(item))
		}

		return utils.ParseList(strings.Join(lines, "\n"))
	}

	return utils.ParseList(fmt.Sprint(v))
}
