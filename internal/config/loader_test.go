package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/assetc/internal/fingerprint"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Bool("debug", false, "")
	cmd.Flags().String("prefix", "", "")
	cmd.Flags().Duration("timeout", 0, "")
	cmd.Flags().String("hash", "", "")
	cmd.Flags().Bool("precompress", false, "")
	cmd.Flags().String("manifest", "", "")

	return cmd
}

// isolate points every config source at empty temp locations
func isolate(t *testing.T) string {
	t.Helper()
	viper.Reset()

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("HOME", home)
	t.Setenv("APPDATA", filepath.Join(home, "appdata"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return home
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
}

func TestLoader_SetupViperDefaults(t *testing.T) {
	viper.Reset()
	loader := NewLoader()
	loader.setupViperDefaults()

	assert.Equal(t, "_", viper.GetString("asset_prefix"))
	assert.Equal(t, true, viper.GetBool("each_request"))
	assert.Equal(t, false, viper.GetBool("each_boot"))
	assert.Equal(t, false, viper.GetBool("debug"))
	assert.Equal(t, "md5", viper.GetString("hash"))
	assert.Equal(t, time.Duration(0), viper.GetDuration("timeout"))
}

func TestLoader_LoadForCommand_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader().LoadForCommand(newTestCommand(), nil)
	require.NoError(t, err)

	assert.Equal(t, "_", cfg.AssetPrefix)
	assert.True(t, cfg.EachRequest)
	assert.Empty(t, cfg.AssetPaths)
	assert.Empty(t, cfg.Compilers)
	assert.Equal(t, fingerprint.MD5, cfg.Hash)
}

func TestLoader_LoadForCommand_LocalConfig(t *testing.T) {
	home := isolate(t)

	project := filepath.Join(home, "project")
	static := filepath.Join(project, "static")
	require.NoError(t, os.MkdirAll(static, 0o755))

	configContent := `asset_prefix: "build-"
each_boot: true
asset_paths:
  - static
compilers:
  - ext: coffee
    cmd: coffee -c -p
    output: js
  - ext: less
    cmd: lessc
    output: css
`
	require.NoError(t, os.WriteFile(filepath.Join(project, ".assetc.yml"), []byte(configContent), 0o644))

	source := filepath.Join(static, "app.coffee")
	require.NoError(t, os.WriteFile(source, []byte("x = 1"), 0o644))

	cfg, err := NewLoader().LoadForCommand(newTestCommand(), []string{source})
	require.NoError(t, err)

	assert.Equal(t, "build-", cfg.AssetPrefix)
	assert.True(t, cfg.EachBoot)
	assert.Equal(t, []string{"static"}, cfg.AssetPaths)
	require.Len(t, cfg.Compilers, 2)
	assert.Equal(t, "coffee", cfg.Compilers[0].SourceExtension)
	assert.Equal(t, "less", cfg.Compilers[1].SourceExtension)
}

func TestLoader_LoadForCommand_GlobalThenLocal(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only drives os.UserConfigDir on linux")
	}

	home := isolate(t)

	globalDir := filepath.Join(home, "config", "assetc")
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(`{
  "hash": "blake3",
  "asset_prefix": "global-"
}`), 0o644))

	project := filepath.Join(home, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, ".assetc.toml"), []byte(`asset_prefix = "local-"`), 0o644))

	cfg, err := NewLoader().LoadForCommand(newTestCommand(), []string{project})
	require.NoError(t, err)

	assert.Equal(t, fingerprint.BLAKE3, cfg.Hash, "Global value should survive")
	assert.Equal(t, "local-", cfg.AssetPrefix, "Local value should win")
}

func TestLoader_LoadForCommand_EnvAndFlags(t *testing.T) {
	home := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, ".assetc.yml"), []byte("asset_prefix: file-\ntimeout: 10s\n"), 0o644))
	t.Setenv("ASSETC_ASSET_PREFIX", "env-")

	cmd := newTestCommand()

	cfg, err := NewLoader().LoadForCommand(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "env-", cfg.AssetPrefix, "Environment should override config files")
	assert.Equal(t, 10*time.Second, cfg.Timeout)

	viper.Reset()
	require.NoError(t, cmd.Flags().Set("prefix", "flag-"))
	require.NoError(t, cmd.Flags().Set("timeout", "2m"))

	cfg, err = NewLoader().LoadForCommand(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "flag-", cfg.AssetPrefix, "Flags should override everything")
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestLoader_LoadForCommand_DotEnv(t *testing.T) {
	home := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("ASSETC_HASH=blake3\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ASSETC_HASH") })

	cfg, err := NewLoader().LoadForCommand(newTestCommand(), nil)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.BLAKE3, cfg.Hash)
}

func TestLoader_LoadForCommand_ExplicitConfig(t *testing.T) {
	home := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, ".assetc.yml"), []byte("asset_prefix: local-\n"), 0o644))
	explicit := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("asset_prefix: explicit-\n"), 0o644))

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("config", explicit))

	cfg, err := NewLoader().LoadForCommand(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "explicit-", cfg.AssetPrefix)

	viper.Reset()
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(home, "missing.yaml")))

	_, err = NewLoader().LoadForCommand(cmd, nil)
	assert.Error(t, err)
}

func TestLoader_BindCommandFlags_NilCommand(t *testing.T) {
	viper.Reset()
	assert.NotPanics(t, func() { NewLoader().bindCommandFlags(nil) })
}
