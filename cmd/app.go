package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/assetc/internal/compiler"
	"github.com/Norgate-AV/assetc/internal/config"
	"github.com/Norgate-AV/assetc/internal/manifest"
	"github.com/Norgate-AV/assetc/internal/service"
)

// newRunner creates the process runner used by every command
var newRunner = func() compiler.Runner {
	return compiler.ExecRunner{}
}

// app holds everything a command needs once configuration is loaded
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	service  *service.Service
	manifest *manifest.Store
}

// newApp loads configuration for cmd and wires the service. The manifest is
// opened only when one is configured.
func newApp(cmd *cobra.Command, args []string) (*app, error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithRunner(newRunner()),
	}

	if cfg.Manifest != "" {
		store, err := manifest.Open(cfg.Manifest, logger)
		if err != nil {
			return nil, err
		}

		a.manifest = store
		opts = append(opts, service.WithRecorder(store))
	}

	a.service, err = service.New(cfg, reg, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("configuration loaded",
		"compilers", reg.Len(),
		"prefix", cfg.AssetPrefix,
		"each_request", cfg.EachRequest,
		"hash", cfg.Hash,
	)

	return a, nil
}

// openManifest returns the configured manifest, or the default one in the working directory
func (a *app) openManifest() (*manifest.Store, error) {
	if a.manifest != nil {
		return a.manifest, nil
	}

	store, err := manifest.Open("", a.logger)
	if err != nil {
		return nil, err
	}

	a.manifest = store

	return store, nil
}

func (a *app) Close() {
	if a.manifest == nil {
		return
	}

	if err := a.manifest.Close(); err != nil {
		a.logger.Warn("failed to close manifest", "error", err)
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
