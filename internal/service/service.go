// Package service exposes the compiler to a host application.
//
// A Service pairs explicit settings with a compiler registry and answers the
// questions a host asks while serving pages: is this asset compiled, give me its
// compiled path, give me its compiled bytes. Every call builds its own engine, so
// a Service is safe for concurrent use once constructed.
//
// With EachRequest disabled the Service never runs a compiler on the request
// path. It checks once per source, remembers artifacts it has seen, and degrades
// to the expected logical path when an artifact is missing; Boot is then expected
// to have produced everything up front.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Norgate-AV/assetc/internal/compiler"
	"github.com/Norgate-AV/assetc/internal/config"
	"github.com/Norgate-AV/assetc/internal/registry"
)

// Request carries the per-call overrides of a host request
type Request struct {
	// Compiler selects a registry entry by key instead of the source extension
	Compiler string

	// Spec is an inline compiler that bypasses the registry
	Spec *registry.CompilerSpec

	// LogicalPath is the caller-facing name of the source, e.g. "myapp:static/app.coffee"
	LogicalPath string
}

func (r Request) key(sourcePath string) string {
	key := sourcePath + "\x00" + r.Compiler + "\x00" + r.LogicalPath
	if r.Spec != nil {
		key += fmt.Sprintf("\x00%s\x00%s\x00%s", r.Spec.SourceExtension, r.Spec.Command, r.Spec.OutputExtension)
	}

	return key
}

// Service answers compile requests for a host
type Service struct {
	cfg      *config.Config
	registry *registry.Registry
	runner   compiler.Runner
	recorder compiler.Recorder
	logger   *slog.Logger
	memo     *lru.Cache[string, compiler.CompiledAsset]
}

// Option customizes a Service
type Option func(*Service)

// WithLogger sets the logger used by the service and its engines
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRunner replaces the process runner
func WithRunner(runner compiler.Runner) Option {
	return func(s *Service) {
		s.runner = runner
	}
}

// WithRecorder records every published artifact, typically in a manifest
func WithRecorder(recorder compiler.Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// New creates a service. The registry must be fully populated before the first request.
func New(cfg *config.Config, reg *registry.Registry, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if reg == nil {
		return nil, fmt.Errorf("%w: registry is nil", compiler.ErrNoCompilerConfigured)
	}

	size := cfg.MemoSize
	if size <= 0 {
		size = config.DefaultMemoSize
	}

	memo, err := lru.New[string, compiler.CompiledAsset](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memo: %w", err)
	}

	s := &Service{
		cfg:      cfg,
		registry: reg,
		memo:     memo,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return s, nil
}

func (s *Service) options(req Request) compiler.Options {
	return compiler.Options{
		Prefix:      s.cfg.AssetPrefix,
		Compiler:    req.Compiler,
		Spec:        req.Spec,
		LogicalPath: req.LogicalPath,
		Timeout:     s.cfg.Timeout,
		Hash:        s.cfg.Hash,
		Precompress: s.cfg.Precompress,
		Runner:      s.runner,
		Recorder:    s.recorder,
		Logger:      s.logger,
	}
}

// check resolves the artifact for sourcePath, consulting the memo when requests
// do not recompile
func (s *Service) check(sourcePath string, req Request) (*compiler.Engine, compiler.CompiledAsset, error) {
	if !s.cfg.EachRequest {
		if asset, ok := s.memo.Get(req.key(sourcePath)); ok {
			return nil, asset, nil
		}
	}

	e, err := compiler.New(s.registry, sourcePath, s.options(req))
	if err != nil {
		return nil, compiler.CompiledAsset{}, err
	}

	if _, err := e.IsCompiled(); err != nil {
		return nil, compiler.CompiledAsset{}, err
	}

	asset := e.Asset()
	if asset.Exists && !s.cfg.EachRequest {
		s.memo.Add(req.key(sourcePath), asset)
	}

	return e, asset, nil
}

// CheckCompiled reports whether the artifact for the current source exists
func (s *Service) CheckCompiled(sourcePath string, req Request) (bool, error) {
	_, asset, err := s.check(sourcePath, req)
	if err != nil {
		return false, err
	}

	return asset.Exists, nil
}

// Compile returns the logical path of the compiled asset, compiling it first when
// EachRequest is enabled. The returned path can be fed back as a source to chain
// compilers. With EachRequest disabled a missing artifact is logged and its
// expected logical path returned.
func (s *Service) Compile(ctx context.Context, sourcePath string, req Request) (string, error) {
	e, asset, err := s.check(sourcePath, req)
	if err != nil {
		return "", err
	}

	if asset.Exists {
		return asset.LogicalPath, nil
	}

	if !s.cfg.EachRequest {
		s.logger.Error("asset has not been compiled", "source", asset.SourcePath, "expected", asset.OutputPath)
		return asset.LogicalPath, nil
	}

	return e.Compile(ctx)
}

// CompiledBytes returns the compiled artifact, compiling it first when EachRequest
// is enabled. With EachRequest disabled a missing artifact yields ErrNotCompiled.
func (s *Service) CompiledBytes(ctx context.Context, sourcePath string, req Request) ([]byte, error) {
	e, asset, err := s.check(sourcePath, req)
	if err != nil {
		return nil, err
	}

	if e == nil {
		// memo hits only hold artifacts that existed
		data, err := os.ReadFile(asset.OutputPath)
		if err != nil {
			s.memo.Remove(req.key(sourcePath))
			return nil, fmt.Errorf("%w: %s: %v", compiler.ErrNotFound, asset.OutputPath, err)
		}

		return data, nil
	}

	if !asset.Exists {
		if !s.cfg.EachRequest {
			s.logger.Error("asset has not been compiled", "source", asset.SourcePath, "expected", asset.OutputPath)
			return nil, fmt.Errorf("%w: %s", compiler.ErrNotCompiled, asset.SourcePath)
		}

		if _, err := e.Compile(ctx); err != nil {
			return nil, err
		}
	}

	return e.CompiledData()
}

// BatchCompile compiles every matching source directly inside dir, fail-fast
func (s *Service) BatchCompile(ctx context.Context, dir string) (*compiler.BatchResult, error) {
	return compiler.BatchCompile(ctx, s.registry, dir, s.options(Request{}))
}

// Boot batch compiles every configured asset path when EachBoot is enabled.
// The first failure stops the boot so stale or missing assets are never served.
func (s *Service) Boot(ctx context.Context) ([]*compiler.BatchResult, error) {
	if !s.cfg.EachBoot {
		s.logger.Debug("boot compile disabled")
		return nil, nil
	}

	var results []*compiler.BatchResult
	for _, dir := range s.cfg.AssetPaths {
		result, err := s.BatchCompile(ctx, dir)
		if result != nil {
			results = append(results, result)
		}

		if err != nil {
			return results, fmt.Errorf("boot compile of %s failed: %w", dir, err)
		}
	}

	return results, nil
}

// Forget drops every memoized result
func (s *Service) Forget() {
	s.memo.Purge()
}
