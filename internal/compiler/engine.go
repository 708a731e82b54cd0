// Package compiler runs external asset compilers and publishes their output
// under content-fingerprinted names.
//
// For a source like static/app.coffee and the spec coffee -> "coffee -c -p" -> js,
// the artifact is written next to the source as
//
//	static/<prefix>app.<fingerprint>.js
//
// The name only depends on the source content, its modification time, the prefix
// and the output extension. An artifact that already exists is never rebuilt, and
// a changed source always produces a new name instead of overwriting the old one.
package compiler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Norgate-AV/assetc/internal/fingerprint"
	"github.com/Norgate-AV/assetc/internal/registry"
)

// DefaultPrefix is prepended to every generated filename unless configured otherwise
const DefaultPrefix = "_"

// CompiledAsset is the outcome of one compilation decision for one source file
type CompiledAsset struct {
	SourcePath  string `json:"source_path"`
	OutputPath  string `json:"output_path"`
	LogicalPath string `json:"logical_path"`
	Fingerprint string `json:"fingerprint"`

	// Compiler is the source extension of the spec that produced the artifact
	Compiler string `json:"compiler"`

	// Exists records whether OutputPath was present when the decision was made
	Exists bool `json:"-"`
}

// Recorder is notified of every artifact the engine publishes
type Recorder interface {
	Record(asset CompiledAsset) error
}

// Options tune how an Engine resolves and builds a source
type Options struct {
	// Prefix is prepended to generated filenames; it is used as given, including empty
	Prefix string

	// Compiler selects a registry entry by key instead of the source extension
	Compiler string

	// Spec is an inline compiler used instead of the registry
	Spec *registry.CompilerSpec

	// LogicalPath is the caller-facing path of the source; defaults to the source path
	LogicalPath string

	// Timeout bounds each compiler invocation; zero means no limit
	Timeout time.Duration

	// Hash selects the fingerprint algorithm; empty means MD5
	Hash fingerprint.Algorithm

	// Precompress also publishes a gzip sibling of each artifact
	Precompress bool

	Runner   Runner
	Recorder Recorder
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type state int

const (
	stateUnchecked state = iota
	stateChecked
)

// Engine decides whether one source file needs compiling and compiles it.
//
// An Engine moves from unchecked to checked only through IsCompiled or Compile.
// The fingerprint is computed once per Engine; create a new Engine to pick up
// later changes to the source. Once the artifact has been seen to exist the
// answer is fixed, but while it is missing every IsCompiled call looks at the
// disk again, so an artifact published by another process is picked up without
// rehashing the source.
type Engine struct {
	spec    registry.CompilerSpec
	source  string
	logical string
	opts    Options
	builder *CommandBuilder
	logger  *slog.Logger

	state  state
	exists bool
	asset  CompiledAsset
}

// New resolves the compiler for sourcePath. An explicit Options.Spec wins over
// Options.Compiler, which wins over a lookup by the source's extension.
func New(reg *registry.Registry, sourcePath string, opts Options) (*Engine, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	spec, err := resolveSpec(reg, abs, opts)
	if err != nil {
		return nil, err
	}

	logical := opts.LogicalPath
	if logical == "" {
		logical = sourcePath
	}

	logger := opts.logger().With("source", abs, "compiler", spec.SourceExtension)

	return &Engine{
		spec:    spec,
		source:  abs,
		logical: logical,
		opts:    opts,
		builder: NewCommandBuilder(opts.Runner, opts.Timeout),
		logger:  logger,
	}, nil
}

func resolveSpec(reg *registry.Registry, sourcePath string, opts Options) (registry.CompilerSpec, error) {
	var (
		spec registry.CompilerSpec
		ok   bool
		key  string
	)

	switch {
	case opts.Spec != nil:
		spec, ok = *opts.Spec, true
		key = opts.Spec.SourceExtension
	case opts.Compiler != "":
		key = opts.Compiler
		spec, ok = reg.Lookup(key)
	default:
		_, key = splitExt(filepath.Base(sourcePath))
		spec, ok = reg.Lookup(key)
	}

	if !ok {
		return spec, fmt.Errorf("%w for %q (%s)", ErrNoCompilerConfigured, key, sourcePath)
	}

	if err := spec.Validate(); err != nil {
		return spec, fmt.Errorf("%w: %v", ErrNoCompilerConfigured, err)
	}

	return spec, nil
}

// IsCompiled reports whether the artifact for the current source content exists.
// A missing source is an error, not a cache miss.
func (e *Engine) IsCompiled() (bool, error) {
	if e.state == stateUnchecked {
		fp, err := fingerprint.ComputeWith(e.source, e.opts.Hash)
		if err != nil {
			return false, err
		}

		e.asset = e.derive(fp)
		e.state = stateChecked
	}

	if !e.exists {
		e.exists = fileExists(e.asset.OutputPath)
	}

	e.asset.Exists = e.exists

	return e.exists, nil
}

func (e *Engine) derive(fp string) CompiledAsset {
	filename := filepath.Base(e.source)
	name, _ := splitExt(filename)
	outName := OutputName(e.opts.Prefix, name, fp, e.spec.OutputExtension)

	return CompiledAsset{
		SourcePath:  e.source,
		OutputPath:  filepath.Join(filepath.Dir(e.source), outName),
		LogicalPath: replaceFilename(e.logical, filename, outName),
		Fingerprint: fp,
		Compiler:    e.spec.SourceExtension,
	}
}

// Compile builds the artifact if it does not exist yet and returns its logical path.
// The compiler is never invoked once the artifact is known to exist.
func (e *Engine) Compile(ctx context.Context) (string, error) {
	compiled, err := e.IsCompiled()
	if err != nil {
		return "", err
	}

	if compiled {
		e.logger.Debug("artifact up to date", "output", e.asset.OutputPath)
		return e.asset.LogicalPath, nil
	}

	if err := build(ctx, e.builder, e.spec, e.asset, e.opts, e.logger); err != nil {
		return "", err
	}

	e.exists = true
	e.asset.Exists = true

	return e.asset.LogicalPath, nil
}

// CompiledData returns the artifact bytes. It never compiles; call IsCompiled or
// Compile first.
func (e *Engine) CompiledData() ([]byte, error) {
	if e.state != stateChecked || !e.exists {
		return nil, fmt.Errorf("%w: %s", ErrNotCompiled, e.source)
	}

	data, err := os.ReadFile(e.asset.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, e.asset.OutputPath, err)
	}

	return data, nil
}

// Asset returns the current decision. Paths are only populated once checked.
func (e *Engine) Asset() CompiledAsset {
	return e.asset
}

// Spec returns the resolved compiler
func (e *Engine) Spec() registry.CompilerSpec {
	return e.spec
}

// build runs the compiler for asset and publishes its output
func build(ctx context.Context, cb *CommandBuilder, spec registry.CompilerSpec, asset CompiledAsset, opts Options, logger *slog.Logger) error {
	args, err := cb.BuildCommandArgs(spec, asset.SourcePath)
	if err != nil {
		return err
	}

	logger.Debug("running compiler", "command", FormatArgs(args))
	start := time.Now()

	out, err := cb.ExecuteCommand(ctx, asset.SourcePath, args)
	if err != nil {
		logger.Error("compilation failed", "error", err)
		return err
	}

	if err := publish(asset.OutputPath, out); err != nil {
		return err
	}

	if opts.Precompress {
		if err := publishGzip(asset.OutputPath, out); err != nil {
			return fmt.Errorf("failed to precompress %s: %w", asset.OutputPath, err)
		}
	}

	logger.Info("compiled asset", "output", asset.OutputPath, "bytes", len(out), "duration", time.Since(start))

	if opts.Recorder != nil {
		asset.Exists = true
		if err := opts.Recorder.Record(asset); err != nil {
			// the artifact is already published; a missing record only affects clean/stats
			logger.Warn("failed to record artifact", "output", asset.OutputPath, "error", err)
		}
	}

	return nil
}

// OutputName builds the generated filename: <prefix><name>.<fingerprint>.<ext>
func OutputName(prefix, name, fp, outputExt string) string {
	return fmt.Sprintf("%s%s.%s.%s", prefix, name, fp, outputExt)
}

// splitExt splits a filename into its stem and its extension without the dot.
// Leading dots do not start an extension, so ".coffee" has none.
func splitExt(filename string) (string, string) {
	ext := filepath.Ext(filename)
	if ext == "" || strings.TrimLeft(filename, ".") == strings.TrimPrefix(ext, ".") {
		return filename, ""
	}

	return strings.TrimSuffix(filename, ext), strings.TrimPrefix(ext, ".")
}

// replaceFilename swaps the trailing filename segment of logical for newName.
// A logical path that does not end with filename is returned unchanged.
func replaceFilename(logical, filename, newName string) string {
	if !strings.HasSuffix(logical, filename) {
		return logical
	}

	return strings.TrimSuffix(logical, filename) + newName
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
