package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/assetc/internal/fingerprint"
	"github.com/Norgate-AV/assetc/internal/registry"
)

// BatchResult lists what a batch pass did, in processing order
type BatchResult struct {
	Compiled []CompiledAsset
	Skipped  []CompiledAsset
}

// BatchCompile compiles every file directly inside dir that matches a registered
// extension. Specs are processed in registration order, and each spec lists the
// directory afresh so artifacts produced by earlier specs can feed later ones.
//
// Existing artifacts are skipped, and so are artifacts a spec produced from a
// sibling source in an earlier run, so that a spec whose output extension equals
// its source extension does not recompile its own output. The first failure
// aborts the remaining batch.
// Options.Compiler, Options.Spec and Options.LogicalPath are ignored.
func BatchCompile(ctx context.Context, reg *registry.Registry, dir string, opts Options) (*BatchResult, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: registry is empty", ErrNoCompilerConfigured)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirectory, abs)
	}

	logger := opts.logger().With("dir", abs)
	cb := NewCommandBuilder(opts.Runner, opts.Timeout)
	result := &BatchResult{}

	for _, spec := range reg.Specs() {
		sources, err := matchSources(abs, spec.SourceExtension)
		if err != nil {
			return result, err
		}

		for _, source := range sources {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			if isOwnOutput(source, opts.Prefix, spec) {
				logger.Debug("skipping generated artifact", "source", source, "compiler", spec.SourceExtension)
				continue
			}

			fp, err := fingerprint.ComputeWith(source, opts.Hash)
			if err != nil {
				return result, err
			}

			filename := filepath.Base(source)
			name, _ := splitExt(filename)
			outName := OutputName(opts.Prefix, name, fp, spec.OutputExtension)

			asset := CompiledAsset{
				SourcePath:  source,
				OutputPath:  filepath.Join(filepath.Dir(source), outName),
				LogicalPath: filepath.Join(filepath.Dir(source), outName),
				Fingerprint: fp,
				Compiler:    spec.SourceExtension,
			}

			if fileExists(asset.OutputPath) {
				asset.Exists = true
				result.Skipped = append(result.Skipped, asset)
				logger.Debug("artifact up to date", "source", source, "output", asset.OutputPath)
				continue
			}

			fileLogger := logger.With("source", source, "compiler", spec.SourceExtension)
			if err := build(ctx, cb, spec, asset, opts, fileLogger); err != nil {
				return result, err
			}

			asset.Exists = true
			result.Compiled = append(result.Compiled, asset)
		}
	}

	logger.Info("batch complete", "compiled", len(result.Compiled), "skipped", len(result.Skipped))

	return result, nil
}

// matchSources lists the non-hidden regular files in dir ending in .ext, sorted by name
func matchSources(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	suffix := "." + ext

	var sources []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}

		if !entry.Type().IsRegular() {
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}

		sources = append(sources, filepath.Join(dir, name))
	}

	return sources, nil
}

// isOwnOutput reports whether the file at path is named like an artifact of spec,
// <prefix><stem>.<fingerprint>.<output>, and <stem>.<ext> exists next to it
func isOwnOutput(path, prefix string, spec registry.CompilerSpec) bool {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, prefix) {
		return false
	}

	rest, ok := strings.CutSuffix(strings.TrimPrefix(name, prefix), "."+spec.OutputExtension)
	if !ok {
		return false
	}

	stem, fp := splitExt(rest)
	if stem == "" || !isFingerprint(fp) {
		return false
	}

	return fileExists(filepath.Join(filepath.Dir(path), stem+"."+spec.SourceExtension))
}

func isFingerprint(s string) bool {
	if len(s) != fingerprint.Length {
		return false
	}

	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}
