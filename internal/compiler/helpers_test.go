package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/assetc/internal/registry"
)

// fakeRunner records every invocation and answers with run, or echoes the
// source path when run is nil
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(args []string) (*Result, error)
}

func (f *fakeRunner) Run(_ context.Context, args []string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()

	if f.run != nil {
		return f.run(args)
	}

	return &Result{Stdout: []byte("compiled " + filepath.Base(args[len(args)-1]))}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

// sources returns the source path of every recorded call, in order
func (f *fakeRunner) sources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.calls {
		out = append(out, filepath.Base(c[len(c)-1]))
	}

	return out
}

// countingRunner runs real processes and counts them
type countingRunner struct {
	mu sync.Mutex
	n  int
}

func (c *countingRunner) Run(ctx context.Context, args []string) (*Result, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()

	return ExecRunner{}.Run(ctx, args)
}

func (c *countingRunner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.n
}

type memRecorder struct {
	assets []CompiledAsset
	err    error
}

func (m *memRecorder) Record(asset CompiledAsset) error {
	m.assets = append(m.assets, asset)
	return m.err
}

var fixedTime = time.Unix(1700000000, 0)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, fixedTime, fixedTime))

	return path
}

func requireBinaries(t *testing.T, names ...string) {
	t.Helper()

	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

func newRegistry(t *testing.T, specs ...registry.CompilerSpec) *registry.Registry {
	t.Helper()

	reg := registry.New()
	for _, spec := range specs {
		require.NoError(t, reg.RegisterSpec(spec))
	}

	return reg
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}
