package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/assetc/internal/compiler"
	"github.com/Norgate-AV/assetc/internal/registry"
)

// openStore opens a manifest whose clock advances one second per record
func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "manifest.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return s
}

func artifact(t *testing.T, dir, source, name, content string) compiler.CompiledAsset {
	t.Helper()

	out := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(out, []byte(content), 0o644))

	return compiler.CompiledAsset{
		SourcePath:  filepath.Join(dir, source),
		OutputPath:  out,
		LogicalPath: out,
		Fingerprint: name,
		Compiler:    "coffee",
	}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	assert.Equal(t, path, s.Path())
}

func TestStore_RecordAndGet(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()

	entry, err := s.Get(filepath.Join(dir, "_app.000000000000.js"))
	require.NoError(t, err)
	assert.Nil(t, entry, "Should be a miss initially")

	asset := artifact(t, dir, "app.coffee", "_app.000000000000.js", "var x = 1;")
	require.NoError(t, s.Record(asset))

	entry, err = s.Get(asset.OutputPath)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, asset.SourcePath, entry.SourcePath)
	assert.Equal(t, asset.LogicalPath, entry.LogicalPath)
	assert.Equal(t, "coffee", entry.Compiler)
	assert.Equal(t, int64(len("var x = 1;")), entry.Size)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestStore_ForSource(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()

	require.NoError(t, s.Record(artifact(t, dir, "app.coffee", "_app.aaaaaaaaaaaa.js", "1")))
	require.NoError(t, s.Record(artifact(t, dir, "lib.coffee", "_lib.bbbbbbbbbbbb.js", "2")))
	require.NoError(t, s.Record(artifact(t, dir, "app.coffee", "_app.cccccccccccc.js", "3")))

	entries, err := s.ForSource(filepath.Join(dir, "app.coffee"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "_app.aaaaaaaaaaaa.js", filepath.Base(entries[0].OutputPath))
	assert.Equal(t, "_app.cccccccccccc.js", filepath.Base(entries[1].OutputPath))
}

func TestStore_Prune(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()

	old := artifact(t, dir, "app.coffee", "_app.aaaaaaaaaaaa.js", "old")
	require.NoError(t, os.WriteFile(old.OutputPath+compiler.GzipSuffix, []byte("gz"), 0o644))
	current := artifact(t, dir, "app.coffee", "_app.bbbbbbbbbbbb.js", "new")
	vanished := artifact(t, dir, "gone.coffee", "_gone.cccccccccccc.js", "x")
	other := artifact(t, dir, "lib.coffee", "_lib.dddddddddddd.js", "lib")

	for _, a := range []compiler.CompiledAsset{old, current, vanished, other} {
		require.NoError(t, s.Record(a))
	}
	require.NoError(t, os.Remove(vanished.OutputPath))

	removed, err := s.Prune()
	require.NoError(t, err)

	var removedPaths []string
	for _, e := range removed {
		removedPaths = append(removedPaths, e.OutputPath)
	}
	assert.ElementsMatch(t, []string{old.OutputPath, vanished.OutputPath}, removedPaths)

	assert.NoFileExists(t, old.OutputPath)
	assert.NoFileExists(t, old.OutputPath+compiler.GzipSuffix)
	assert.FileExists(t, current.OutputPath)
	assert.FileExists(t, other.OutputPath)

	count, _, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_PruneKeepsNewestExisting(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()

	oldest := artifact(t, dir, "app.coffee", "_app.aaaaaaaaaaaa.js", "v1")
	served := artifact(t, dir, "app.coffee", "_app.bbbbbbbbbbbb.js", "v2")
	deleted := artifact(t, dir, "app.coffee", "_app.cccccccccccc.js", "v3")

	for _, a := range []compiler.CompiledAsset{oldest, served, deleted} {
		require.NoError(t, s.Record(a))
	}
	require.NoError(t, os.Remove(deleted.OutputPath))

	removed, err := s.Prune()
	require.NoError(t, err)

	var removedPaths []string
	for _, e := range removed {
		removedPaths = append(removedPaths, e.OutputPath)
	}
	assert.ElementsMatch(t, []string{oldest.OutputPath, deleted.OutputPath}, removedPaths)

	assert.FileExists(t, served.OutputPath, "Newest artifact still on disk is kept")
	assert.NoFileExists(t, oldest.OutputPath)

	entry, err := s.Get(served.OutputPath)
	require.NoError(t, err)
	assert.NotNil(t, entry)

	entries, err := s.ForSource(served.SourcePath)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_StatsAndClear(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()

	require.NoError(t, s.Record(artifact(t, dir, "a.coffee", "_a.aaaaaaaaaaaa.js", "12345")))
	require.NoError(t, s.Record(artifact(t, dir, "b.coffee", "_b.bbbbbbbbbbbb.js", "123")))

	count, size, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(8), size)

	require.NoError(t, s.Clear())

	count, size, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), size)
	assert.FileExists(t, filepath.Join(dir, "_a.aaaaaaaaaaaa.js"), "Clear leaves artifacts on disk")
}

func TestStore_AsEngineRecorder(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.coffee")
	require.NoError(t, os.WriteFile(source, []byte("x = 1"), 0o644))

	reg := registry.New()
	require.NoError(t, reg.Register("coffee", "cat", "js"))

	e, err := compiler.New(reg, source, compiler.Options{
		Prefix:   "_",
		Runner:   stubRunner{},
		Recorder: s,
	})
	require.NoError(t, err)

	logical, err := e.Compile(context.Background())
	require.NoError(t, err)

	entry, err := s.Get(logical)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, source, entry.SourcePath)
	assert.Equal(t, e.Asset().Fingerprint, entry.Fingerprint)
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, _ []string) (*compiler.Result, error) {
	return &compiler.Result{Stdout: []byte("var x = 1;")}, nil
}
