// Package manifest keeps a durable record of the artifacts the compiler has
// published.
//
// Artifact names are content-fingerprinted, so every edit to a source leaves the
// previous artifact behind. The manifest remembers which artifacts belong to which
// source, so superseded ones can be pruned and disk usage reported without
// guessing from filenames. Records are stored in BoltDB keyed by output path.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Norgate-AV/assetc/internal/compiler"
)

const (
	// DefaultFile is the manifest filename used when no path is configured
	DefaultFile = ".assetc-manifest.db"

	// bucketName is the BoltDB bucket name for artifact records
	bucketName = "artifacts"
)

// Store manages artifact records using BoltDB
type Store struct {
	db     *bbolt.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the manifest at path.
// If path is empty, uses DefaultFile in the current working directory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}

		path = filepath.Join(cwd, DefaultFile)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create manifest bucket: %w", err)
	}

	return &Store{
		db:     db,
		path:   path,
		logger: logger.With("manifest", path),
		now:    time.Now,
	}, nil
}

// Close closes the manifest database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Path returns the location of the manifest database
func (s *Store) Path() string {
	return s.path
}

// Record stores an entry for a freshly published artifact
func (s *Store) Record(asset compiler.CompiledAsset) error {
	entry := Entry{
		Fingerprint: asset.Fingerprint,
		SourcePath:  asset.SourcePath,
		OutputPath:  asset.OutputPath,
		LogicalPath: asset.LogicalPath,
		Compiler:    asset.Compiler,
		Timestamp:   s.now(),
	}

	if info, err := os.Stat(asset.OutputPath); err == nil {
		entry.Size = info.Size()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(entry.OutputPath), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store manifest entry: %w", err)
	}

	s.logger.Debug("recorded artifact", "output", entry.OutputPath)

	return nil
}

// Get retrieves the entry for an artifact path.
// Returns nil if there is no record.
func (s *Store) Get(outputPath string) (*Entry, error) {
	var entry *Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(outputPath))
		if data == nil {
			return nil
		}

		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ForSource returns every recorded artifact of sourcePath, oldest first
func (s *Store) ForSource(sourcePath string) ([]Entry, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, e := range all {
		if e.SourcePath == sourcePath {
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// All returns every record, oldest first
func (s *Store) All() ([]Entry, error) {
	var entries []Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}

			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].OutputPath < entries[j].OutputPath
		}

		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries, nil
}

// Prune deletes superseded artifacts. For every (source, compiler) pair only the
// newest record whose artifact is still on disk is kept; older artifacts are
// removed from disk, together with their precompressed siblings, and from the
// manifest. Records whose artifact has already disappeared are dropped too.
// Returns the removed entries.
func (s *Store) Prune() ([]Entry, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	type key struct{ source, compiler string }
	latest := make(map[key]string)
	for _, e := range all {
		if fileExists(e.OutputPath) {
			latest[key{e.SourcePath, e.Compiler}] = e.OutputPath
		}
	}

	var removed []Entry
	for _, e := range all {
		if latest[key{e.SourcePath, e.Compiler}] == e.OutputPath {
			continue
		}

		for _, p := range []string{e.OutputPath, e.OutputPath + compiler.GzipSuffix} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, fmt.Errorf("failed to remove %s: %w", p, err)
			}
		}

		err := s.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte(bucketName)).Delete([]byte(e.OutputPath))
		})
		if err != nil {
			return removed, fmt.Errorf("failed to delete manifest entry: %w", err)
		}

		s.logger.Info("pruned artifact", "output", e.OutputPath, "source", e.SourcePath)
		removed = append(removed, e)
	}

	return removed, nil
}

// Clear removes all records. Artifacts on disk are left alone.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte(bucketName))
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Stats returns the number of records and the total size of the artifacts still on disk
func (s *Store) Stats() (int, int64, error) {
	all, err := s.All()
	if err != nil {
		return 0, 0, err
	}

	var totalSize int64
	for _, e := range all {
		if info, err := os.Stat(e.OutputPath); err == nil {
			totalSize += info.Size()
		}
	}

	return len(all), totalSize, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
