package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// GzipSuffix is appended to an artifact path for its precompressed sibling
const GzipSuffix = ".gz"

// publish writes data to path through a temporary sibling and a rename, so readers
// never observe a partially written artifact
func publish(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".assetc-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}

	return nil
}

// publishGzip writes a gzip-compressed copy of data next to path
func publishGzip(path string, data []byte) error {
	var buf bytes.Buffer

	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}

	zw.Name = filepath.Base(path)

	if _, err := zw.Write(data); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return err
	}

	return publish(path+GzipSuffix, buf.Bytes())
}
