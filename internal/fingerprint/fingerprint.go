// Package fingerprint derives the short content digest embedded in generated
// artifact names.
//
// A fingerprint covers the full byte content of a source file followed by its
// modification time rendered as fractional seconds. Changing either one yields a
// new fingerprint, and therefore a new artifact name, so published artifacts can
// be cached by name indefinitely.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Length is the number of hex characters kept from the digest
const Length = 12

// chunkSize matches 128 md5 blocks per read
const chunkSize = 128 * md5.BlockSize

// ErrNotFound is returned when the source file is missing or unreadable
var ErrNotFound = errors.New("source not found")

// Algorithm selects the digest used for fingerprints
type Algorithm string

const (
	// MD5 produces names identical to those of the reference tooling
	MD5 Algorithm = "md5"

	// BLAKE3 is faster on large sources
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm validates a configured algorithm name. An empty name selects MD5.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", MD5:
		return MD5, nil
	case BLAKE3:
		return BLAKE3, nil
	}

	return "", fmt.Errorf("unknown fingerprint hash %q", name)
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case "", MD5:
		return md5.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	}

	return nil, fmt.Errorf("unknown fingerprint hash %q", string(a))
}

// Compute returns the fingerprint of the file at path using MD5
func Compute(path string) (string, error) {
	return ComputeWith(path, MD5)
}

// ComputeWith returns the fingerprint of the file at path using the given algorithm
func ComputeWith(path string, alg Algorithm) (string, error) {
	h, err := alg.newHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", fmt.Errorf("%w: failed to read %s: %v", ErrNotFound, path, err)
	}

	_, _ = io.WriteString(h, FormatModTime(info.ModTime()))

	return hex.EncodeToString(h.Sum(nil))[:Length], nil
}

// FormatModTime renders t as fractional Unix seconds using the shortest decimal
// that round-trips, always with a fractional part (e.g. "1700000000.0").
func FormatModTime(t time.Time) string {
	secs := float64(t.Unix()) + float64(t.Nanosecond())*1e-9

	s := strconv.FormatFloat(secs, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}
