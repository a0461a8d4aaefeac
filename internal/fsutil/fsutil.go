// Package fsutil provides the file and path helpers used around a single
// podcast generation: reading the input text, preparing the output location
// and summarizing the result for the log.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

const defaultDirPermissions = 0o750

// Log summary.
const (
	summaryFormat   = "%s written in %s"
	unknownSize     = "unknown size"
	elapsedAccuracy = 100 * time.Millisecond
)

// ErrInvalidEncoding is returned when a text file is not valid UTF-8.
var ErrInvalidEncoding = errors.New("invalid UTF-8 text")

// ReadText reads the whole file at path and returns it as UTF-8 text.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("failed to decode %s: %w", path, ErrInvalidEncoding)
	}

	return string(data), nil
}

// EnsureParentDir creates every missing parent directory of path. It is a
// no-op when they already exist.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, defaultDirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	return nil
}

// DescribeEpisode summarizes a generated file for the log, e.g.
// "2.4 MB written in 1m3.2s".
func DescribeEpisode(path string, elapsed time.Duration) string {
	size := unknownSize

	info, err := os.Stat(path)
	if err == nil {
		size = humanize.Bytes(uint64(info.Size())) // #nosec G115 -- file sizes are never negative
	}

	return fmt.Sprintf(summaryFormat, size, elapsed.Round(elapsedAccuracy))
}
