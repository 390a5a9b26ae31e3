// Package tombstone locates text tombstones and reads them while a foreign
// writer may still be rotating the directory.
//
// No lock is available on the tombstone directory. Every read is guarded by
// comparing the file's modification time before and after; a mismatch
// discards the read. There is exactly one attempt: a changed file is
// reported, never re-read.
package tombstone

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/data/scanner"
	"github.com/penwyp/go-logviewer/internal/util"
)

var (
	// ErrChanged reports that a file's modification time moved between checks.
	ErrChanged = errors.New("file modified since last check")
	// ErrNotFound reports that no usable tombstone exists.
	ErrNotFound = errors.New("tombstone not found")
)

const timestampMarker = "\nTimestamp: "

// Finder matches crash reports against text tombstones on disk.
type Finder struct {
	scanner *scanner.TombstoneScanner
	// lastModified returns a file's modification time in unix millis, 0 if unknown.
	lastModified func(path string) int64
}

// NewFinder creates a Finder over dir.
func NewFinder(dir string) *Finder {
	return &Finder{
		scanner:      scanner.NewTombstoneScanner(dir),
		lastModified: util.LastModified,
	}
}

// Dir returns the tombstone directory.
func (f *Finder) Dir() string {
	return f.scanner.Dir()
}

// Find returns the newest tombstone whose first len(header) bytes equal header.
// If that file changes between the scan and the match, Find reports nothing
// rather than looking further.
func (f *Finder) Find(header []byte) (*model.TimestampedFile, bool) {
	start := time.Now()

	candidates, err := f.scanner.Scan()
	if err != nil {
		return nil, false
	}

	buf := make([]byte, len(header))
	for i := range candidates {
		candidate := candidates[i]

		matched, err := readPrefix(candidate.Path, buf)
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip tombstone %s: %v", candidate.Path, err))
			continue
		}
		if !matched || !bytes.Equal(header, buf) {
			continue
		}

		if current := f.lastModified(candidate.Path); current != candidate.LastModified {
			util.LogWarn(fmt.Sprintf("Tombstone %s changed after match: expected %d, got %d",
				candidate.Path, candidate.LastModified, current))
			return nil, false
		}

		util.LogDebug(fmt.Sprintf("Tombstone matched: %s after probing %d of %d candidates in %v",
			candidate.Path, i+1, len(candidates), time.Since(start)))
		return &candidate, true
	}

	util.LogDebug(fmt.Sprintf("No tombstone matched a %s header among %d candidates",
		humanize.Bytes(uint64(len(header))), len(candidates)))
	return nil, false
}

// readPrefix fills buf from the start of path. It reports false without an
// error when the file is shorter than buf.
func readPrefix(path string, buf []byte) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	if _, err := io.ReadFull(file, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Resolve checks that path still has the modification time the sender saw.
func (f *Finder) Resolve(path string, expected int64) (*model.TimestampedFile, error) {
	if current := f.lastModified(path); current != expected {
		util.LogError(fmt.Sprintf("lastModified mismatch for %s: expected %d, got %d", path, expected, current))
		return nil, fmt.Errorf("%s: %w", path, ErrChanged)
	}
	return &model.TimestampedFile{Path: path, LastModified: expected}, nil
}

// Read returns the full contents of tf, provided its modification time
// matches before and after the read.
func (f *Finder) Read(tf model.TimestampedFile) ([]byte, error) {
	if f.lastModified(tf.Path) != tf.LastModified {
		return nil, fmt.Errorf("%s: %w", tf.Path, ErrChanged)
	}

	data, err := os.ReadFile(tf.Path)
	if err != nil {
		util.LogError(fmt.Sprintf("Failed to read tombstone %s: %v", tf.Path, err))
		return nil, fmt.Errorf("failed to read tombstone: %w", err)
	}

	if f.lastModified(tf.Path) != tf.LastModified {
		return nil, fmt.Errorf("%s: %w", tf.Path, ErrChanged)
	}

	util.LogDebug(fmt.Sprintf("Read tombstone %s (%s)", tf.Path, humanize.Bytes(uint64(len(data)))))
	return data, nil
}

// HeaderFromStackTrace extracts the tombstone header embedded at the start of
// a native crash stack trace: everything up to and including the line that
// starts with "Timestamp: ".
func HeaderFromStackTrace(stackTrace string) ([]byte, bool) {
	idx := strings.Index(stackTrace, timestampMarker)
	if idx < 0 {
		return nil, false
	}
	lineStart := idx + 1
	end := strings.IndexByte(stackTrace[lineStart:], '\n')
	if end < 0 {
		return nil, false
	}
	return []byte(stackTrace[:lineStart+end+1]), true
}
