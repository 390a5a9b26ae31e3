package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/util"
)

const (
	DefaultTombstoneDir = "/data/tombstones"
	TombstonePrefix     = "tombstone_"
	ProtoSuffix         = ".pb"
)

// TombstoneScanner lists text tombstones in a single directory
type TombstoneScanner struct {
	baseDir       string
	prefix        string
	excludeSuffix string
}

// NewTombstoneScanner creates a TombstoneScanner for baseDir
func NewTombstoneScanner(baseDir string) *TombstoneScanner {
	return &TombstoneScanner{
		baseDir:       baseDir,
		prefix:        TombstonePrefix,
		excludeSuffix: ProtoSuffix,
	}
}

// Dir returns the scanned directory
func (s *TombstoneScanner) Dir() string {
	return s.baseDir
}

// Scan returns text tombstones newest first, each stamped with the
// modification time observed during the scan. Entries whose time is not
// positive are left out.
func (s *TombstoneScanner) Scan() ([]model.TimestampedFile, error) {
	start := time.Now()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Unable to list tombstone directory: %s - %v", s.baseDir, err))
		return nil, err
	}

	var files []model.TimestampedFile
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, s.excludeSuffix) || !strings.HasPrefix(name, s.prefix) {
			continue
		}

		path := filepath.Join(s.baseDir, name)
		lastModified := util.LastModified(path)
		if lastModified <= 0 {
			continue
		}
		files = append(files, model.TimestampedFile{Path: path, LastModified: lastModified})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].LastModified > files[j].LastModified
	})

	util.LogDebug(fmt.Sprintf("Tombstone scan completed: duration %v, %d entries, %d candidates",
		time.Since(start), len(entries), len(files)))

	return files, nil
}
