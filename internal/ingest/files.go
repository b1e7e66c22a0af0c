package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
)

// LoadStats summarizes a local discovery pass.
type LoadStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// LoadPaths reads files and directories (recursively) into artifacts.
// Directories only contribute files with a known extension; explicit
// file paths are always loaded so an unsupported type surfaces as a
// per-artifact error later.
func LoadPaths(paths []string, skipHidden bool) ([]extract.Artifact, LoadStats, error) {
	var out []extract.Artifact
	var stats LoadStats

	for _, root := range paths {
		if strings.TrimSpace(root) == "" {
			return nil, stats, errors.New("empty path")
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, stats, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			stats.Scanned++
			art, err := LoadFile(root)
			if err != nil {
				return nil, stats, err
			}
			stats.Matched++
			out = append(out, art)
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != root && skipHidden && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			stats.Scanned++
			if constants.MediaTypeForExt(filepath.Ext(path)) == "" {
				stats.Skipped++
				return nil
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, stats, fmt.Errorf("walk: %w", err)
		}
		sort.Strings(found)
		for _, p := range found {
			art, err := LoadFile(p)
			if err != nil {
				return nil, stats, err
			}
			stats.Matched++
			out = append(out, art)
		}
	}
	return out, stats, nil
}

// LoadFile reads one file; the media type comes from its extension.
func LoadFile(path string) (extract.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Artifact{}, fmt.Errorf("read %s: %w", path, err)
	}
	mt := constants.MediaTypeForExt(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return extract.Artifact{
		ID:          uuid.NewString(),
		DisplayName: filepath.Base(path),
		MediaType:   mt,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
