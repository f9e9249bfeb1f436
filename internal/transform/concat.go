package transform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/joshharrison/assetloom/internal/pipeline"
)

// DirConcat replaces each directory record with a single artifact named
// after the directory plus ext. Its contents are the first-level files
// beneath the directory that carry ext, in lexical order, joined with a
// newline. A directory with no such files produces nothing. File records
// pass through unchanged.
func DirConcat(ext string) pipeline.Step {
	return pipeline.Map("concat", pipeline.FanIn, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if !f.Dir {
			return []pipeline.File{f}, nil
		}

		entries, err := os.ReadDir(f.Path())
		if err != nil {
			return nil, fmt.Errorf("read directory: %w", err)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && path.Ext(e.Name()) == ext {
				names = append(names, e.Name())
			}
		}
		if len(names) == 0 {
			return nil, nil
		}
		sort.Strings(names)

		parts := make([][]byte, 0, len(names))
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(f.Path(), name))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			parts = append(parts, data)
		}

		return []pipeline.File{{
			Base:     f.Base,
			Rel:      f.Rel + ext,
			Contents: bytes.Join(parts, []byte("\n")),
			Mode:     0644,
		}}, nil
	})
}
