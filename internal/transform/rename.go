package transform

import (
	"context"
	"path"
	"strings"

	"github.com/joshharrison/assetloom/internal/pipeline"
)

// Suffix inserts suffix before the extension of every file, so "a.js"
// becomes "a.min.js" for ".min".
func Suffix(suffix string) pipeline.Step {
	return pipeline.Map("rename", pipeline.Transform, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if !f.Dir {
			ext := f.Ext()
			f.Rel = strings.TrimSuffix(f.Rel, ext) + suffix + ext
		}
		return []pipeline.File{f}, nil
	})
}

func hasExt(rel string, exts []string) bool {
	ext := strings.ToLower(path.Ext(rel))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
