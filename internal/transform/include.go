package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joshharrison/assetloom/internal/pipeline"
)

// MaxIncludeDepth bounds nested @@include expansion.
const MaxIncludeDepth = 10

// ErrIncludeDepth is returned when includes nest deeper than MaxIncludeDepth,
// which usually means a file includes itself.
var ErrIncludeDepth = errors.New("include depth exceeded")

var includeRe = regexp.MustCompile(`@@include\(\s*(?:'([^']*)'|"([^"]*)")\s*\)`)

// Include expands @@include('path') directives. Paths resolve relative to
// the directory of the file containing the directive, and included files
// are expanded in turn.
func Include() pipeline.Step {
	return pipeline.Map("include", pipeline.Transform, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if f.Dir {
			return []pipeline.File{f}, nil
		}
		out, err := expandIncludes(f.Contents, filepath.Dir(f.Path()), 0)
		if err != nil {
			return nil, err
		}
		f.Contents = out
		return []pipeline.File{f}, nil
	})
}

func expandIncludes(src []byte, dir string, depth int) ([]byte, error) {
	matches := includeRe.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, nil
	}
	if depth >= MaxIncludeDepth {
		return nil, ErrIncludeDepth
	}

	var buf bytes.Buffer
	last := 0
	for _, m := range matches {
		buf.Write(src[last:m[0]])
		last = m[1]

		rel := ""
		if m[2] >= 0 {
			rel = string(src[m[2]:m[3]])
		} else {
			rel = string(src[m[4]:m[5]])
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))

		data, err := os.ReadFile(target)
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", rel, err)
		}
		expanded, err := expandIncludes(data, filepath.Dir(target), depth+1)
		if err != nil {
			return nil, err
		}
		buf.Write(expanded)
	}
	buf.Write(src[last:])
	return buf.Bytes(), nil
}
