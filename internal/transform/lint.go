package transform

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/joshharrison/assetloom/internal/pipeline"
	"github.com/joshharrison/assetloom/internal/ui"
)

// Diagnostic is one lint finding.
type Diagnostic struct {
	Path    string
	Line    int
	Col     int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Path, d.Line, d.Col, d.Message)
}

// Linter checks one source file.
type Linter interface {
	Lint(ctx context.Context, path string) ([]Diagnostic, error)
}

// Lint reports the linter's findings for every file to w and passes the
// batch through unchanged. Findings never fail the task; a file the linter
// cannot check is reported and dropped.
func Lint(l Linter, w io.Writer) pipeline.Step {
	var mu sync.Mutex
	return pipeline.Map("lint", pipeline.PassThrough, pipeline.Skip, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if f.Dir {
			return []pipeline.File{f}, nil
		}
		diags, err := l.Lint(ctx, f.Path())
		if err != nil {
			return nil, err
		}
		if len(diags) > 0 {
			mu.Lock()
			fmt.Fprintf(w, "  %s %s  %d problem(s)\n", ui.Yellow("⚠"), ui.Bold(f.Rel), len(diags))
			for _, d := range diags {
				fmt.Fprintf(w, "    %s\n", ui.Dim(d.String()))
			}
			mu.Unlock()
		}
		return []pipeline.File{f}, nil
	})
}
