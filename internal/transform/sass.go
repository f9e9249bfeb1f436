package transform

import (
	"context"

	"github.com/joshharrison/assetloom/internal/pipeline"
)

// Compiler compiles one stylesheet to CSS plus an optional source map.
type Compiler interface {
	Compile(ctx context.Context, path string) (css, sourceMap []byte, err error)
}

// Sass compiles every stylesheet record into a .css record and, when the
// compiler produced one, a .css.map record next to it. A compile error
// fails the file.
func Sass(c Compiler) pipeline.Step {
	return pipeline.Map("sass", pipeline.FanOut, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if f.Dir {
			return nil, nil
		}
		css, sourceMap, err := c.Compile(ctx, f.Path())
		if err != nil {
			return nil, err
		}

		out := f.WithExt(".css")
		out.Contents = css
		files := []pipeline.File{out}
		if sourceMap != nil {
			files = append(files, pipeline.File{Base: f.Base, Rel: out.Rel + ".map", Contents: sourceMap, Mode: f.Mode})
		}
		return files, nil
	})
}
