package transform

import (
	"context"
	"strings"

	"github.com/joshharrison/assetloom/internal/pipeline"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

var mediaTypes = map[string]string{
	".js":   "application/javascript",
	".css":  "text/css",
	".html": "text/html",
	".svg":  "image/svg+xml",
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}

// Minify compresses JavaScript, CSS, HTML and SVG records. Other records
// pass through unchanged. A syntax error fails the file.
func Minify() pipeline.Step {
	m := newMinifier()
	return pipeline.Map("minify", pipeline.Transform, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		mediaType, ok := mediaTypes[strings.ToLower(f.Ext())]
		if f.Dir || !ok {
			return []pipeline.File{f}, nil
		}
		out, err := m.Bytes(mediaType, f.Contents)
		if err != nil {
			return nil, err
		}
		f.Contents = out
		return []pipeline.File{f}, nil
	})
}
