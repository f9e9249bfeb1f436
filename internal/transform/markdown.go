package transform

import (
	"bytes"
	"context"

	"github.com/joshharrison/assetloom/internal/pipeline"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownExts are the extensions rendered by Markdown.
var MarkdownExts = []string{".md", ".markdown"}

// Markdown renders .md and .markdown records to HTML (GitHub flavored) and
// renames them to .html. Raw HTML inside the markdown is kept.
func Markdown() pipeline.Step {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return pipeline.Map("markdown", pipeline.Transform, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if f.Dir || !hasExt(f.Rel, MarkdownExts) {
			return []pipeline.File{f}, nil
		}
		var buf bytes.Buffer
		if err := md.Convert(f.Contents, &buf); err != nil {
			return nil, err
		}
		f = f.WithExt(".html")
		f.Contents = buf.Bytes()
		return []pipeline.File{f}, nil
	})
}
