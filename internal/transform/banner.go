// Package transform provides the Steps used by the asset build: banners,
// renames, concatenation, minification, markdown, includes, linting, Sass
// and Lua script hooks.
package transform

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/joshharrison/assetloom/internal/pipeline"
)

// BannerData is the provenance stamped onto generated files.
type BannerData struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string
	Repository  string
	Year        int
}

// Banner formats.
const (
	FullBanner = "/*!\n" +
		" * {{.Name}} v{{.Version}}: {{.Description}}\n" +
		" * (c) {{.Year}} {{.Author}}\n" +
		" * {{.License}} License\n" +
		" * {{.Repository}}\n" +
		" */\n\n"

	MinBanner = "/*! {{.Name}} v{{.Version}} | (c) {{.Year}} {{.Author}} | {{.License}} License | {{.Repository}} */\n"
)

// RenderBanner executes a banner format against data.
func RenderBanner(format string, data BannerData) (string, error) {
	tmpl, err := template.New("banner").Option("missingkey=error").Parse(format)
	if err != nil {
		return "", fmt.Errorf("parse banner: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render banner: %w", err)
	}
	return b.String(), nil
}

// Banner renders format once and prepends it to every file.
func Banner(format string, data BannerData) (pipeline.Step, error) {
	text, err := RenderBanner(format, data)
	if err != nil {
		return nil, err
	}
	return Header(text), nil
}

// Header prepends text to every file record.
func Header(text string) pipeline.Step {
	return pipeline.Map("header", pipeline.Transform, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if !f.Dir {
			f.Contents = append([]byte(text), f.Contents...)
		}
		return []pipeline.File{f}, nil
	})
}

// Footer appends text to every file record.
func Footer(text string) pipeline.Step {
	return pipeline.Map("footer", pipeline.Transform, pipeline.Abort, func(ctx context.Context, f pipeline.File) ([]pipeline.File, error) {
		if !f.Dir {
			buf := make([]byte, 0, len(f.Contents)+len(text))
			buf = append(buf, f.Contents...)
			f.Contents = append(buf, text...)
		}
		return []pipeline.File{f}, nil
	})
}
