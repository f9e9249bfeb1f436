package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sass compiles stylesheets with the dart-sass command line.
type Sass struct {
	Client
	LoadPaths []string
	Style     string // "expanded" or "compressed"
}

// NewSass creates a Sass compiler using bin, defaulting to "sass".
func NewSass(bin string, loadPaths []string) *Sass {
	if bin == "" {
		bin = "sass"
	}
	return &Sass{Client: Client{Bin: bin}, LoadPaths: loadPaths, Style: "expanded"}
}

func (s *Sass) args(src, dst string) []string {
	args := []string{"--no-error-css", "--source-map", "--embed-sources"}
	if s.Style != "" {
		args = append(args, "--style="+s.Style)
	}
	for _, p := range s.LoadPaths {
		args = append(args, "--load-path="+p)
	}
	return append(args, src, dst)
}

// Compile compiles the stylesheet at path and returns the CSS and its
// source map. The output is staged in a temporary directory under the
// final file name, so the sourceMappingURL comment points at the map's
// real name.
func (s *Sass) Compile(ctx context.Context, path string) ([]byte, []byte, error) {
	tmp, err := os.MkdirTemp("", "assetloom-sass-")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".css"
	dst := filepath.Join(tmp, name)
	if _, err := s.run(ctx, s.args(path, dst)...); err != nil {
		return nil, nil, err
	}

	css, err := os.ReadFile(dst)
	if err != nil {
		return nil, nil, fmt.Errorf("read compiled css: %w", err)
	}
	sourceMap, err := os.ReadFile(dst + ".map")
	if os.IsNotExist(err) {
		return css, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read source map: %w", err)
	}
	return css, sourceMap, nil
}
