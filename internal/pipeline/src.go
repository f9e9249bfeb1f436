package pipeline

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Src reads every path under dir matched by globs. Globs use doublestar
// syntax ("**", "{a,b}") and are relative to dir; a leading "!" excludes
// matches instead. Each record's Rel is relative to the static prefix of
// the glob that matched it, so "src/js/*" yields Rel "a.js" for
// src/js/a.js. Matches are returned glob by glob, each group in lexical
// order; a path matched twice is returned once. A glob whose static prefix
// does not exist matches nothing. Directories are returned as Dir records.
// Wildcards never match hidden entries (names starting with "."); a hidden
// name is only matched when the glob spells it out.
func Src(dir string, globs ...string) ([]File, error) {
	var include, exclude []string
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if strings.HasPrefix(g, "!") {
			exclude = append(exclude, strings.TrimPrefix(g, "!"))
			continue
		}
		include = append(include, g)
	}
	for _, ex := range exclude {
		if !doublestar.ValidatePattern(ex) {
			return nil, fmt.Errorf("invalid glob %q: %w", ex, doublestar.ErrBadPattern)
		}
	}

	seen := make(map[string]bool)
	var files []File
	for _, g := range include {
		base, pattern := doublestar.SplitPattern(g)
		root := filepath.Join(dir, filepath.FromSlash(base))

		info, err := os.Stat(root)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", root, err)
		}
		if !info.IsDir() {
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", g, err)
		}
		sort.Strings(matches)
		literal := literalSegments(pattern)

		for _, m := range matches {
			if m == "." || hidden(m, literal) || excluded(path.Join(base, m), exclude) {
				continue
			}
			full := filepath.Join(root, filepath.FromSlash(m))
			if seen[full] {
				continue
			}
			seen[full] = true

			f, err := readFile(root, m)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// literalSegments returns the segments of pattern without glob syntax.
func literalSegments(pattern string) map[string]bool {
	out := make(map[string]bool)
	for _, seg := range strings.Split(pattern, "/") {
		if !strings.ContainsAny(seg, "*?[{\\") {
			out[seg] = true
		}
	}
	return out
}

// hidden reports whether rel has a dot-prefixed segment that the pattern
// did not name literally.
func hidden(rel string, literal map[string]bool) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && !literal[seg] {
			return true
		}
	}
	return false
}

func excluded(rel string, exclude []string) bool {
	for _, ex := range exclude {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return true
		}
	}
	return false
}

func readFile(base, rel string) (File, error) {
	full := filepath.Join(base, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", full, err)
	}

	f := File{Base: base, Rel: rel, Mode: info.Mode().Perm()}
	if info.IsDir() {
		f.Dir = true
		return f, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", full, err)
	}
	f.Contents = data
	return f, nil
}
