// Package pipeline composes Transform Steps over batches of File records.
//
// A batch is a finite, ordered slice of Files. Each step receives the whole
// batch and returns a new one, so a step can keep, replace, drop, split or
// merge records. Steps run strictly left to right.
package pipeline

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// File is one record flowing through a pipeline.
type File struct {
	Base     string      // directory the record was read relative to
	Rel      string      // slash-separated path below Base; decides the output location
	Contents []byte      // nil for directories
	Dir      bool        // record stands for a directory
	Mode     fs.FileMode // permission bits to write with; 0 means default
}

// Path returns the on-disk location the record was read from.
func (f File) Path() string {
	return filepath.Join(f.Base, filepath.FromSlash(f.Rel))
}

// Ext returns the extension of Rel, including the dot.
func (f File) Ext() string {
	return path.Ext(f.Rel)
}

// Stem returns the base name of Rel without its extension.
func (f File) Stem() string {
	b := path.Base(f.Rel)
	return strings.TrimSuffix(b, path.Ext(b))
}

// Clone returns a deep copy of f.
func (f File) Clone() File {
	cp := f
	if f.Contents != nil {
		cp.Contents = append([]byte(nil), f.Contents...)
	}
	return cp
}

// WithExt returns a copy of f whose Rel carries ext instead of its current
// extension.
func (f File) WithExt(ext string) File {
	cp := f
	cp.Rel = strings.TrimSuffix(f.Rel, path.Ext(f.Rel)) + ext
	return cp
}

func cloneAll(files []File) []File {
	out := make([]File, len(files))
	for i, f := range files {
		out[i] = f.Clone()
	}
	return out
}
