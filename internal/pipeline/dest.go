package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Dest writes every record below root at its Rel path, creating parent
// directories, and passes the batch on unchanged. Any write failure aborts.
func Dest(root string) Step {
	return Map("dest", PassThrough, Abort, func(ctx context.Context, f File) ([]File, error) {
		if !filepath.IsLocal(filepath.FromSlash(f.Rel)) {
			return nil, fmt.Errorf("path escapes output directory")
		}
		target := filepath.Join(root, filepath.FromSlash(f.Rel))

		if f.Dir {
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			return []File{f}, nil
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, err
		}
		mode := f.Mode
		if mode == 0 {
			mode = 0644
		}
		if err := os.WriteFile(target, f.Contents, mode); err != nil {
			return nil, err
		}
		return []File{f}, nil
	})
}
