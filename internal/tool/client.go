// Package tool wraps the external binaries the build shells out to.
package tool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNotFound is returned when a tool binary is not on PATH.
var ErrNotFound = errors.New("tool not found")

// Client runs one external binary.
type Client struct {
	Bin string
	Dir string // working directory; empty means the current one
}

// run executes the binary and returns its combined output. The output is
// returned even when the command fails so callers can inspect it.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return out, fmt.Errorf("%s: %w", c.Bin, ErrNotFound)
		}
		return out, fmt.Errorf("%s %s: %w\n%s", c.Bin, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Shell runs command with "sh -c" in dir, streaming its output.
func Shell(ctx context.Context, dir, command string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%q: %w", command, err)
	}
	return nil
}
