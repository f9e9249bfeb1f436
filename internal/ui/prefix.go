package ui

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// PrefixWriter splits output from external tools into lines and writes each
// one to dest behind a colored [task] prefix. Writers for concurrent tasks
// share mu so their lines never interleave mid-line.
type PrefixWriter struct {
	prefix string
	dest   io.Writer
	mu     *sync.Mutex
	buf    []byte
}

// NewPrefixWriter creates a PrefixWriter for the named task.
func NewPrefixWriter(task string, dest io.Writer, mu *sync.Mutex) *PrefixWriter {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &PrefixWriter{
		prefix: TaskPrefix(task) + " ",
		dest:   dest,
		mu:     mu,
	}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.buf = append(pw.buf, p...)
	for {
		idx := bytes.IndexByte(pw.buf, '\n')
		if idx == -1 {
			break
		}
		line := string(bytes.TrimRight(pw.buf[:idx], "\r"))
		pw.buf = pw.buf[idx+1:]
		if line != "" {
			fmt.Fprintf(pw.dest, "  %s%s\n", pw.prefix, line)
		}
	}
	return len(p), nil
}

// Flush writes any trailing partial line.
func (pw *PrefixWriter) Flush() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if len(pw.buf) > 0 {
		fmt.Fprintf(pw.dest, "  %s%s\n", pw.prefix, string(pw.buf))
		pw.buf = nil
	}
}
