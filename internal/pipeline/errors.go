package pipeline

import (
	"fmt"
	"strings"
)

// FileError ties a step failure to the record that caused it.
type FileError struct {
	Step string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// SkipError is returned by steps running under the Skip policy when some
// records failed. The step's returned batch is still valid; the pipeline
// reports each dropped record and carries on.
type SkipError struct {
	Skipped []*FileError
}

func (e *SkipError) Error() string {
	msgs := make([]string, len(e.Skipped))
	for i, fe := range e.Skipped {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("%d file(s) skipped: %s", len(e.Skipped), strings.Join(msgs, "; "))
}
