package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Config holds runner configuration.
type Config struct {
	MaxParallel int       // upper bound on concurrently running actions
	Out         io.Writer // progress lines; defaults to os.Stderr
	Quiet       bool      // suppress per-task progress lines
}

// taskResult communicates task completion from worker goroutines to the
// main event loop.
type taskResult struct {
	Name string
	Err  error
}

// RunError is returned when a run did not fully succeed. It lists the tasks
// whose actions failed and the tasks that never started because of them.
type RunError struct {
	Failed  map[string]error
	Skipped []string
}

func (e *RunError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	msg := fmt.Sprintf("%d task(s) failed: %s", len(names), strings.Join(names, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf("; %d skipped", len(e.Skipped))
	}
	return msg
}
