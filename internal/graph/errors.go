package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycle         = errors.New("dependency cycle detected")
	ErrUnknownTask   = errors.New("unknown task")
	ErrDuplicateTask = errors.New("duplicate task")
)

// CycleError reports a prerequisite cycle. Path is closed: the first and
// last entries name the same task.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// UnknownTaskError reports a reference to a task that is not registered.
// From is empty when the name was requested directly.
type UnknownTaskError struct {
	Name string
	From string
}

func (e *UnknownTaskError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("%s %q", ErrUnknownTask, e.Name)
	}
	return fmt.Sprintf("%s %q (prerequisite of %q)", ErrUnknownTask, e.Name, e.From)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }
