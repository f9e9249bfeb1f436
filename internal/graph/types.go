package graph

import "context"

// Action is the unit of work bound to a task. It returns once all of its
// effects are complete; a non-nil error marks the task failed.
type Action func(ctx context.Context) error

// Task is a named unit of work with declared prerequisites.
type Task struct {
	Name   string
	Desc   string
	Deps   []string // prerequisite task names, in declaration order
	Action Action   // nil for pure group tasks
}

// Graph is the explicit task registry for one project. It is built once at
// startup and handed to the runner by reference.
type Graph struct {
	Tasks  map[string]*Task
	Adj    map[string][]string // task -> tasks that depend on it
	RevAdj map[string][]string // task -> its prerequisites
	Roots  []string            // tasks with no prerequisites
	Leaves []string            // tasks nothing depends on
}
