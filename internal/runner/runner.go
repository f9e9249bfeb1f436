package runner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joshharrison/assetloom/internal/graph"
	"github.com/joshharrison/assetloom/internal/planner"
	"github.com/joshharrison/assetloom/internal/state"
	"github.com/joshharrison/assetloom/internal/ui"
)

// Runner executes tasks from a Graph.
type Runner struct {
	Graph  *graph.Graph
	Config Config
	mu     sync.Mutex // serializes progress output
}

// New creates a new Runner.
func New(g *graph.Graph, cfg Config) *Runner {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	return &Runner{Graph: g, Config: cfg}
}

// Run executes the requested roots and everything they transitively
// require, each task exactly once. Configuration problems (unknown names,
// cycles) are returned before any action starts, with a nil RunState.
// When an action fails, the returned error is a *RunError and the RunState
// records which tasks failed and which were skipped.
func (r *Runner) Run(ctx context.Context, roots ...string) (*state.RunState, error) {
	plan, err := planner.Generate(r.Graph, roots)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, plan)
}

// Execute runs a plan using a dynamic dependency-tracking scheduler. Each
// task is dispatched the moment all its prerequisites have completed. A
// failed task never cancels running siblings; its transitive dependents are
// skipped and everything else keeps going.
func (r *Runner) Execute(ctx context.Context, plan *planner.Plan) (*state.RunState, error) {
	st := state.New(plan.Roots, plan.Order)

	// Number of unfinished prerequisites for each task
	pending := make(map[string]int, len(plan.Order))
	for _, id := range plan.Order {
		pending[id] = len(plan.Deps.Predecessors[id])
	}

	done := make(chan taskResult, len(plan.Order))
	sem := make(chan struct{}, r.Config.MaxParallel)

	totalTasks := len(plan.Order)
	inflight := 0
	totalDone := 0 // completed + failed + skipped
	finished := make(map[string]bool, totalTasks)
	failed := make(map[string]error)
	var skipped []string

	for _, id := range plan.Order {
		if pending[id] == 0 {
			r.dispatch(ctx, id, st, sem, done)
			inflight++
		}
	}

	for totalDone < totalTasks {
		// Nothing in flight but tasks remain: they are unreachable
		if inflight == 0 {
			for _, id := range plan.Order {
				if !finished[id] {
					st.MarkSkipped(id, "")
					finished[id] = true
					skipped = append(skipped, id)
					totalDone++
				}
			}
			break
		}

		result := <-done
		inflight--
		finished[result.Name] = true
		totalDone++

		if result.Err != nil {
			failed[result.Name] = result.Err
			s := r.cascadeSkip(plan, result.Name, st, finished)
			skipped = append(skipped, s...)
			totalDone += len(s)
			continue
		}

		for _, succ := range plan.Deps.Successors[result.Name] {
			if finished[succ] {
				continue
			}
			pending[succ]--
			if pending[succ] == 0 {
				r.dispatch(ctx, succ, st, sem, done)
				inflight++
			}
		}
	}

	if len(failed) > 0 {
		st.SetStatus("failed")
		return st, &RunError{Failed: failed, Skipped: skipped}
	}
	st.SetStatus("completed")
	return st, nil
}

// dispatch launches a task in a goroutine: acquire semaphore, execute,
// send result on done channel.
func (r *Runner) dispatch(ctx context.Context, name string, st *state.RunState, sem chan struct{}, done chan<- taskResult) {
	task := r.Graph.Tasks[name]
	go func() {
		sem <- struct{}{}
		defer func() { <-sem }()

		st.MarkRunning(name)
		if task.Action != nil {
			r.logf("  ▶ %s %s\n", ui.TaskPrefix(name), ui.Dim(task.Desc))
		}

		start := time.Now()
		err := runAction(ctx, task)
		st.MarkFinished(name, err)

		if task.Action != nil {
			elapsed := ui.Dim(fmt.Sprintf("(%.2fs)", time.Since(start).Seconds()))
			if err != nil {
				r.logf("  ❌ %s %s %s\n", ui.TaskPrefix(name), ui.Red("Failed: "+err.Error()), elapsed)
			} else {
				r.logf("  ✅ %s %s %s\n", ui.TaskPrefix(name), ui.Green("Completed"), elapsed)
			}
		}

		done <- taskResult{Name: name, Err: err}
	}()
}

// runAction invokes the task action, converting a panic into a failure of
// that task.
func runAction(ctx context.Context, task *graph.Task) (err error) {
	if task.Action == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return task.Action(ctx)
}

// cascadeSkip performs BFS through the successor graph from a failed task,
// marking every transitively dependent task that has not finished as
// skipped. Returns the skipped names.
func (r *Runner) cascadeSkip(plan *planner.Plan, failedName string, st *state.RunState, finished map[string]bool) []string {
	var skipped []string
	queue := append([]string(nil), plan.Deps.Successors[failedName]...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if finished[id] {
			continue
		}

		st.MarkSkipped(id, failedName)
		finished[id] = true
		skipped = append(skipped, id)
		r.logf("  ⊘ %s %s\n", ui.TaskPrefix(id), ui.Yellow(fmt.Sprintf("Skipped (%s failed)", failedName)))

		for _, succ := range plan.Deps.Successors[id] {
			if !finished[succ] {
				queue = append(queue, succ)
			}
		}
	}

	return skipped
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Config.Quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.Config.Out, format, args...)
}
