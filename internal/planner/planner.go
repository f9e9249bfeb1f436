package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/joshharrison/assetloom/internal/graph"
)

// Generate resolves the requested roots against g and produces an execution
// plan: the transitive closure of prerequisites, a topological order, the
// concurrency waves and the longest prerequisite chain. Every task counts as
// one unit of work. Unknown names and cycles are reported before anything
// is scheduled.
func Generate(g *graph.Graph, roots []string) (*Plan, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no tasks requested")
	}

	sub, err := g.Closure(roots...)
	if err != nil {
		return nil, fmt.Errorf("resolve tasks: %w", err)
	}

	order, err := topoSort(sub)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		CreatedAt:  time.Now(),
		Roots:      append([]string(nil), roots...),
		TotalTasks: sub.TaskCount(),
		Order:      order,
		Tasks:      make(map[string]*PlannedTask, len(order)),
		Deps: TaskDeps{
			Predecessors: make(map[string][]string, len(order)),
			Successors:   make(map[string][]string, len(order)),
		},
	}

	for _, id := range order {
		plan.Deps.Predecessors[id] = append([]string(nil), sub.RevAdj[id]...)
		plan.Deps.Successors[id] = append([]string(nil), sub.Adj[id]...)
	}

	// Forward pass: earliest start is the longest prerequisite chain.
	es := make(map[string]int, len(order))
	total := 0
	for _, id := range order {
		start := 0
		for _, pred := range sub.RevAdj[id] {
			if es[pred]+1 > start {
				start = es[pred] + 1
			}
		}
		es[id] = start
		if start+1 > total {
			total = start + 1
		}
	}

	// Backward pass: latest start that keeps the total unchanged.
	ls := make(map[string]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		finish := total
		for _, succ := range sub.Adj[id] {
			if ls[succ] < finish {
				finish = ls[succ]
			}
		}
		ls[id] = finish - 1
	}

	for _, id := range order {
		t := sub.Tasks[id]
		pt := &PlannedTask{
			Name:      id,
			Desc:      t.Desc,
			Group:     t.Action == nil,
			WaveIndex: es[id],
			Slack:     ls[id] - es[id],
		}
		pt.IsCritical = pt.Slack == 0
		plan.Tasks[id] = pt
		if pt.IsCritical {
			plan.CriticalPath = append(plan.CriticalPath, id)
		}
	}

	plan.Waves = make([]Wave, total)
	for i := range plan.Waves {
		plan.Waves[i].Index = i
	}
	for _, id := range order {
		pt := plan.Tasks[id]
		plan.Waves[pt.WaveIndex].Tasks = append(plan.Waves[pt.WaveIndex].Tasks, *pt)
	}
	for _, w := range plan.Waves {
		tasks := w.Tasks
		sort.SliceStable(tasks, func(a, b int) bool {
			if tasks[a].IsCritical != tasks[b].IsCritical {
				return tasks[a].IsCritical
			}
			return tasks[a].Name < tasks[b].Name
		})
	}
	plan.TotalWaves = len(plan.Waves)

	return plan, nil
}

// topoSort performs Kahn's algorithm, releasing ready tasks in lexical order.
func topoSort(g *graph.Graph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Tasks))
	var queue []string
	for _, id := range g.Names() {
		inDegree[id] = len(g.RevAdj[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Tasks) {
		return nil, fmt.Errorf("topological sort failed: graph has a cycle (%d of %d tasks sorted)", len(order), len(g.Tasks))
	}
	return order, nil
}

// Position returns the index of name in the plan order, or -1.
func (p *Plan) Position(name string) int {
	for i, id := range p.Order {
		if id == name {
			return i
		}
	}
	return -1
}
