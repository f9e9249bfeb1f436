package graph

import (
	"fmt"
	"sort"
)

// Build constructs a Graph from task definitions. It rejects duplicate
// names, prerequisites that name unregistered tasks, and cycles, so a
// Graph that Build returns is always a valid DAG.
func Build(tasks []*Task) (*Graph, error) {
	g := &Graph{
		Tasks:  make(map[string]*Task, len(tasks)),
		Adj:    make(map[string][]string),
		RevAdj: make(map[string][]string),
	}

	for _, t := range tasks {
		if t == nil || t.Name == "" {
			return nil, fmt.Errorf("task with empty name")
		}
		if _, ok := g.Tasks[t.Name]; ok {
			return nil, fmt.Errorf("%w %q", ErrDuplicateTask, t.Name)
		}
		g.Tasks[t.Name] = t
	}

	edgeSet := make(map[[2]string]bool)
	for _, name := range g.Names() {
		t := g.Tasks[name]
		for _, dep := range t.Deps {
			if _, ok := g.Tasks[dep]; !ok {
				return nil, &UnknownTaskError{Name: dep, From: name}
			}
			key := [2]string{dep, name}
			if edgeSet[key] {
				continue
			}
			edgeSet[key] = true
			g.Adj[dep] = append(g.Adj[dep], name)
			g.RevAdj[name] = append(g.RevAdj[name], dep)
		}
	}

	for k := range g.Adj {
		sort.Strings(g.Adj[k])
	}
	for k := range g.RevAdj {
		sort.Strings(g.RevAdj[k])
	}

	for _, name := range g.Names() {
		if len(g.RevAdj[name]) == 0 {
			g.Roots = append(g.Roots, name)
		}
		if len(g.Adj[name]) == 0 {
			g.Leaves = append(g.Leaves, name)
		}
	}

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	return g, nil
}

// DetectCycle returns a closed cycle path in prerequisite order
// (a -> b means a depends on b), or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.RevAdj[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, name := range g.Names() {
		if color[name] == white {
			if cycle := dfs(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Names returns all task names in lexical order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.Tasks))
	for name := range g.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.Tasks)
}

// Closure returns the subgraph holding the requested roots and every task
// they transitively require. Unknown root names are an error.
func (g *Graph) Closure(roots ...string) (*Graph, error) {
	seen := make(map[string]bool)
	var queue []string
	for _, r := range roots {
		if _, ok := g.Tasks[r]; !ok {
			return nil, &UnknownTaskError{Name: r}
		}
		if !seen[r] {
			seen[r] = true
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range g.RevAdj[id] {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	sub := make([]*Task, 0, len(seen))
	for _, name := range g.Names() {
		if seen[name] {
			sub = append(sub, g.Tasks[name])
		}
	}
	return Build(sub)
}
