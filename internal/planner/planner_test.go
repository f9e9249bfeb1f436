package planner

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/joshharrison/assetloom/internal/graph"
)

func buildGraph(t *testing.T, tasks ...*graph.Task) *graph.Graph {
	t.Helper()
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func tk(name string, deps ...string) *graph.Task {
	return &graph.Task{Name: name, Deps: deps}
}

func TestGenerate_LinearChain(t *testing.T) {
	g := buildGraph(t, tk("a"), tk("b", "a"), tk("c", "b"))

	plan, err := Generate(g, []string{"c"})
	if err != nil {
		t.Fatalf("generate plan: %v", err)
	}

	if plan.TotalTasks != 3 {
		t.Errorf("expected 3 total tasks, got %d", plan.TotalTasks)
	}
	if plan.TotalWaves != 3 {
		t.Errorf("expected 3 waves, got %d", plan.TotalWaves)
	}
	if !reflect.DeepEqual(plan.Order, []string{"a", "b", "c"}) {
		t.Errorf("unexpected order %v", plan.Order)
	}
	if !reflect.DeepEqual(plan.CriticalPath, []string{"a", "b", "c"}) {
		t.Errorf("expected whole chain critical, got %v", plan.CriticalPath)
	}
	if len(plan.Deps.Predecessors["b"]) != 1 || plan.Deps.Predecessors["b"][0] != "a" {
		t.Errorf("expected b predecessors=[a], got %v", plan.Deps.Predecessors["b"])
	}
	if len(plan.Deps.Successors["b"]) != 1 || plan.Deps.Successors["b"][0] != "c" {
		t.Errorf("expected b successors=[c], got %v", plan.Deps.Successors["b"])
	}
}

func TestGenerate_WavesAndSlack(t *testing.T) {
	// lint is independent; scripts and styles wait for clean.
	g := buildGraph(t,
		tk("clean"),
		tk("lint"),
		tk("scripts", "clean"),
		tk("styles", "clean"),
		tk("compile", "lint", "scripts", "styles"),
	)

	plan, err := Generate(g, []string{"compile"})
	if err != nil {
		t.Fatalf("generate plan: %v", err)
	}

	if plan.TotalWaves != 3 {
		t.Fatalf("expected 3 waves, got %d", plan.TotalWaves)
	}

	var wave0 []string
	for _, pt := range plan.Waves[0].Tasks {
		wave0 = append(wave0, pt.Name)
	}
	// critical first, then lexical
	if !reflect.DeepEqual(wave0, []string{"clean", "lint"}) {
		t.Errorf("unexpected wave 0 %v", wave0)
	}

	if plan.Tasks["lint"].IsCritical {
		t.Error("lint has slack and should not be critical")
	}
	if plan.Tasks["lint"].Slack != 1 {
		t.Errorf("expected lint slack 1, got %d", plan.Tasks["lint"].Slack)
	}
	if !plan.Tasks["compile"].IsCritical || !plan.Tasks["clean"].IsCritical {
		t.Error("clean and compile should be critical")
	}
}

func TestGenerate_OnlyClosure(t *testing.T) {
	g := buildGraph(t, tk("a"), tk("b", "a"), tk("unrelated"))

	plan, err := Generate(g, []string{"b"})
	if err != nil {
		t.Fatalf("generate plan: %v", err)
	}
	if _, ok := plan.Tasks["unrelated"]; ok {
		t.Error("unrelated task should not be planned")
	}
}

func TestGenerate_Errors(t *testing.T) {
	g := buildGraph(t, tk("a"))

	if _, err := Generate(g, nil); err == nil {
		t.Error("expected error for empty roots")
	}
	if _, err := Generate(g, []string{"missing"}); !errors.Is(err, graph.ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}

	cyclic := &graph.Graph{
		Tasks: map[string]*graph.Task{
			"a": {Name: "a", Deps: []string{"b"}},
			"b": {Name: "b", Deps: []string{"a"}},
		},
		Adj:    map[string][]string{"a": {"b"}, "b": {"a"}},
		RevAdj: map[string][]string{"a": {"b"}, "b": {"a"}},
	}
	_, err := Generate(cyclic, []string{"a"})
	var ce *graph.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *graph.CycleError, got %v", err)
	}
	if !reflect.DeepEqual(ce.Path, []string{"a", "b", "a"}) {
		t.Errorf("unexpected cycle %v", ce.Path)
	}
}

// Every task must appear after all of its prerequisites, for arbitrary DAGs.
func TestGenerate_OrderRespectsPrerequisites(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 50; iter++ {
		n := 2 + rng.Intn(12)
		tasks := make([]*graph.Task, n)
		for i := 0; i < n; i++ {
			tasks[i] = tk(fmt.Sprintf("t%02d", i))
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					tasks[i].Deps = append(tasks[i].Deps, tasks[j].Name)
				}
			}
		}
		g := buildGraph(t, tasks...)

		plan, err := Generate(g, g.Names())
		if err != nil {
			t.Fatalf("iteration %d: %v", iter, err)
		}
		for _, task := range tasks {
			pos := plan.Position(task.Name)
			for _, dep := range task.Deps {
				if plan.Position(dep) >= pos {
					t.Fatalf("iteration %d: %s placed before its prerequisite %s", iter, task.Name, dep)
				}
				if plan.Tasks[dep].WaveIndex >= plan.Tasks[task.Name].WaveIndex {
					t.Fatalf("iteration %d: %s shares or precedes the wave of %s", iter, task.Name, dep)
				}
			}
		}
	}
}
