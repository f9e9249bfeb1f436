package planner

import "time"

// TaskDeps holds per-task predecessor and successor lists for dependency tracking.
type TaskDeps struct {
	Predecessors map[string][]string `json:"predecessors"`
	Successors   map[string][]string `json:"successors"`
}

// Plan is the resolved execution order for one set of requested tasks.
type Plan struct {
	CreatedAt    time.Time               `json:"created_at"`
	Roots        []string                `json:"roots"`
	TotalTasks   int                     `json:"total_tasks"`
	TotalWaves   int                     `json:"total_waves"`
	Order        []string                `json:"order"`
	CriticalPath []string                `json:"critical_path"`
	Waves        []Wave                  `json:"waves"`
	Tasks        map[string]*PlannedTask `json:"tasks"`
	Deps         TaskDeps                `json:"deps"`
}

// Wave is a group of tasks whose prerequisites all sit in earlier waves.
// Tasks within a wave may run concurrently.
type Wave struct {
	Index int           `json:"index"`
	Tasks []PlannedTask `json:"tasks"`
}

// PlannedTask is a single task placed in the plan.
type PlannedTask struct {
	Name       string `json:"name"`
	Desc       string `json:"desc,omitempty"`
	Group      bool   `json:"group,omitempty"` // no action of its own
	IsCritical bool   `json:"is_critical"`
	WaveIndex  int    `json:"wave_index"`
	Slack      int    `json:"slack"`
}
