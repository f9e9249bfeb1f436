package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joshharrison/assetloom/internal/planner"
	"github.com/joshharrison/assetloom/internal/state"
	"github.com/joshharrison/assetloom/internal/ui"
)

// Reporter renders plans and run outcomes.
type Reporter struct {
	Plan  *planner.Plan
	State *state.RunState
}

// New creates a new Reporter. Either argument may be nil when only the
// other is rendered.
func New(plan *planner.Plan, st *state.RunState) *Reporter {
	return &Reporter{Plan: plan, State: st}
}

// Summary returns the end-of-run summary: totals, then each failed task
// with its error and each skipped task with the upstream failure.
func (r *Reporter) Summary() string {
	var b strings.Builder
	st := r.State

	completed := st.WithStatus(state.StatusCompleted)
	failed := st.WithStatus(state.StatusFailed)
	skipped := st.WithStatus(state.StatusSkipped)

	statusText := ui.BoldGreen("completed")
	statusEmoji := "✅"
	if st.Status == "failed" {
		statusText = ui.BoldRed("failed")
		statusEmoji = "❌"
	}

	fmt.Fprintf(&b, "\n%s %s\n", statusEmoji, ui.BoldCyan("Build Summary"))
	fmt.Fprintf(&b, "%s\n", ui.Cyan("═════════════════"))
	fmt.Fprintf(&b, "Run:       %s\n", ui.Dim(st.RunID))
	fmt.Fprintf(&b, "Tasks:     %s\n", strings.Join(st.Roots, ", "))
	fmt.Fprintf(&b, "Duration:  %s\n", ui.Bold(st.Duration().Round(time.Millisecond)))
	fmt.Fprintf(&b, "Results:   %s, %s, %s, %d total\n",
		ui.Green(fmt.Sprintf("%d completed", len(completed))),
		ui.Red(fmt.Sprintf("%d failed", len(failed))),
		ui.Yellow(fmt.Sprintf("%d skipped", len(skipped))),
		len(st.Tasks))
	fmt.Fprintf(&b, "Status:    %s\n", statusText)

	if len(failed) > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.BoldRed("Failed tasks:"))
		for _, name := range failed {
			ts := st.Get(name)
			fmt.Fprintf(&b, "  %s %s  %s\n", ui.Red("✗"), ui.TaskPrefix(name), ts.Error)
		}
	}

	if len(skipped) > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.BoldYellow("Not run due to upstream failure:"))
		for _, name := range skipped {
			ts := st.Get(name)
			reason := "unreachable"
			if ts.SkippedFor != "" {
				reason = "needs " + ts.SkippedFor
			}
			fmt.Fprintf(&b, "  %s %s  %s\n", ui.Yellow("⊘"), ui.TaskPrefix(name), ui.Dim("("+reason+")"))
		}
	}

	return b.String()
}

// JSON returns machine-readable run results.
func (r *Reporter) JSON() ([]byte, error) {
	type taskStatus struct {
		Name       string  `json:"name"`
		Status     string  `json:"status"`
		Seconds    float64 `json:"seconds,omitempty"`
		Error      string  `json:"error,omitempty"`
		SkippedFor string  `json:"skipped_for,omitempty"`
	}

	type output struct {
		RunID   string       `json:"run_id"`
		Roots   []string     `json:"roots"`
		Status  string       `json:"status"`
		Elapsed string       `json:"elapsed"`
		Tasks   []taskStatus `json:"tasks"`
	}

	o := output{
		RunID:   r.State.RunID,
		Roots:   r.State.Roots,
		Status:  r.State.Status,
		Elapsed: r.State.Duration().Round(time.Millisecond).String(),
	}

	names := r.State.Names()
	if r.Plan != nil {
		names = r.Plan.Order
	}
	for _, name := range names {
		ts := r.State.Get(name)
		if ts == nil {
			continue
		}
		entry := taskStatus{
			Name:       name,
			Status:     string(ts.Status),
			Error:      ts.Error,
			SkippedFor: ts.SkippedFor,
		}
		if ts.StartedAt != nil && ts.FinishedAt != nil {
			entry.Seconds = ts.FinishedAt.Sub(*ts.StartedAt).Seconds()
		}
		o.Tasks = append(o.Tasks, entry)
	}

	return json.Marshal(o)
}

// PrintPlan writes the resolved plan: waves of concurrently runnable tasks
// and the longest prerequisite chain.
func (r *Reporter) PrintPlan(w io.Writer) {
	p := r.Plan

	maxWaveWidth := 0
	for _, wave := range p.Waves {
		if len(wave.Tasks) > maxWaveWidth {
			maxWaveWidth = len(wave.Tasks)
		}
	}

	fmt.Fprintf(w, "🎯 %s\n", ui.BoldCyan("Execution Plan"))
	fmt.Fprintln(w, ui.Cyan("══════════════════"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Requested: %s\n", ui.Bold(strings.Join(p.Roots, ", ")))
	fmt.Fprintf(w, "Tasks:     %s\n", ui.Bold(p.TotalTasks))
	fmt.Fprintf(w, "⚡ Longest chain: %s (%d steps)\n",
		ui.BoldYellow(strings.Join(p.CriticalPath, " → ")), p.TotalWaves)
	fmt.Fprintf(w, "Waves:     %s (%d tasks in widest wave)\n", ui.Bold(p.TotalWaves), maxWaveWidth)
	fmt.Fprintln(w)

	for _, wave := range p.Waves {
		depStr := ui.Dim("independent")
		if wave.Index > 0 {
			depStr = ui.Dim(fmt.Sprintf("after wave %d", wave.Index))
		}
		fmt.Fprintf(w, "🌊 %s %d (%d tasks, %s):\n", ui.BoldWhite("Wave"), wave.Index+1, len(wave.Tasks), depStr)
		for _, t := range wave.Tasks {
			crit := ""
			if t.IsCritical {
				crit = "  " + ui.BoldYellow("⚡")
			}
			desc := t.Desc
			if t.Group {
				desc = ui.Dim("group")
			}
			fmt.Fprintf(w, "  %s  %s%s\n", ui.TaskPrefix(t.Name), desc, crit)
		}
		fmt.Fprintln(w)
	}
}

// PrintDOT writes the plan as a Graphviz digraph, edges pointing from a
// prerequisite to the task that needs it.
func (r *Reporter) PrintDOT(w io.Writer) {
	p := r.Plan
	fmt.Fprintln(w, "digraph assetloom {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, id := range p.Order {
		t := p.Tasks[id]
		attrs := fmt.Sprintf("label=%q", id)
		if t.Group {
			attrs += ", shape=ellipse"
		}
		if t.IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(w, "  %q [%s];\n", id, attrs)
	}

	fmt.Fprintln(w)

	for _, from := range p.Order {
		for _, to := range p.Deps.Successors[from] {
			style := ""
			if p.Tasks[from].IsCritical && p.Tasks[to].IsCritical {
				style = " [color=red, penwidth=2]"
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", from, to, style)
		}
	}

	fmt.Fprintln(w, "}")
}
