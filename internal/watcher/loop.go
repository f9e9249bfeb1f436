package watcher

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule maps source patterns to the tasks rebuilt when they change.
type Rule struct {
	Patterns []string // doublestar globs relative to the loop root
	Tasks    []string
}

// Phase is the position of the loop in its state machine.
type Phase int

const (
	Idle Phase = iota
	ChangeDetected
	Rebuilding
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ChangeDetected:
		return "change-detected"
	case Rebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// RebuildFunc runs tasks and returns an identifier for the build.
type RebuildFunc func(ctx context.Context, tasks []string) (buildID string, err error)

// NotifyFunc is called after every successful rebuild with the last
// changed path, relative to the loop root.
type NotifyFunc func(path, buildID string)

// Loop debounces change events and reruns the matching tasks.
//
// Changes arriving during a quiet window are coalesced into one rebuild.
// Changes arriving while a rebuild runs set a single pending rebuild that
// starts, after another quiet window, once the current one returns. Rebuilds
// never overlap and are never cancelled. Listeners are notified only after
// a successful rebuild.
type Loop struct {
	Root     string
	Rules    []Rule
	Debounce time.Duration
	Rebuild  RebuildFunc
	Notify   NotifyFunc
	Log      *log.Logger

	mu    sync.Mutex
	phase Phase
}

type rebuildResult struct {
	path string
	id   string
	err  error
}

// Phase returns the current state.
func (l *Loop) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

func (l *Loop) setPhase(p Phase) {
	l.mu.Lock()
	l.phase = p
	l.mu.Unlock()
}

func (l *Loop) logf(format string, args ...any) {
	if l.Log != nil {
		l.Log.Printf(format, args...)
	}
}

// Run consumes events until ctx is cancelled or events is closed. An
// in-flight rebuild is allowed to finish before Run returns.
func (l *Loop) Run(ctx context.Context, events <-chan Event) error {
	var (
		pending     []string
		pendingSeen = make(map[string]bool)
		lastPath    string
		building    bool
		timer       *time.Timer
		timerC      <-chan time.Time
	)
	done := make(chan rebuildResult, 1)

	arm := func() {
		if timer == nil {
			timer = time.NewTimer(l.Debounce)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(l.Debounce)
		}
		timerC = timer.C
	}

	start := func() {
		tasks, path := pending, lastPath
		pending, pendingSeen = nil, make(map[string]bool)
		building = true
		l.setPhase(Rebuilding)
		l.logf("rebuilding %v (%s changed)", tasks, path)

		go func() {
			id, err := l.Rebuild(context.WithoutCancel(ctx), tasks)
			done <- rebuildResult{path: path, id: id, err: err}
		}()
	}

	finish := func(res rebuildResult) {
		building = false
		if res.err != nil {
			l.logf("rebuild failed: %v", res.err)
		} else if l.Notify != nil {
			l.Notify(res.path, res.id)
		}
		if len(pending) > 0 {
			l.setPhase(ChangeDetected)
			arm()
			return
		}
		l.setPhase(Idle)
	}

	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		if len(pending) > 0 {
			l.logf("stopping: dropped pending rebuild of %v", pending)
			pending = nil
		}
		if building {
			finish(<-done)
		}
		l.setPhase(Idle)
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case ev, ok := <-events:
			if !ok {
				stop()
				return nil
			}
			rel, tasks := l.match(ev.Path)
			if len(tasks) == 0 {
				continue
			}
			for _, t := range tasks {
				if !pendingSeen[t] {
					pendingSeen[t] = true
					pending = append(pending, t)
				}
			}
			lastPath = rel
			if !building {
				l.setPhase(ChangeDetected)
				arm()
			}

		case <-timerC:
			timerC = nil
			if !building && len(pending) > 0 {
				start()
			}

		case res := <-done:
			finish(res)
		}
	}
}

// match returns path relative to the root and the tasks of every rule
// matching it, in rule order.
func (l *Loop) match(path string) (string, []string) {
	rel := path
	if l.Root != "" {
		if r, err := filepath.Rel(l.Root, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	var tasks []string
	for _, rule := range l.Rules {
		for _, pattern := range rule.Patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				tasks = append(tasks, rule.Tasks...)
				break
			}
		}
	}
	return rel, tasks
}
