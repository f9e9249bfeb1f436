package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joshharrison/assetloom/internal/ui"
)

// Kind classifies how a step relates its output batch to its input batch.
type Kind int

const (
	PassThrough Kind = iota // records unchanged in count and identity (lint, write)
	Transform               // one record in, one record out with new content or path
	FanOut                  // one record in, several out
	FanIn                   // several records in, one out
)

func (k Kind) String() string {
	switch k {
	case PassThrough:
		return "pass-through"
	case Transform:
		return "transform"
	case FanOut:
		return "fan-out"
	case FanIn:
		return "fan-in"
	default:
		return "unknown"
	}
}

// Policy decides what a per-file step does when one record fails.
type Policy int

const (
	// Abort fails the whole batch, and with it the enclosing task.
	Abort Policy = iota
	// Skip reports the record, drops it, and continues with the rest.
	Skip
)

// Step is a single transform over a batch of records.
type Step interface {
	Name() string
	Kind() Kind
	Apply(ctx context.Context, files []File) ([]File, error)
}

// BatchFunc transforms a whole batch.
type BatchFunc func(ctx context.Context, files []File) ([]File, error)

type batchStep struct {
	name string
	kind Kind
	fn   BatchFunc
}

// Func wraps a batch function as a Step.
func Func(name string, kind Kind, fn BatchFunc) Step {
	return &batchStep{name: name, kind: kind, fn: fn}
}

func (s *batchStep) Name() string { return s.name }
func (s *batchStep) Kind() Kind   { return s.kind }

func (s *batchStep) Apply(ctx context.Context, files []File) ([]File, error) {
	return s.fn(ctx, files)
}

// MapFunc transforms one record into zero or more records.
type MapFunc func(ctx context.Context, f File) ([]File, error)

type mapStep struct {
	name   string
	kind   Kind
	policy Policy
	fn     MapFunc
}

// Map builds a per-file Step. Output order follows input order.
func Map(name string, kind Kind, policy Policy, fn MapFunc) Step {
	return &mapStep{name: name, kind: kind, policy: policy, fn: fn}
}

func (s *mapStep) Name() string { return s.name }
func (s *mapStep) Kind() Kind   { return s.kind }

func (s *mapStep) Apply(ctx context.Context, files []File) ([]File, error) {
	out := make([]File, 0, len(files))
	var skipped []*FileError
	for _, f := range files {
		res, err := s.fn(ctx, f)
		if err != nil {
			fe := &FileError{Step: s.name, Path: f.Rel, Err: err}
			if s.policy == Abort {
				return nil, fe
			}
			skipped = append(skipped, fe)
			continue
		}
		out = append(out, res...)
	}
	if len(skipped) > 0 {
		return out, &SkipError{Skipped: skipped}
	}
	return out, nil
}

// Pipeline is an ordered composition of steps. It holds no state between
// runs; each Run processes an independent batch.
type Pipeline struct {
	Steps []Step
	Log   io.Writer // where skipped records are reported; nil discards
}

// New creates a Pipeline from steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{Steps: steps}
}

// Run applies every step in order, feeding each step's output to the next.
func (p *Pipeline) Run(ctx context.Context, files []File) ([]File, error) {
	return runSteps(ctx, p.Steps, files, p.report)
}

func (p *Pipeline) report(fe *FileError) {
	if p.Log == nil {
		return
	}
	fmt.Fprintf(p.Log, "  %s %s\n", ui.Yellow("⚠️  skipped"), fe.Error())
}

func runSteps(ctx context.Context, steps []Step, files []File, onSkip func(*FileError)) ([]File, error) {
	batch := files
	for _, step := range steps {
		out, err := step.Apply(ctx, batch)
		if err != nil {
			var se *SkipError
			if !errors.As(err, &se) {
				var fe *FileError
				if errors.As(err, &fe) {
					return nil, err
				}
				return nil, fmt.Errorf("%s: %w", step.Name(), err)
			}
			for _, fe := range se.Skipped {
				onSkip(fe)
			}
		}
		batch = out
	}
	return batch, nil
}

type branchStep struct {
	name  string
	steps []Step
}

// Branch runs steps on a copy of the batch for their side effects and
// passes the original batch on unchanged. Records skipped inside the branch
// are surfaced as a SkipError.
func Branch(name string, steps ...Step) Step {
	return &branchStep{name: name, steps: steps}
}

func (s *branchStep) Name() string { return s.name }
func (s *branchStep) Kind() Kind   { return PassThrough }

func (s *branchStep) Apply(ctx context.Context, files []File) ([]File, error) {
	var skipped []*FileError
	_, err := runSteps(ctx, s.steps, cloneAll(files), func(fe *FileError) {
		skipped = append(skipped, fe)
	})
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return files, &SkipError{Skipped: skipped}
	}
	return files, nil
}
