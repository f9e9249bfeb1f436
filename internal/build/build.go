// Package build defines the asset task set: scripts, styles, images,
// svgs, static files and the documentation site, plus any tasks declared
// in the project file.
package build

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/joshharrison/assetloom/internal/config"
	"github.com/joshharrison/assetloom/internal/graph"
	"github.com/joshharrison/assetloom/internal/manifest"
	"github.com/joshharrison/assetloom/internal/pipeline"
	"github.com/joshharrison/assetloom/internal/tool"
	"github.com/joshharrison/assetloom/internal/transform"
	"github.com/joshharrison/assetloom/internal/ui"
)

// Built-in task names.
const (
	TaskCleanDist    = "clean:dist"
	TaskLintScripts  = "lint:scripts"
	TaskBuildScripts = "build:scripts"
	TaskBuildStyles  = "build:styles"
	TaskCopyImages   = "copy:images"
	TaskCopySvgs     = "copy:svgs"
	TaskCopyStatic   = "copy:static"
	TaskCompile      = "compile"
	TaskCleanPublic  = "clean:public"
	TaskBuildPublic  = "build:public"
	TaskCopyDist     = "copy:dist"
	TaskCopyAssets   = "copy:assets"
	TaskPublic       = "public"
	TaskDefault      = "default"
)

// Builder turns a project config into the task graph.
type Builder struct {
	Config   *config.Config
	Package  manifest.Package
	Compiler transform.Compiler
	Linter   transform.Linter
	Out      io.Writer
	Now      func() time.Time

	mu sync.Mutex // shared by task output writers
}

// New creates a Builder for cfg, reading the project manifest and using
// the sass and jshint binaries named in the config.
func New(cfg *config.Config, out io.Writer) (*Builder, error) {
	pkg, err := manifest.Load(cfg.Abs(cfg.Manifest))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}

	sass := tool.NewSass(cfg.Styles.Compiler, absAll(cfg, cfg.Styles.LoadPaths))
	sass.Style = cfg.Styles.Style
	sass.Dir = cfg.Dir

	lint := tool.NewJSHint(cfg.Scripts.Linter, cfg.Scripts.LinterConfig)
	lint.Dir = cfg.Dir

	return &Builder{
		Config:   cfg,
		Package:  pkg,
		Compiler: sass,
		Linter:   lint,
		Out:      out,
		Now:      time.Now,
	}, nil
}

// Graph builds and validates the task graph.
func (b *Builder) Graph() (*graph.Graph, error) {
	tasks, err := b.Tasks()
	if err != nil {
		return nil, err
	}
	return graph.Build(tasks)
}

// Tasks returns the built-in tasks followed by the user tasks in name order.
func (b *Builder) Tasks() ([]*graph.Task, error) {
	hooks, err := b.scriptHooks()
	if err != nil {
		return nil, err
	}

	p := b.Config.Paths
	tasks := []*graph.Task{
		{Name: TaskCleanDist, Desc: "Remove " + p.Dist, Action: b.reset(p.Dist)},
		{Name: TaskLintScripts, Desc: "Lint scripts", Action: b.lintScripts},
		{Name: TaskBuildScripts, Desc: "Concatenate, banner and minify scripts", Deps: []string{TaskCleanDist}, Action: b.buildScripts(hooks)},
		{Name: TaskBuildStyles, Desc: "Compile Sass with source maps", Deps: []string{TaskCleanDist}, Action: b.buildStyles},
		{Name: TaskCopyImages, Desc: "Copy images", Deps: []string{TaskCleanDist}, Action: b.copy(TaskCopyImages, p.Images)},
		{Name: TaskCopySvgs, Desc: "Copy svgs", Deps: []string{TaskCleanDist}, Action: b.copy(TaskCopySvgs, p.Svgs)},
		{Name: TaskCopyStatic, Desc: "Copy static files", Deps: []string{TaskCleanDist}, Action: b.copy(TaskCopyStatic, p.Static)},
		{Name: TaskCompile, Desc: "Build everything into " + p.Dist, Deps: []string{
			TaskLintScripts, TaskCleanDist, TaskBuildScripts, TaskBuildStyles,
			TaskCopyImages, TaskCopySvgs, TaskCopyStatic,
		}},
		{Name: TaskCleanPublic, Desc: "Remove " + p.Public, Action: b.reset(p.Public)},
		{Name: TaskBuildPublic, Desc: "Generate documentation pages", Deps: []string{TaskCompile, TaskCleanPublic}, Action: b.docsOnly(TaskBuildPublic, b.buildPublic)},
		{Name: TaskCopyDist, Desc: "Copy the build into the docs", Deps: []string{TaskCompile, TaskCleanPublic}, Action: b.docsOnly(TaskCopyDist, b.copyDist)},
		{Name: TaskCopyAssets, Desc: "Copy documentation assets", Deps: []string{TaskCleanPublic}, Action: b.docsOnly(TaskCopyAssets, b.copy(TaskCopyAssets, p.Assets))},
		{Name: TaskPublic, Desc: "Build the documentation site", Deps: []string{TaskCleanPublic, TaskBuildPublic, TaskCopyDist, TaskCopyAssets}},
		{Name: TaskDefault, Desc: "Compile and generate the documentation site", Deps: []string{TaskCompile, TaskPublic}},
	}

	names := make([]string, 0, len(b.Config.Tasks))
	for name := range b.Config.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ut := b.Config.Tasks[name]
		t := &graph.Task{Name: name, Desc: ut.Desc, Deps: ut.Deps}
		if ut.Cmd != "" {
			t.Action = b.shell(name, ut.Cmd)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// banner returns the provenance data, dated by the builder clock.
func (b *Builder) banner() transform.BannerData {
	return transform.BannerData{
		Name:        b.Package.Name,
		Version:     b.Package.Version,
		Description: b.Package.Description,
		Author:      b.Package.Author,
		License:     b.Package.License,
		Repository:  b.Package.Repository,
		Year:        b.Now().Year(),
	}
}

func (b *Builder) scriptHooks() ([]pipeline.Step, error) {
	var steps []pipeline.Step
	for _, path := range b.Config.Scripts.Hooks {
		data, err := os.ReadFile(b.Config.Abs(path))
		if err != nil {
			return nil, fmt.Errorf("load script hook: %w", err)
		}
		step, err := transform.LuaHook(path, string(data))
		if err != nil {
			return nil, fmt.Errorf("load script hook: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// output returns a writer that prefixes every line with the task name.
func (b *Builder) output(task string) *ui.PrefixWriter {
	return ui.NewPrefixWriter(task, b.Out, &b.mu)
}

func absAll(cfg *config.Config, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = cfg.Abs(p)
	}
	return out
}
