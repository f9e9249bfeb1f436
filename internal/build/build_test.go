package build

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/joshharrison/assetloom/internal/config"
	"github.com/joshharrison/assetloom/internal/graph"
	"github.com/joshharrison/assetloom/internal/manifest"
	"github.com/joshharrison/assetloom/internal/runner"
	"github.com/joshharrison/assetloom/internal/state"
	"github.com/joshharrison/assetloom/internal/transform"
)

type fakeCompiler struct{}

func (fakeCompiler) Compile(ctx context.Context, path string) ([]byte, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if bytes.Contains(data, []byte("{{")) {
		return nil, nil, errors.New(`expected "}"`)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".css"
	css := append(data, []byte("\n/*# sourceMappingURL="+name+".map */")...)
	return css, []byte(`{"version":3,"file":"` + name + `"}`), nil
}

type fakeLinter struct{}

func (fakeLinter) Lint(ctx context.Context, path string) ([]transform.Diagnostic, error) {
	return nil, nil
}

var fixture = map[string]string{
	"src/js/a.js":                        "var greeting = 'hello';\n",
	"src/js/lib/one.js":                  "var one = 1;",
	"src/js/lib/two.js":                  "var two = 2;",
	"src/sass/main.scss":                 "body { color: red; }",
	"src/sass/_vars.scss":                "$red: red;",
	"src/img/x.png":                      "\x89PNG",
	"src/svg/icon.svg":                   "<svg></svg>",
	"src/static/robots.txt":              "User-agent: *",
	"src/public/index.md":                "# Docs\n\n@@include('_templates/intro.html')\n",
	"src/public/_templates/intro.html":   "<p>intro</p>",
	"src/public/_templates/_header.html": "<html><body>\n",
	"src/public/_templates/_footer.html": "</body></html>\n",
	"src/public/assets/site.css":         "main{}",
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newBuilder(t *testing.T, dir string) *Builder {
	t.Helper()
	cfg := config.Default()
	cfg.Dir = dir
	return &Builder{
		Config:   cfg,
		Package:  manifest.Package{Name: "kit", Version: "1.0.0", Description: "Starter", Author: "Jane Doe", License: "MIT", Repository: "https://example.com/kit"},
		Compiler: fakeCompiler{},
		Linter:   fakeLinter{},
		Out:      io.Discard,
		Now:      func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func runTasks(t *testing.T, b *Builder, roots ...string) (*state.RunState, error) {
	t.Helper()
	g, err := b.Graph()
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	return runner.New(g, runner.Config{Out: io.Discard}).Run(context.Background(), roots...)
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// snapshot maps every file below root to its contents.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		data, err := os.ReadFile(p)
		out[filepath.ToSlash(rel)] = string(data)
		return err
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

func TestDefault_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	b := newBuilder(t, dir)

	if _, err := runTasks(t, b, TaskDefault); err != nil {
		t.Fatalf("run: %v", err)
	}

	full := read(t, filepath.Join(dir, "dist/js/a.js"))
	wantFull := "/*!\n * kit v1.0.0: Starter\n * (c) 2024 Jane Doe\n * MIT License\n * https://example.com/kit\n */\n\n" + fixture["src/js/a.js"]
	if full != wantFull {
		t.Errorf("unexpected dist/js/a.js:\n%s", full)
	}

	min := read(t, filepath.Join(dir, "dist/js/a.min.js"))
	if !strings.HasPrefix(min, "/*! kit v1.0.0 | (c) 2024 Jane Doe | MIT License | https://example.com/kit */\n") {
		t.Errorf("unexpected min banner:\n%s", min)
	}
	if strings.Contains(min, "'hello';\n") {
		t.Errorf("expected minified body:\n%s", min)
	}

	if got := read(t, filepath.Join(dir, "dist/js/lib.js")); !strings.HasSuffix(got, "var one = 1;\nvar two = 2;") {
		t.Errorf("unexpected concatenated lib.js:\n%s", got)
	}

	for _, rel := range []string{
		"dist/js/lib.min.js",
		"dist/css/main.css",
		"dist/css/main.css.map",
		"dist/img/x.png",
		"dist/svg/icon.svg",
		"dist/robots.txt",
		"public/dist/js/a.min.js",
		"public/dist/css/main.css",
		"public/assets/site.css",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dist/css/_vars.css")); !os.IsNotExist(err) {
		t.Error("partials must not be compiled")
	}

	page := read(t, filepath.Join(dir, "public/index.html"))
	if page != "<html><body>\n<h1>Docs</h1>\n<p>intro</p>\n</body></html>\n" {
		t.Errorf("unexpected public/index.html:\n%q", page)
	}
}

func TestCompile_NoArtifactsForEmptyOrHiddenSources(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	writeTree(t, dir, map[string]string{
		"src/js/empty/readme.txt": "no scripts",
		"src/js/.hidden.js":       "var hidden;",
		"src/img/.DS_Store":       "junk",
	})
	b := newBuilder(t, dir)

	if _, err := runTasks(t, b, TaskDefault); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, rel := range []string{
		"dist/js/empty.js",
		"dist/js/empty.min.js",
		"dist/js/.hidden.js",
		"dist/js/.hidden.min.js",
		"dist/img/.DS_Store",
		"public/dist/img/.DS_Store",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); !os.IsNotExist(err) {
			t.Errorf("%s should not be written (stat err %v)", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dist/js/lib.min.js")); err != nil {
		t.Errorf("expected lib.min.js: %v", err)
	}
}

func TestDefault_RebuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	b := newBuilder(t, dir)

	if _, err := runTasks(t, b, TaskDefault); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := snapshot(t, filepath.Join(dir, "dist"))

	writeTree(t, dir, map[string]string{"dist/stale.txt": "left over"})
	if _, err := runTasks(t, b, TaskDefault); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := snapshot(t, filepath.Join(dir, "dist"))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rebuild changed the output:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestMalformedStyleFailsOnlyStyles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	writeTree(t, dir, map[string]string{"src/sass/main.scss": "body {{ color: red; }"})
	b := newBuilder(t, dir)

	st, err := runTasks(t, b, TaskCompile)
	var re *runner.RunError
	if !errors.As(err, &re) {
		t.Fatalf("expected RunError, got %v", err)
	}
	if len(re.Failed) != 1 || re.Failed[TaskBuildStyles] == nil {
		t.Errorf("expected only build:styles to fail, got %v", re.Failed)
	}

	for _, name := range []string{TaskCopyImages, TaskCopySvgs, TaskBuildScripts, TaskLintScripts} {
		if got := st.Get(name).Status; got != state.StatusCompleted {
			t.Errorf("%s: expected completed, got %s", name, got)
		}
	}
	if ts := st.Get(TaskCompile); ts.Status != state.StatusSkipped || ts.SkippedFor != TaskBuildStyles {
		t.Errorf("expected compile skipped for build:styles, got %+v", ts)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist/img/x.png")); err != nil {
		t.Errorf("images should still be copied: %v", err)
	}
}

func TestDocsDisabled(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	b := newBuilder(t, dir)
	b.Config.Docs.Enabled = false

	if _, err := runTasks(t, b, TaskDefault); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "public/index.html")); !os.IsNotExist(err) {
		t.Error("docs should not be generated when disabled")
	}
}

func TestMissingTemplateFailsBuildPublic(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	os.Remove(filepath.Join(dir, "src/public/_templates/_footer.html"))
	b := newBuilder(t, dir)

	st, err := runTasks(t, b, TaskDefault)
	if err == nil {
		t.Fatal("expected failure")
	}
	if st.Get(TaskBuildPublic).Status != state.StatusFailed {
		t.Errorf("expected build:public failed, got %s", st.Get(TaskBuildPublic).Status)
	}
	if st.Get(TaskCopyAssets).Status != state.StatusCompleted {
		t.Error("copy:assets does not depend on build:public and should complete")
	}
}

func TestReset(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"dist/js/a.js": "a"})
	b := newBuilder(t, dir)
	ctx := context.Background()

	if err := b.reset("dist")(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Error("expected dist removed")
	}
	if err := b.reset("dist")(ctx); err != nil {
		t.Errorf("resetting a missing tree should succeed: %v", err)
	}

	for _, bad := range []string{".", "..", "../sibling"} {
		if err := b.reset(bad)(ctx); err == nil {
			t.Errorf("expected refusal for %q", bad)
		}
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("project root must survive: %v", err)
	}
}

func TestUserTasksAndHooks(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, fixture)
	writeTree(t, dir, map[string]string{
		"hooks/greet.lua": `function transform(path, contents) return (string.gsub(contents, "hello", "howdy")) end`,
	})
	b := newBuilder(t, dir)
	b.Config.Scripts.Hooks = []string{"hooks/greet.lua"}
	b.Config.Tasks = map[string]config.UserTask{
		"stamp":   {Desc: "Write a stamp", Deps: []string{TaskCompile}, Cmd: "echo built > dist/stamp.txt"},
		"release": {Deps: []string{"stamp"}},
	}

	if _, err := runTasks(t, b, "release"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(read(t, filepath.Join(dir, "dist/stamp.txt"))); got != "built" {
		t.Errorf("unexpected stamp %q", got)
	}
	if got := read(t, filepath.Join(dir, "dist/js/a.js")); !strings.HasSuffix(got, "*/\n\nvar greeting = 'howdy';\n") {
		t.Errorf("expected hook applied before the banner:\n%s", got)
	}
}

func TestTasks_Registry(t *testing.T) {
	b := newBuilder(t, t.TempDir())
	g, err := b.Graph()
	if err != nil {
		t.Fatalf("graph: %v", err)
	}

	want := map[string][]string{
		TaskBuildScripts: {TaskCleanDist},
		TaskBuildStyles:  {TaskCleanDist},
		TaskCopyImages:   {TaskCleanDist},
		TaskBuildPublic:  {TaskCleanPublic, TaskCompile},
		TaskCopyDist:     {TaskCleanPublic, TaskCompile},
		TaskDefault:      {TaskCompile, TaskPublic},
	}
	for name, deps := range want {
		if got := g.RevAdj[name]; !reflect.DeepEqual(got, deps) {
			t.Errorf("%s: deps %v, want %v", name, got, deps)
		}
	}
	if g.TaskCount() != 14 {
		t.Errorf("expected 14 built-in tasks, got %d", g.TaskCount())
	}
}

func TestTasks_UserCycleRejected(t *testing.T) {
	b := newBuilder(t, t.TempDir())
	b.Config.Tasks = map[string]config.UserTask{
		"a": {Deps: []string{"b"}, Cmd: "true"},
		"b": {Deps: []string{"a"}, Cmd: "true"},
	}
	if _, err := b.Graph(); !errors.Is(err, graph.ErrCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestTasks_MissingHook(t *testing.T) {
	b := newBuilder(t, t.TempDir())
	b.Config.Scripts.Hooks = []string{"hooks/missing.lua"}
	if _, err := b.Tasks(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing hook error, got %v", err)
	}
}

func TestNew_ReadsManifest(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"package.json": `{"name":"kit","version":"3.1.0","author":{"name":"Jane"}}`})
	cfg := config.Default()
	cfg.Dir = dir

	b, err := New(cfg, io.Discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Package.Version != "3.1.0" || b.Package.Author != "Jane" {
		t.Errorf("unexpected package %+v", b.Package)
	}
	if b.Compiler == nil || b.Linter == nil || b.Now == nil {
		t.Error("expected default collaborators")
	}
}
