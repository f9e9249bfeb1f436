package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshharrison/assetloom/internal/config"
	"github.com/joshharrison/assetloom/internal/graph"
	"github.com/joshharrison/assetloom/internal/pipeline"
	"github.com/joshharrison/assetloom/internal/tool"
	"github.com/joshharrison/assetloom/internal/transform"
	"github.com/joshharrison/assetloom/internal/ui"
)

// reset deletes an output tree. A missing tree is not an error.
func (b *Builder) reset(rel string) graph.Action {
	return func(ctx context.Context) error {
		root, err := filepath.Abs(b.Config.Dir)
		if err != nil {
			return err
		}
		target, err := filepath.Abs(b.Config.Abs(rel))
		if err != nil {
			return err
		}
		inside, err := filepath.Rel(root, target)
		if err != nil || inside == "." || !filepath.IsLocal(inside) {
			return fmt.Errorf("refusing to delete %s: not inside %s", target, root)
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("reset %s: %w", rel, err)
		}
		return nil
	}
}

// run reads globs from the project root and pushes the batch through
// steps, reporting skipped records to log.
func (b *Builder) run(ctx context.Context, log io.Writer, globs []string, steps ...pipeline.Step) error {
	files, err := pipeline.Src(b.Config.Dir, globs...)
	if err != nil {
		return err
	}
	p := pipeline.New(steps...)
	p.Log = log
	_, err = p.Run(ctx, files)
	return err
}

func (b *Builder) lintScripts(ctx context.Context) error {
	out := b.output(TaskLintScripts)
	defer out.Flush()
	return b.run(ctx, out, b.Config.Paths.Scripts.Input, transform.Lint(b.Linter, out))
}

func (b *Builder) buildScripts(hooks []pipeline.Step) graph.Action {
	return func(ctx context.Context) error {
		data := b.banner()
		full, err := transform.Banner(transform.FullBanner, data)
		if err != nil {
			return err
		}
		minBanner, err := transform.Banner(transform.MinBanner, data)
		if err != nil {
			return err
		}
		dest := pipeline.Dest(b.Config.Abs(b.Config.Paths.Scripts.Output))

		steps := []pipeline.Step{transform.DirConcat(".js")}
		steps = append(steps, hooks...)
		steps = append(steps,
			pipeline.Branch("full", full, dest),
			transform.Suffix(".min"),
			transform.Minify(),
			minBanner,
			dest,
		)
		out := b.output(TaskBuildScripts)
		defer out.Flush()
		return b.run(ctx, out, b.Config.Paths.Scripts.Input, steps...)
	}
}

func (b *Builder) buildStyles(ctx context.Context) error {
	m := b.Config.Paths.Styles
	out := b.output(TaskBuildStyles)
	defer out.Flush()
	return b.run(ctx, out, m.Input,
		transform.Sass(b.Compiler),
		pipeline.Dest(b.Config.Abs(m.Output)),
	)
}

func (b *Builder) copy(task string, m config.Mapping) graph.Action {
	return func(ctx context.Context) error {
		out := b.output(task)
		defer out.Flush()
		return b.run(ctx, out, m.Input, pipeline.Dest(b.Config.Abs(m.Output)))
	}
}

func (b *Builder) buildPublic(ctx context.Context) error {
	p := b.Config.Paths
	header, err := os.ReadFile(filepath.Join(b.Config.Abs(p.Templates), "_header.html"))
	if err != nil {
		return fmt.Errorf("read header template: %w", err)
	}
	footer, err := os.ReadFile(filepath.Join(b.Config.Abs(p.Templates), "_footer.html"))
	if err != nil {
		return fmt.Errorf("read footer template: %w", err)
	}

	out := b.output(TaskBuildPublic)
	defer out.Flush()
	return b.run(ctx, out, p.Docs.Input,
		transform.Include(),
		transform.Markdown(),
		transform.Header(string(header)),
		transform.Footer(string(footer)),
		pipeline.Dest(b.Config.Abs(p.Docs.Output)),
	)
}

func (b *Builder) copyDist(ctx context.Context) error {
	p := b.Config.Paths
	glob := strings.TrimSuffix(filepath.ToSlash(p.Dist), "/") + "/**"
	out := b.output(TaskCopyDist)
	defer out.Flush()
	return b.run(ctx, out, []string{glob}, pipeline.Dest(filepath.Join(b.Config.Abs(p.Public), "dist")))
}

// docsOnly runs action only when the documentation site is enabled.
func (b *Builder) docsOnly(task string, action graph.Action) graph.Action {
	return func(ctx context.Context) error {
		if !b.Config.Docs.Enabled {
			out := b.output(task)
			fmt.Fprintln(out, ui.Dim("docs disabled, nothing to do"))
			return nil
		}
		return action(ctx)
	}
}

func (b *Builder) shell(task, command string) graph.Action {
	return func(ctx context.Context) error {
		out := b.output(task)
		defer out.Flush()
		return tool.Shell(ctx, b.Config.Dir, command, out, out)
	}
}
