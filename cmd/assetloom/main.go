package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joshharrison/assetloom/internal/build"
	"github.com/joshharrison/assetloom/internal/config"
	"github.com/joshharrison/assetloom/internal/graph"
	"github.com/joshharrison/assetloom/internal/livereload"
	"github.com/joshharrison/assetloom/internal/planner"
	"github.com/joshharrison/assetloom/internal/reporter"
	"github.com/joshharrison/assetloom/internal/runner"
	"github.com/joshharrison/assetloom/internal/state"
	"github.com/joshharrison/assetloom/internal/ui"
	"github.com/joshharrison/assetloom/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var version = "dev"

var (
	flagConfig      string
	flagDir         string
	flagMaxParallel int
	flagJSON        bool
	flagNoColor     bool
	flagQuiet       bool
)

func main() {
	os.Exit(exitCode(newRootCmd(), os.Args[1:]))
}

// exitCode runs cmd with args and maps the outcome to the process exit
// status: 0 when every requested task succeeded, 1 otherwise.
func exitCode(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "assetloom [task...]",
		Short: "Build front-end assets from an explicit task graph",
		Long: `assetloom lints, concatenates and minifies scripts, compiles Sass, copies
images and static files and generates a documentation site. Each step is a
task; tasks run concurrently once their prerequisites have succeeded.

With no task names the "default" task is run.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				ui.SetColor(false)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Project file (default: assetloom.yaml, .yml or .toml in --dir)")
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().IntVar(&flagMaxParallel, "max-parallel", 0, "Max concurrently running tasks (default from config, else 8)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only print the summary")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(tasksCmd())
	return rootCmd
}

// project is the loaded configuration and the task graph built from it.
type project struct {
	cfg     *config.Config
	builder *build.Builder
	graph   *graph.Graph
}

func loadProject() (*project, error) {
	dir, err := filepath.Abs(flagDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir, flagConfig)
	if err != nil {
		return nil, err
	}
	if flagMaxParallel > 0 {
		cfg.MaxParallel = flagMaxParallel
	}

	var out io.Writer = os.Stderr
	if flagQuiet {
		out = io.Discard
	}
	b, err := build.New(cfg, out)
	if err != nil {
		return nil, err
	}
	g, err := b.Graph()
	if err != nil {
		return nil, fmt.Errorf("build task graph: %w", err)
	}
	return &project{cfg: cfg, builder: b, graph: g}, nil
}

func roots(args []string) []string {
	if len(args) == 0 {
		return []string{build.TaskDefault}
	}
	return args
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintf(os.Stderr, "\n🛑 %s\n", ui.Yellow("Received interrupt, stopping..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// execute runs one build of the requested tasks and prints its report.
func (p *project) execute(ctx context.Context, names []string) (*state.RunState, error) {
	plan, err := planner.Generate(p.graph, names)
	if err != nil {
		return nil, err
	}

	r := runner.New(p.graph, runner.Config{
		MaxParallel: p.cfg.MaxParallel,
		Out:         os.Stderr,
		Quiet:       flagQuiet || flagJSON,
	})
	if !flagQuiet && !flagJSON {
		fmt.Fprintf(os.Stderr, "🚀 %s running %s tasks in %s waves\n",
			ui.BoldCyan("assetloom:"), ui.Bold(plan.TotalTasks), ui.Bold(plan.TotalWaves))
	}

	st, runErr := r.Execute(ctx, plan)
	rpt := reporter.New(plan, st)
	if flagJSON {
		data, err := rpt.JSON()
		if err != nil {
			return st, err
		}
		printJSON(data)
	} else {
		fmt.Fprintln(os.Stderr, rpt.Summary())
	}
	return st, runErr
}

func runTasks(args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if !flagQuiet && !flagJSON {
		ui.PrintHeader(os.Stderr, version)
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, err = p.execute(ctx, roots(args))
	return err
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task...]",
		Short: "Run tasks and their prerequisites (default: \"default\")",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(args)
		},
	}
}

func watchCmd() *cobra.Command {
	var flagNoReload bool

	cmd := &cobra.Command{
		Use:   "watch [task...]",
		Short: "Build, then rebuild on every source change and notify browsers",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			cfg := p.cfg

			tasks := args
			if len(tasks) == 0 {
				tasks = cfg.Watch.Tasks
			}
			// Unknown tasks fail here rather than on the first change.
			if _, err := p.graph.Closure(tasks...); err != nil {
				return err
			}
			debounce, err := cfg.DebounceDuration()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if !flagQuiet {
				ui.PrintHeader(os.Stderr, version)
			}
			// A failed first build is reported; watching continues.
			p.execute(ctx, tasks)

			var reload *livereload.Server
			if cfg.LiveReload.Enabled && !flagNoReload {
				reload = livereload.New()
				url, err := reload.Start(cfg.LiveReload.Addr)
				if err != nil {
					return err
				}
				defer reload.Close()
				fmt.Fprintf(os.Stderr, "🔄 %s %s  %s\n", ui.BoldCyan("Live reload:"), url,
					ui.Dim(fmt.Sprintf(`<script src="%s/livereload.js"></script>`, url)))
			}

			fsw, err := watcher.NewFS(cfg.Abs(cfg.Paths.Dist), cfg.Abs(cfg.Paths.Public))
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer fsw.Close()

			logger := log.New(os.Stderr, "[watch] ", log.LstdFlags)
			for _, pattern := range cfg.Watch.Paths {
				base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
				if err := fsw.AddRecursive(cfg.Abs(base)); err != nil {
					logger.Printf("warning: not watching %s: %v", base, err)
				}
			}
			go func() {
				for err := range fsw.Errors() {
					logger.Printf("watch error: %v", err)
				}
			}()

			loop := &watcher.Loop{
				Root:     cfg.Dir,
				Rules:    []watcher.Rule{{Patterns: cfg.Watch.Paths, Tasks: tasks}},
				Debounce: debounce,
				Log:      logger,
				Rebuild: func(ctx context.Context, tasks []string) (string, error) {
					st, err := p.execute(ctx, tasks)
					if st == nil {
						return "", err
					}
					return st.RunID, err
				},
				Notify: func(path, buildID string) {
					if reload == nil {
						return
					}
					n, err := reload.Notify(path, buildID)
					if err != nil {
						logger.Printf("reload: %v", err)
						return
					}
					logger.Printf("reloaded %d listener(s) after %s changed", n, path)
				},
			}

			fmt.Fprintf(os.Stderr, "👀 %s %v %s\n", ui.BoldCyan("Watching"), cfg.Watch.Paths, ui.Dim("(Ctrl+C to stop)"))
			return loop.Run(ctx, fsw.Events())
		},
	}

	cmd.Flags().BoolVar(&flagNoReload, "no-reload", false, "Do not start the live-reload server")
	return cmd
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [task...]",
		Short: "Show execution order, waves and the longest chain without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			plan, err := planner.Generate(p.graph, roots(args))
			if err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(plan)
			}
			reporter.New(plan, nil).PrintPlan(os.Stdout)
			return nil
		},
	}
}

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [task...]",
		Short: "Print the task graph in Graphviz DOT format",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			plan, err := planner.Generate(p.graph, roots(args))
			if err != nil {
				return err
			}
			reporter.New(plan, nil).PrintDOT(os.Stdout)
			return nil
		},
	}
}

func tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List registered tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			type entry struct {
				Name string   `json:"name"`
				Desc string   `json:"desc,omitempty"`
				Deps []string `json:"deps,omitempty"`
			}
			var entries []entry
			for _, name := range p.graph.Names() {
				entries = append(entries, entry{Name: name, Desc: p.graph.Tasks[name].Desc, Deps: p.graph.RevAdj[name]})
			}

			if flagJSON {
				return outputJSON(entries)
			}
			for _, e := range entries {
				fmt.Printf("%s  %s\n", ui.TaskPrefix(e.Name), e.Desc)
				if len(e.Deps) > 0 {
					fmt.Printf("    %s %v\n", ui.Dim("needs"), e.Deps)
				}
			}
			return nil
		},
	}
}

func outputJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	printJSON(data)
	return nil
}

func printJSON(data []byte) {
	out := pretty.Pretty(data)
	if ui.ColorEnabled() {
		out = pretty.Color(out, nil)
	}
	os.Stdout.Write(out)
}
