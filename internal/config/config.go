// Package config loads the assetloom project file.
//
// The file is assetloom.yaml, assetloom.yml or assetloom.toml in the
// project directory. Every field is optional; omitted fields keep the
// defaults from Default, which reproduce the conventional src/ → dist/
// and public/ layout.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Candidates are the file names probed, in order, when no path is given.
var Candidates = []string{"assetloom.yaml", "assetloom.yml", "assetloom.toml"}

// Config is the project configuration.
type Config struct {
	Dir  string `yaml:"-" toml:"-"` // project root, set by Load
	File string `yaml:"-" toml:"-"` // file the config was read from, if any

	Manifest    string              `yaml:"manifest" toml:"manifest"`
	MaxParallel int                 `yaml:"max_parallel" toml:"max_parallel"`
	Paths       Paths               `yaml:"paths" toml:"paths"`
	Scripts     Scripts             `yaml:"scripts" toml:"scripts"`
	Styles      Styles              `yaml:"styles" toml:"styles"`
	Docs        Docs                `yaml:"docs" toml:"docs"`
	Watch       Watch               `yaml:"watch" toml:"watch"`
	LiveReload  LiveReload          `yaml:"livereload" toml:"livereload"`
	Tasks       map[string]UserTask `yaml:"tasks" toml:"tasks"`
}

// Mapping is a set of source globs and the directory they are written to.
type Mapping struct {
	Input  []string `yaml:"input" toml:"input"`
	Output string   `yaml:"output" toml:"output"`
}

// Paths locates sources and outputs relative to the project root.
type Paths struct {
	Dist      string  `yaml:"dist" toml:"dist"`
	Public    string  `yaml:"public" toml:"public"`
	Scripts   Mapping `yaml:"scripts" toml:"scripts"`
	Styles    Mapping `yaml:"styles" toml:"styles"`
	Images    Mapping `yaml:"images" toml:"images"`
	Svgs      Mapping `yaml:"svgs" toml:"svgs"`
	Static    Mapping `yaml:"static" toml:"static"`
	Docs      Mapping `yaml:"docs" toml:"docs"`
	Templates string  `yaml:"templates" toml:"templates"`
	Assets    Mapping `yaml:"assets" toml:"assets"`
}

// Scripts configures the JavaScript build.
type Scripts struct {
	Linter       string   `yaml:"linter" toml:"linter"` // jshint binary
	LinterConfig string   `yaml:"linter_config" toml:"linter_config"`
	Hooks        []string `yaml:"hooks" toml:"hooks"` // Lua scripts applied before the banner
}

// Styles configures the Sass build.
type Styles struct {
	Compiler  string   `yaml:"compiler" toml:"compiler"` // sass binary
	LoadPaths []string `yaml:"load_paths" toml:"load_paths"`
	Style     string   `yaml:"style" toml:"style"`
}

// Docs toggles the documentation site.
type Docs struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Watch configures the rebuild loop.
type Watch struct {
	Paths    []string `yaml:"paths" toml:"paths"`
	Tasks    []string `yaml:"tasks" toml:"tasks"`
	Debounce string   `yaml:"debounce" toml:"debounce"`
}

// LiveReload configures the reload notification server.
type LiveReload struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// UserTask is an extra task declared in the project file. A task with no
// command is a group.
type UserTask struct {
	Desc string   `yaml:"desc" toml:"desc"`
	Deps []string `yaml:"deps" toml:"deps"`
	Cmd  string   `yaml:"cmd" toml:"cmd"`
}

// Default returns the configuration used when no project file exists.
func Default() *Config {
	return &Config{
		Manifest: "package.json",
		Paths: Paths{
			Dist:      "dist",
			Public:    "public",
			Scripts:   Mapping{Input: []string{"src/js/*"}, Output: "dist/js"},
			Styles:    Mapping{Input: []string{"src/sass/**/*.{scss,sass}", "!src/sass/**/_*"}, Output: "dist/css"},
			Images:    Mapping{Input: []string{"src/img/*"}, Output: "dist/img"},
			Svgs:      Mapping{Input: []string{"src/svg/*"}, Output: "dist/svg"},
			Static:    Mapping{Input: []string{"src/static/*"}, Output: "dist"},
			Docs:      Mapping{Input: []string{"src/public/*.{html,md,markdown}"}, Output: "public"},
			Templates: "src/public/_templates",
			Assets:    Mapping{Input: []string{"src/public/assets/**"}, Output: "public/assets"},
		},
		Styles: Styles{Style: "expanded"},
		Docs:   Docs{Enabled: true},
		Watch: Watch{
			Paths:    []string{"src/**/*"},
			Tasks:    []string{"default"},
			Debounce: "150ms",
		},
		LiveReload: LiveReload{Enabled: true, Addr: "localhost:35729"},
	}
}

// Find returns the first candidate file present in dir, or "".
func Find(dir string) string {
	for _, name := range Candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the project file at path, or the first candidate in dir when
// path is empty, over the defaults and validates the result. With no file
// the defaults are returned.
func Load(dir, path string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	if path == "" {
		path = Find(dir)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals data over cfg, rejecting unknown keys.
func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		err = fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.MaxParallel < 0 {
		add("max_parallel must not be negative (got %d)", c.MaxParallel)
	}
	if _, err := c.DebounceDuration(); err != nil {
		add("watch.debounce: %v", err)
	}
	for _, out := range []struct{ key, path string }{
		{"paths.dist", c.Paths.Dist},
		{"paths.public", c.Paths.Public},
	} {
		if !isOutputDir(out.path) {
			add("%s must be a directory inside the project (got %q)", out.key, out.path)
		}
	}
	if c.LiveReload.Enabled && c.LiveReload.Addr == "" {
		add("livereload.addr is required when livereload is enabled")
	}
	if len(c.Watch.Tasks) == 0 {
		add("watch.tasks must name at least one task")
	}

	names := make([]string, 0, len(c.Tasks))
	for name := range c.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := c.Tasks[name]
		if strings.TrimSpace(name) == "" {
			add("task names must not be empty")
			continue
		}
		if t.Cmd == "" && len(t.Deps) == 0 {
			add("task %q needs a cmd or deps", name)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// DebounceDuration parses Watch.Debounce. An empty value means no delay.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// Abs resolves a project-relative path.
func (c *Config) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Dir, filepath.FromSlash(rel))
}

func isOutputDir(p string) bool {
	p = filepath.Clean(filepath.FromSlash(p))
	return p != "." && filepath.IsLocal(p)
}
