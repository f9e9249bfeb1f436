package tool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/joshharrison/assetloom/internal/transform"
)

// JSHint lints JavaScript with the jshint command line.
type JSHint struct {
	Client
	Config string // optional --config file
}

// NewJSHint creates a linter using bin, defaulting to "jshint".
func NewJSHint(bin, config string) *JSHint {
	if bin == "" {
		bin = "jshint"
	}
	return &JSHint{Client: Client{Bin: bin}, Config: config}
}

// jshint exits 2 when it reports problems.
const jshintFoundProblems = 2

// Lint runs jshint on path and returns its findings.
func (j *JSHint) Lint(ctx context.Context, path string) ([]transform.Diagnostic, error) {
	args := []string{"--reporter=unix"}
	if j.Config != "" {
		args = append(args, "--config", j.Config)
	}
	out, err := j.run(ctx, append(args, path)...)
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) || ee.ExitCode() != jshintFoundProblems {
			return nil, err
		}
	}
	return parseUnixReport(out), nil
}

var unixLine = regexp.MustCompile(`^(.+?):(\d+):(\d+): (.*)$`)

// parseUnixReport parses "file:line:col: message" lines, ignoring the
// trailing summary.
func parseUnixReport(out []byte) []transform.Diagnostic {
	var diags []transform.Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := unixLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diags = append(diags, transform.Diagnostic{Path: m[1], Line: line, Col: col, Message: m[4]})
	}
	return diags
}
