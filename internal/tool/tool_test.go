package tool

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/joshharrison/assetloom/internal/transform"
)

func TestNewSass_Defaults(t *testing.T) {
	s := NewSass("", nil)
	if s.Bin != "sass" {
		t.Errorf("expected default binary 'sass', got %q", s.Bin)
	}
	if s.Style != "expanded" {
		t.Errorf("expected expanded style, got %q", s.Style)
	}
}

func TestSassArgs(t *testing.T) {
	s := NewSass("/opt/sass", []string{"node_modules"})
	got := s.args("src/main.scss", "/tmp/x/main.css")
	want := []string{"--no-error-css", "--source-map", "--embed-sources", "--style=expanded", "--load-path=node_modules", "src/main.scss", "/tmp/x/main.css"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNewJSHint_Defaults(t *testing.T) {
	j := NewJSHint("", "")
	if j.Bin != "jshint" {
		t.Errorf("expected default binary 'jshint', got %q", j.Bin)
	}
}

func TestMissingBinary(t *testing.T) {
	s := NewSass("assetloom-no-such-sass", nil)
	if _, _, err := s.Compile(context.Background(), "main.scss"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	j := NewJSHint("assetloom-no-such-jshint", "")
	if _, err := j.Lint(context.Background(), "a.js"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParseUnixReport(t *testing.T) {
	out := []byte("src/js/a.js:3:14: Missing semicolon.\n" +
		"src/js/a.js:10:1: 'x' is not defined.\n" +
		"\n2 errors\n")

	got := parseUnixReport(out)
	want := []transform.Diagnostic{
		{Path: "src/js/a.js", Line: 3, Col: 14, Message: "Missing semicolon."},
		{Path: "src/js/a.js", Line: 10, Col: 1, Message: "'x' is not defined."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if parseUnixReport(nil) != nil {
		t.Error("expected no diagnostics for empty output")
	}
}

func TestShell(t *testing.T) {
	var out bytes.Buffer
	if err := Shell(context.Background(), t.TempDir(), "echo hello", &out, &out); err != nil {
		t.Fatalf("Shell: %v", err)
	}
	if strings.TrimSpace(out.String()) != "hello" {
		t.Errorf("unexpected output %q", out.String())
	}

	if err := Shell(context.Background(), "", "exit 3", &out, &out); err == nil {
		t.Error("expected failure for non-zero exit")
	}
}
