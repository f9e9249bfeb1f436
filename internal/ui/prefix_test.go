package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrefixWriter_SplitsLines(t *testing.T) {
	SetColor(false)
	var buf bytes.Buffer
	pw := NewPrefixWriter("build:styles", &buf, nil)

	pw.Write([]byte("first li"))
	pw.Write([]byte("ne\r\nsecond\n\n"))
	pw.Write([]byte("tail"))

	got := buf.String()
	want := "  [build:styles] first line\n  [build:styles] second\n"
	if got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}

	pw.Flush()
	if !strings.HasSuffix(buf.String(), "  [build:styles] tail\n") {
		t.Errorf("expected flushed tail, got %q", buf.String())
	}
}

func TestTaskPrefix_Stable(t *testing.T) {
	SetColor(false)
	if TaskPrefix("copy:images") != "[copy:images]" {
		t.Errorf("unexpected prefix %q", TaskPrefix("copy:images"))
	}
	if taskColorIndex("a") != taskColorIndex("a") {
		t.Error("color index must be stable")
	}
}

func TestStatusIcon(t *testing.T) {
	SetColor(false)
	for status, want := range map[string]string{
		"completed": "✓",
		"failed":    "✗",
		"skipped":   "⊘",
		"pending":   "◌",
	} {
		if got := StatusIcon(status); got != want {
			t.Errorf("%s: expected %q, got %q", status, want, got)
		}
	}
}
