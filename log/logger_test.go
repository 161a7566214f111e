package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLogSolveDepsflnPrefixesAndFormats(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.LogSolveDepsfln("resolving %s@%s", "alice/widgets", "1.0.0")

	got := buf.String()
	if !strings.HasPrefix(got, "solve-deps: ") {
		t.Fatalf("LogSolveDepsfln output = %q, want a solve-deps: prefix", got)
	}
	if !strings.Contains(got, "resolving alice/widgets@1.0.0") {
		t.Fatalf("LogSolveDepsfln output = %q, want the formatted message", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("LogSolveDepsfln output = %q, want a trailing newline", got)
	}
}

func TestLoggerLogf(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Logf("count=%d", 3)
	if buf.String() != "count=3" {
		t.Fatalf("Logf output = %q, want %q", buf.String(), "count=3")
	}
}

func TestLoggerLogln(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Logln("a", "b")
	if buf.String() != "a b\n" {
		t.Fatalf("Logln output = %q, want %q", buf.String(), "a b\n")
	}
}
