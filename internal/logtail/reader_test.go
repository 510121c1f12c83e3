package logtail

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadTailMissingFile(t *testing.T) {
	lines := ReadTail(filepath.Join(t.TempDir(), "absent.log"), 10)
	if len(lines) != 0 {
		t.Errorf("expected no lines for absent file, got %d", len(lines))
	}
}

func TestReadTailReturnsLastLinesInOrder(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("line-" + strconv.Itoa(i) + "\n")
	}
	path := writeFile(t, sb.String())

	lines := ReadTail(path, 3)
	want := []string{"line-197", "line-198", "line-199"}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d: expected %q, got %q", i, w, lines[i])
		}
	}
}

func TestReadTailSpansChunkBoundaries(t *testing.T) {
	var sb strings.Builder
	long := strings.Repeat("x", 100)
	for i := 0; i < 50; i++ {
		sb.WriteString(long + "-" + strconv.Itoa(i) + "\n")
	}
	path := writeFile(t, sb.String())

	// Force many small backward reads.
	lines := readTail(path, 20, 64)
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[19], "-49") {
		t.Errorf("expected newest line last, got %q", lines[19])
	}
	if !strings.HasSuffix(lines[0], "-30") {
		t.Errorf("expected oldest returned line to be -30, got %q", lines[0])
	}
}

func TestReadTailFewerLinesThanRequested(t *testing.T) {
	path := writeFile(t, "only\ntwo\n")
	lines := ReadTail(path, 10)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "only" || lines[1] != "two" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestReadTailNoTrailingNewline(t *testing.T) {
	path := writeFile(t, "a\nb\npartial")
	lines := ReadTail(path, 10)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if lines[2] != "partial" {
		t.Errorf("expected trailing fragment returned, got %q", lines[2])
	}
}

func TestReadTailInvalidUTF8(t *testing.T) {
	path := writeFile(t, "ok\n\xff\xfe garbled\nlast\n")
	lines := ReadTail(path, 10)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines despite invalid bytes, got %d", len(lines))
	}
	if lines[2] != "last" {
		t.Errorf("expected %q, got %q", "last", lines[2])
	}
}

func TestReadTailZeroMaxLines(t *testing.T) {
	path := writeFile(t, "a\nb\n")
	if lines := ReadTail(path, 0); len(lines) != 0 {
		t.Errorf("expected no lines for maxLines=0, got %v", lines)
	}
}
