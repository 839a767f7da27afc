package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
)

func TestPathReaderFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "paths.txt")
	content := "a.png\n# a comment\n\n  b.jpg  \n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := NewPathReader().File(list)
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "a.png" || paths[1] != "b.jpg" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestPathReaderEmptyFilename(t *testing.T) {
	paths, err := NewPathReader().File("")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("paths = %v", paths)
	}
}

func TestReadPathsFallsBackToArgs(t *testing.T) {
	paths, source, err := NewPathReader().ReadPaths("", []string{" a.png ", "", "b.png"})
	if err != nil {
		t.Fatal(err)
	}
	if source != "arguments" {
		t.Fatalf("source = %s", source)
	}
	if len(paths) != 2 || paths[0] != "a.png" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	got := NewPathProcessor().RemoveDuplicates([]string{"a.png", " a.png", "b.png", "", "a.png"})
	if len(got) != 2 || got[0] != "a.png" || got[1] != "b.png" {
		t.Fatalf("unique = %v", got)
	}
}

func completedItem(name string, in, out int64) *batch.Item {
	return &batch.Item{
		Filename:   name,
		Status:     batch.StatusComplete,
		DurationMs: 42,
		Result: &convert.Result{
			Buffer:             []byte("converted"),
			Filename:           strings.TrimSuffix(name, filepath.Ext(name)) + ".webp",
			OriginalSizeBytes:  in,
			ConvertedSizeBytes: out,
		},
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	items := []*batch.Item{
		completedItem("photo.png", 100, 9),
		{Filename: "failed.png", Status: batch.StatusError, Error: "boom"},
	}

	if err := NewOutputManager().WriteFiles(items, dir); err != nil {
		t.Fatalf("WriteFiles returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "photo.webp"))
	if err != nil {
		t.Fatalf("converted file missing: %v", err)
	}
	if string(data) != "converted" {
		t.Fatalf("contents = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one written file, got %d", len(entries))
	}
}

func TestOutputJSON(t *testing.T) {
	out, err := NewOutputManager().JSON([]*batch.Item{
		completedItem("pic.png", 1000, 200),
		{Filename: "bad.bin", Status: batch.StatusError, Error: "no signature"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0]["output"] != "pic.webp" || rows[0]["status"] != "complete" {
		t.Fatalf("row = %v", rows[0])
	}
	if rows[1]["error"] != "no signature" {
		t.Fatalf("row = %v", rows[1])
	}
}

func TestOutputCSV(t *testing.T) {
	out, err := NewOutputManager().CSV([]*batch.Item{
		completedItem(`weird,"name".png`, 10, 5),
	})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.HasPrefix(lines[0], "Status,File,Output") {
		t.Fatalf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"weird,""name"".png"`) {
		t.Fatalf("csv escaping failed: %s", lines[1])
	}
}

func TestOutputUnsupportedFormat(t *testing.T) {
	err := NewOutputManager().Output(nil, OutputOptions{Format: "yaml"})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestEscapeCSV(t *testing.T) {
	if got := escapeCSV("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
	if got := escapeCSV(`say "hi", ok`); got != `"say ""hi"", ok"` {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("a very long file name.png", 10); got != "a very ..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("abcdef", 3); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
