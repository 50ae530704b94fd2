package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xieby1/luajit-pro/internal/cli"
	"github.com/xieby1/luajit-pro/internal/comptime"
	"github.com/xieby1/luajit-pro/internal/linebuf"
)

func newTestDriver(t *testing.T, cacheDir string) *Driver {
	t.Helper()

	cfg := &cli.Config{CacheDir: cacheDir}

	return NewDriver(comptime.Global(), cfg, nil)
}

func TestTransformSkipsFileWithoutSentinel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.lua")

	if err := os.WriteFile(src, []byte("local x = 1\n"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	d := newTestDriver(t, filepath.Join(dir, "cache"))

	got, err := d.Transform(src, nil)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	if got != src {
		t.Fatalf("Transform() = %q, want input path unchanged %q", got, src)
	}

	if _, err := os.Stat(filepath.Join(dir, "cache")); !os.IsNotExist(err) {
		t.Fatalf("expected no cache directory to be created")
	}
}

func TestTransformRewritesForeachAndFirstLine(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lua")

	content := "--[[luajit-pro]] preprocess: false\n" +
		"t.foreach { x => print(x) }\n"

	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	cacheDir := filepath.Join(dir, "cache")
	d := newTestDriver(t, cacheDir)

	out, err := d.Transform(src, nil)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read transformed output: %v", err)
	}

	got := string(data)

	if got[:len(firstLine)] != firstLine {
		t.Fatalf("line 1 = %q, want prefix %q", got, firstLine)
	}

	if !contains(got, "for _, x in ipairs(t) do print(x)") {
		t.Fatalf("transformed output missing rewritten foreach: %q", got)
	}

	if _, err := os.Stat(filepath.Join(cacheDir, "prog.lua.1.processed")); err != nil {
		t.Fatalf("expected processed cache slot: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cacheDir, "prog.lua.2.transformed")); err != nil {
		t.Fatalf("expected transformed cache slot: %v", err)
	}
}

func TestTransformPreservesLineCount(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lua")

	content := "--[[luajit-pro]] preprocess: false\n" +
		"groups.foreach { group =>\n" +
		"  print(group)\n" +
		"}\n"

	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	d := newTestDriver(t, filepath.Join(dir, "cache"))

	out, err := d.Transform(src, nil)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read transformed output: %v", err)
	}

	wantLines := linebuf.New(content).Len()
	gotLines := linebuf.New(string(data)).Len()

	if gotLines != wantLines {
		t.Fatalf("line count changed: got %d, want %d", gotLines, wantLines)
	}
}

func TestTransformRejectsUnsatisfiedVersionGate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lua")

	content := "--[[luajit-pro >=999.0.0]] preprocess: false\n" +
		"local x = 1\n"

	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	d := newTestDriver(t, filepath.Join(dir, "cache"))

	if _, err := d.Transform(src, nil); err == nil {
		t.Fatalf("expected a version gate error")
	}
}

func TestTransformAcceptsSatisfiedVersionGate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lua")

	content := "--[[luajit-pro >=0.0.1]] preprocess: false\n" +
		"local x = 1\n"

	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	d := newTestDriver(t, filepath.Join(dir, "cache"))

	if _, err := d.Transform(src, nil); err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
}

func TestDrainRemovesCacheFilesUnlessKept(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lua")

	content := "--[[luajit-pro]] preprocess: false\nlocal x = 1\n"
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	cacheDir := filepath.Join(dir, "cache")
	d := newTestDriver(t, cacheDir)

	out, err := d.Transform(src, nil)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	d.Drain()

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected transformed cache file to be removed after Drain")
	}
}

func TestDrainKeepsFilesWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lua")

	content := "--[[luajit-pro]] preprocess: false\nlocal x = 1\n"
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	cfg := &cli.Config{CacheDir: filepath.Join(dir, "cache"), KeepFiles: true}
	d := NewDriver(comptime.Global(), cfg, nil)

	out, err := d.Transform(src, nil)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	d.Drain()

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected transformed cache file to survive Drain when KeepFiles is set: %v", err)
	}
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:len(needle)+i] == needle {
			return i
		}
	}

	return -1
}
