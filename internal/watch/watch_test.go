package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

type stubDriver struct {
	calls chan string
}

func (s *stubDriver) Transform(path string, visited []string) (string, error) {
	s.calls <- path
	return path, nil
}

func TestRunRebuildsOnLuaWrite(t *testing.T) {
	if _, err := fsnotify.NewWatcher(); err != nil {
		t.Skip("fsnotify not supported:", err)
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "prog.lua")

	if err := os.WriteFile(target, []byte("local x = 1\n"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	driver := &stubDriver{calls: make(chan string, 4)}

	rebuilds := make(chan error, 4)
	onRebuild := func(path string, err error) {
		rebuilds <- err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = Run(ctx, dir, driver, onRebuild) }()

	time.Sleep(100 * time.Millisecond)

	go func() {
		_ = os.WriteFile(target, []byte("local x = 2\n"), 0o644)
	}()

	select {
	case got := <-driver.calls:
		if got != target {
			t.Fatalf("Transform called with %q, want %q", got, target)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rebuild")
	}
}

func TestRunIgnoresNonLuaFiles(t *testing.T) {
	if _, err := fsnotify.NewWatcher(); err != nil {
		t.Skip("fsnotify not supported:", err)
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "notes.txt")

	if err := os.WriteFile(target, []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	driver := &stubDriver{calls: make(chan string, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = Run(ctx, dir, driver, func(string, error) {}) }()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(target, []byte("hello again\n"), 0o644); err != nil {
		t.Fatalf("rewrite target: %v", err)
	}

	select {
	case got := <-driver.calls:
		t.Fatalf("Transform unexpectedly called with %q", got)
	case <-time.After(300 * time.Millisecond):
		// ok: no rebuild for a non-.lua file
	}
}
