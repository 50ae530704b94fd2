package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.CacheDir != "./.luajit_pro" {
		t.Fatalf("CacheDir = %q, want default", cfg.CacheDir)
	}
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := &Config{Verbose: true, KeepFiles: true, CacheDir: "/tmp/cache"}
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if loaded.Verbose != true || loaded.KeepFiles != true || loaded.CacheDir != "/tmp/cache" {
		t.Fatalf("loaded config mismatch: %+v", loaded)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}

	if cfg.WorkDir != "." {
		t.Fatalf("WorkDir = %q, want \".\"", cfg.WorkDir)
	}
}

func TestValidateArgs(t *testing.T) {
	if err := ValidateArgs([]string{"a"}, 2, "ljp <a> <b>"); err == nil {
		t.Fatalf("expected error for insufficient args")
	}

	if err := ValidateArgs([]string{"a", "b"}, 2, "ljp <a> <b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigUnreadableJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}
