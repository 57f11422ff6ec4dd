package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHomeNoTilde(t *testing.T) {
	p, err := ExpandHome("/tmp/x")
	if err != nil {
		t.Fatalf("ExpandHome: %v", err)
	}
	if p != "/tmp/x" {
		t.Fatalf("expected unchanged path, got %q", p)
	}
}

func TestExpandHomeTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir in test environment")
	}
	p, err := ExpandHome("~/checkpoints")
	if err != nil {
		t.Fatalf("ExpandHome: %v", err)
	}
	if p != filepath.Join(home, "checkpoints") {
		t.Fatalf("expected %q, got %q", filepath.Join(home, "checkpoints"), p)
	}
}

func TestEnsureDirAndPathExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if PathExists(dir) {
		t.Fatalf("expected %q to not exist yet", dir)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if !PathExists(dir) {
		t.Fatalf("expected %q to exist", dir)
	}
	// idempotent
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir (second): %v", err)
	}
	if err := EnsureDir(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
