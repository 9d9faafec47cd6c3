package store

import (
	"path/filepath"
	"testing"
)

func TestResolveWorkspaceRootPath_ExpandsHomeShortcut(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ResolveWorkspaceRootPath("~/.shukan/workspaces")
	if err != nil {
		t.Fatalf("resolve workspace root path: %v", err)
	}

	want := filepath.Join(home, ".shukan", "workspaces")
	if got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestWorkspacePaths(t *testing.T) {
	root := t.TempDir()

	state, err := GetStateDir("ws", root)
	if err != nil {
		t.Fatalf("state dir: %v", err)
	}
	if want := filepath.Join(root, "ws", "state"); state != want {
		t.Fatalf("state dir = %q, want %q", state, want)
	}

	lock, err := GetLockPath("ws", root)
	if err != nil {
		t.Fatalf("lock path: %v", err)
	}
	if want := filepath.Join(root, "ws", "workspace.lock"); lock != want {
		t.Fatalf("lock path = %q, want %q", lock, want)
	}
}
