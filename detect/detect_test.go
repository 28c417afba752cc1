package detect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectRust(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Detect(dir); got != "rust" {
		t.Fatalf("got %q, want rust", got)
	}
}

func TestDetectBunTakesPriorityWhenBothPresent(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"bun.lockb", "Cargo.toml"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := Detect(dir); got != "bun" {
		t.Fatalf("got %q, want bun", got)
	}
}

func TestDetectNoMarkersReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	if got := Detect(dir); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestProjectRootFindsGitDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := ProjectRoot(sub); got != root {
		t.Fatalf("got %q, want %q", got, root)
	}
}

func TestProjectRootNoneFound(t *testing.T) {
	dir := t.TempDir()
	if got := ProjectRoot(dir); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestRenderInitialConfigWithProfile(t *testing.T) {
	got := RenderInitialConfig("rust")
	if got != `default_profiles = ["rust"]`+"\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderInitialConfigEmptyProfile(t *testing.T) {
	got := RenderInitialConfig("")
	if got == "" {
		t.Fatal("expected a non-empty template")
	}
}
