package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("touch %s: %v", name, err)
	}
}

func TestClassifyEmptyWorkspaceYieldsBase(t *testing.T) {
	dir := t.TempDir()
	tags, err := Classify(dir, Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(tags) != 1 || tags[0] != ecosystem.Base {
		t.Fatalf("expected {base}, got %v", tags)
	}
}

func TestClassifyRustWorkspace(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Cargo.toml")
	tags, err := Classify(dir, Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(tags) != 2 || tags[0] != ecosystem.Base || tags[1] != ecosystem.Rust {
		t.Fatalf("expected {base, rust}, got %v", tags)
	}
}

func TestClassifyNixElidesLanguageTags(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Cargo.toml")
	touch(t, dir, "package.json")
	touch(t, dir, "flake.nix")
	tags, err := Classify(dir, Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(tags) != 2 || tags[1] != ecosystem.Nix {
		t.Fatalf("expected {base, nix}, got %v", tags)
	}
}

func TestClassifyNixSuppressed(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Cargo.toml")
	touch(t, dir, "flake.nix")
	tags, err := Classify(dir, Options{SuppressNix: true})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	found := map[ecosystem.Tag]bool{}
	for _, tg := range tags {
		found[tg] = true
	}
	if !found[ecosystem.Rust] || !found[ecosystem.Nix] {
		t.Fatalf("expected both rust and nix present when suppressed, got %v", tags)
	}
}

func TestClassifyCustomRecipe(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "go.mod")
	touch(t, dir, CustomRecipeName)
	tags, err := Classify(dir, Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	last := tags[len(tags)-1]
	if last != ecosystem.Custom {
		t.Fatalf("expected custom as last tag, got %v", tags)
	}
}

func TestClassifyNonRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, sub, "Cargo.toml")
	tags, err := Classify(dir, Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(tags) != 1 || tags[0] != ecosystem.Base {
		t.Fatalf("expected nested files to be ignored, got %v", tags)
	}
}

func TestClassifyUnreadableWorkspace(t *testing.T) {
	_, err := Classify(filepath.Join(t.TempDir(), "does-not-exist"), Options{})
	if err == nil {
		t.Fatal("expected error for missing workspace")
	}
}
