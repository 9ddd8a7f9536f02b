package roms_test

import (
	"os"
	"path/filepath"
	"testing"

	"romscribe/internal/roms"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("rom"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.zip", "readme.txt", "a.zip", "c.ZIP", "d.zip.bak", "e.7z"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.zip"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := roms.List(dir)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"a.zip", "b.zip"}
	if len(got) != len(want) {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("candidate %d: got %q want %q", i, got[i].Name, name)
		}
		if got[i].Path != filepath.Join(dir, name) {
			t.Fatalf("candidate %d path: got %q", i, got[i].Path)
		}
	}
}

func TestListEmptyDirectory(t *testing.T) {
	got, err := roms.List(t.TempDir())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestListMissingDirectory(t *testing.T) {
	if _, err := roms.List(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLabel(t *testing.T) {
	if got, want := roms.Label("Sonic The Hedgehog (USA).zip"), `rom file "Sonic The Hedgehog (USA).zip"`; got != want {
		t.Fatalf("Label: got %q want %q", got, want)
	}
}
