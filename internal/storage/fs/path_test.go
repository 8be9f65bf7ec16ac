package fs

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNormalizeNotePath(t *testing.T) {
	cases := []struct {
		in    string
		ok    bool
		clean string
	}{
		{"note.md", true, "note.md"},
		{"dir/note.md", true, "dir/note.md"},
		{"dir\\note.md", true, "dir/note.md"},
		{"../note.md", false, ""},
		{"/abs.md", false, ""},
		{"dir/../note.md", true, "note.md"},
		{"..", false, ""},
		{"..notes/a.md", true, "..notes/a.md"},
		{"a\x00b", false, ""},
	}

	for _, c := range cases {
		got, err := NormalizeNotePath(c.in)
		if c.ok && err != nil {
			t.Fatalf("expected ok for %q, got %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("expected err for %q", c.in)
		}
		if c.ok && got != c.clean {
			t.Fatalf("expected %q -> %q, got %q", c.in, c.clean, got)
		}
	}
}

func TestNoteFilePath(t *testing.T) {
	repo := t.TempDir()
	full, err := NoteFilePath(repo, "people/ada.md")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if full != filepath.Join(repo, "people", "ada.md") {
		t.Fatalf("unexpected path %q", full)
	}
	rel, err := RelNotePath(repo, full)
	if err != nil || rel != "people/ada.md" {
		t.Fatalf("expected people/ada.md, got %q err=%v", rel, err)
	}
	if _, err := NoteFilePath(repo, "../escape.md"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(".git/config") || !IsHidden("a/.trash/b.md") {
		t.Fatalf("expected dot paths to be hidden")
	}
	if IsHidden("a/b.md") {
		t.Fatalf("expected a/b.md to be visible")
	}
	if EnsureMDExt("a") != "a.md" || EnsureMDExt("A.MD") != "A.MD" {
		t.Fatalf("unexpected EnsureMDExt result")
	}
}
