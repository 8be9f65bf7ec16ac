package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notelink/internal/autolink"
	"notelink/internal/auth"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&app{
		version: "test",
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:   strings.NewReader(stdin),
		stdout:  &stdout,
		stderr:  &stderr,
	})
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func workdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLinkStdinWithNamesFile(t *testing.T) {
	dir := workdir(t)
	names := filepath.Join(dir, "names.txt")
	writeFile(t, names, "John\nAho Corasick\nhttp\n")

	out, err := run(t, "John met Aho Corasick\n`John`\n", "link", "--names", names)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	want := "[John](mf://John) met [Aho Corasick](<mf://Aho Corasick>)\n`John`\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestLinkFlagsOverrideConfig(t *testing.T) {
	dir := workdir(t)
	names := filepath.Join(dir, "names.yaml")
	writeFile(t, names, "names: [John]\n")
	writeFile(t, filepath.Join(dir, "notelink.yaml"), "link_scheme: \"note:\"\n")

	out, err := run(t, "john", "link", "--names", names, "-i")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if out != "[John](note:John)" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "John", "link", "--names", names, "--scheme", "wiki:")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if out != "[John](wiki:John)" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLinkWriteAndHTML(t *testing.T) {
	dir := workdir(t)
	names := filepath.Join(dir, "names.txt")
	writeFile(t, names, "John\n")
	note := filepath.Join(dir, "note.md")
	writeFile(t, note, "# Notes\nJohn called.\n")

	if _, err := run(t, "", "link", "--names", names, "--write", note); err != nil {
		t.Fatalf("link --write: %v", err)
	}
	raw, err := os.ReadFile(note)
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	if string(raw) != "# Notes\n[John](mf://John) called.\n" {
		t.Fatalf("unexpected rewrite %q", raw)
	}

	out, err := run(t, "", "link", "--names", names, "--html", note)
	if err != nil {
		t.Fatalf("link --html: %v", err)
	}
	if !strings.Contains(out, `<a href="mf://John">John</a>`) || !strings.Contains(out, "<h1") {
		t.Fatalf("unexpected html %s", out)
	}

	if _, err := run(t, "", "link", "--names", names, "--html", "--write", note); err == nil {
		t.Fatal("expected --html with --write to fail")
	}
	if _, err := run(t, "", "link", "--names", names, "--write"); err == nil {
		t.Fatal("expected --write without files to fail")
	}
}

func TestLinkRequiresNamesSource(t *testing.T) {
	workdir(t)
	if _, err := run(t, "John", "link"); !errors.Is(err, autolink.ErrNoDictionary) {
		t.Fatalf("expected ErrNoDictionary, got %v", err)
	}
}

func TestIndexNamesAndLinkWithIndex(t *testing.T) {
	dir := workdir(t)
	repo := filepath.Join(dir, "repo")
	writeFile(t, filepath.Join(repo, "people", "ada.md"), "# Ada Lovelace\nmet @babbage #history\n")

	out, err := run(t, "", "--repo", repo, "index")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if out != "1 notes, 3 names\n" {
		t.Fatalf("unexpected index summary %q", out)
	}
	if _, err := os.Stat(filepath.Join(repo, ".notelink", "index.sqlite")); err != nil {
		t.Fatalf("expected index database: %v", err)
	}

	out, err = run(t, "", "--repo", repo, "names", "--kind", "tag")
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if strings.TrimSpace(out) != "history  tag  1" {
		t.Fatalf("unexpected names output %q", out)
	}
	if _, err := run(t, "", "--repo", repo, "names", "--kind", "planet"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}

	out, err = run(t, "Ada Lovelace knew @babbage", "--repo", repo, "link", "--index")
	if err != nil {
		t.Fatalf("link --index: %v", err)
	}
	want := "[Ada Lovelace](<mf://Ada Lovelace>) knew [@babbage](mf://@babbage)"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestHashKeyGenerate(t *testing.T) {
	dir := workdir(t)
	out, err := run(t, "", "hash-key", "--generate", "--alias", "ci", "--expires", "2030-01-02")
	if err != nil {
		t.Fatalf("hash-key: %v", err)
	}
	path := filepath.Join(dir, "api-keys.txt")
	writeFile(t, path, out)
	keys, err := auth.LoadAPIKeys(path)
	if err != nil {
		t.Fatalf("load generated line: %v", err)
	}
	if len(keys) != 1 || keys[0].Alias != "ci" {
		t.Fatalf("unexpected keys %+v", keys)
	}

	if _, err := run(t, "", "hash-key", "--generate", "--alias", "a:b"); err == nil {
		t.Fatal("expected alias with ':' to fail")
	}
	if _, err := run(t, "", "hash-key", "--alias", "ci"); err == nil {
		t.Fatal("expected prompt without terminal to fail")
	}
}

func TestInvalidConfigFails(t *testing.T) {
	dir := workdir(t)
	writeFile(t, filepath.Join(dir, "notelink.yaml"), "link_scheme: \"no scheme\"\n")
	if _, err := run(t, "x", "link", "--names", "missing.txt"); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}
