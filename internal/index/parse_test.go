package index

import (
	"reflect"
	"testing"
)

func TestParseContent(t *testing.T) {
	input := `---
title: Ada Lovelace
aliases: [Countess of Lovelace, Ada]
tags: people, history/computing
---
# Heading Ignored
Worked with @babbage on the #engine/analytical.

` + "```" + `
#notatag @notamention
` + "```" + `
    #indented
`
	meta := ParseContent(input)
	if meta.Title != "Ada Lovelace" {
		t.Fatalf("expected frontmatter title, got %q", meta.Title)
	}
	if !reflect.DeepEqual(meta.Aliases, []string{"Countess of Lovelace", "Ada"}) {
		t.Fatalf("unexpected aliases %v", meta.Aliases)
	}
	wantTags := []string{"engine", "engine/analytical", "history", "history/computing", "people"}
	if !reflect.DeepEqual(meta.Tags, wantTags) {
		t.Fatalf("expected tags %v, got %v", wantTags, meta.Tags)
	}
	if !reflect.DeepEqual(meta.Mentions, []string{"@babbage"}) {
		t.Fatalf("unexpected mentions %v", meta.Mentions)
	}
}

func TestParseContentTitleFromHeading(t *testing.T) {
	meta := ParseContent("intro\n## Not This\n# Aho Corasick #\nbody")
	if meta.Title != "Aho Corasick" {
		t.Fatalf("expected heading title, got %q", meta.Title)
	}
}

func TestParseContentInvalidFrontmatter(t *testing.T) {
	meta := ParseContent("---\ntitle: [unclosed\n---\n# Fallback\n")
	if meta.Title != "Fallback" {
		t.Fatalf("expected heading fallback, got %q", meta.Title)
	}
}

func TestMetadataNames(t *testing.T) {
	meta := Metadata{
		Title:    "Ada",
		Aliases:  []string{"Ada", " ", "Countess"},
		Tags:     []string{"people"},
		Mentions: []string{"@ada"},
	}
	want := []Name{
		{Name: "Ada", Kind: KindTitle},
		{Name: "Ada", Kind: KindAlias},
		{Name: "Countess", Kind: KindAlias},
		{Name: "people", Kind: KindTag},
		{Name: "@ada", Kind: KindMention},
	}
	if got := meta.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseNameKind(t *testing.T) {
	if k, ok := ParseNameKind(" Tag "); !ok || k != KindTag {
		t.Fatalf("expected tag kind, got %q ok=%v", k, ok)
	}
	if _, ok := ParseNameKind("person"); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
}
