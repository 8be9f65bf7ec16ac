package autolink

import (
	"strings"
	"testing"
)

func newTestLinker(t *testing.T, caseInsensitive bool, names ...string) *WordLinker {
	t.Helper()
	x := NewNameIndex()
	if err := x.Rebuild(names, caseInsensitive); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	return NewWordLinker(x, "")
}

// render writes runs back as text with links shown as [display].
func render(text string, runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Kind == RunLink {
			b.WriteString("[" + r.Display + "]")
			continue
		}
		b.WriteString(text[r.Start:r.End])
	}
	return b.String()
}

func assertCovers(t *testing.T, text string, runs []Run) {
	t.Helper()
	pos := 0
	for _, r := range runs {
		if r.Start != pos || r.End < r.Start {
			t.Fatalf("runs not contiguous at %d: %+v", pos, runs)
		}
		pos = r.End
	}
	if pos != len(text) {
		t.Fatalf("runs cover %d of %d bytes", pos, len(text))
	}
}

func TestLinkifyLongestMatch(t *testing.T) {
	l := newTestLinker(t, false, "Aho", "Aho Corasick")
	text := "Aho Corasick is fast."
	runs := l.Linkify(text)
	assertCovers(t, text, runs)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", runs)
	}
	if runs[0].Kind != RunLink || runs[0].Target != "mf://Aho Corasick" || runs[0].Display != "Aho Corasick" {
		t.Fatalf("unexpected link run: %+v", runs[0])
	}
	if got := text[runs[1].Start:runs[1].End]; got != " is fast." {
		t.Fatalf("expected trailing plain text, got %q", got)
	}
}

func TestLinkifyRejectsPartialWord(t *testing.T) {
	l := newTestLinker(t, false, "Go")
	text := "Going forward"
	runs := l.Linkify(text)
	if len(runs) != 1 || runs[0].Kind != RunText {
		t.Fatalf("expected one plain run, got %+v", runs)
	}
	assertCovers(t, text, runs)
}

func TestLinkifyWordBoundaries(t *testing.T) {
	l := newTestLinker(t, false, "John", "Go")
	cases := []struct {
		in   string
		want string
	}{
		{in: "John", want: "[John]"},
		{in: "ask John", want: "ask [John]"},
		{in: "xJohn", want: "xJohn"},
		{in: "Johnny John", want: "Johnny [John]"},
		{in: "(John), John.", want: "([John]), [John]."},
		{in: "John's", want: "[John]'s"},
		{in: "foo\tJohn", want: "foo\t[John]"},
		{in: "Going\tGo", want: "Going\t[Go]"},
		{in: "see Go-lang", want: "see [Go]-lang"},
		{in: "   ", want: "   "},
		{in: "naïve John", want: "naïve [John]"},
	}
	for _, tc := range cases {
		runs := l.Linkify(tc.in)
		assertCovers(t, tc.in, runs)
		if got := render(tc.in, runs); got != tc.want {
			t.Fatalf("Linkify(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestLinkifyNoMidWordRestart(t *testing.T) {
	l := newTestLinker(t, false, "Jo", "hn")
	text := "John hn"
	if got := render(text, l.Linkify(text)); got != "John [hn]" {
		t.Fatalf("expected only the standalone name to link, got %q", got)
	}
}

func TestLinkifyCasePolicy(t *testing.T) {
	sensitive := newTestLinker(t, false, "John")
	if runs := sensitive.Linkify("john"); countLinks(runs) != 0 {
		t.Fatalf("expected no link in case-sensitive mode, got %+v", runs)
	}

	insensitive := newTestLinker(t, true, "John")
	runs := insensitive.Linkify("hi john")
	if countLinks(runs) != 1 {
		t.Fatalf("expected one link, got %+v", runs)
	}
	link := runs[1]
	if link.Display != "John" || link.Target != "mf://John" || link.Start != 3 || link.End != 7 {
		t.Fatalf("unexpected link run: %+v", link)
	}
}

func TestLinkifyCustomScheme(t *testing.T) {
	x := NewNameIndex()
	if err := x.Rebuild([]string{"ops"}, false); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	runs := NewWordLinker(x, "note:").Linkify("#ops")
	if len(runs) != 2 || runs[1].Target != "note:ops" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestLinkifyPreservesContent(t *testing.T) {
	l := newTestLinker(t, false, "a", "ab", "abc", "b c", "x")
	inputs := []string{
		"",
		"abc abcd ab-c a",
		"b c\tb  c",
		"xx x x, [x] {x} x\\x",
		"\t\t a",
	}
	for _, in := range inputs {
		runs := l.Linkify(in)
		assertCovers(t, in, runs)
		var b strings.Builder
		for _, r := range runs {
			b.WriteString(in[r.Start:r.End])
		}
		if b.String() != in {
			t.Fatalf("content changed: %q -> %q", in, b.String())
		}
	}
}
