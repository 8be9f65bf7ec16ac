package mdtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"notelink/internal/autolink"
)

var (
	errForeignNode = errors.New("node does not belong to this tree")
	errNotText     = errors.New("anchor is not a text node")
	errBadRange    = errors.New("range outside anchor text")
)

type node struct {
	n    ast.Node
	kind autolink.NodeKind
}

func (n *node) Kind() autolink.NodeKind { return n.kind }

// injection is a link added by InsertLinkBefore, addressed by the source
// bytes it replaces.
type injection struct {
	start   int
	end     int
	dest    string
	display string
}

// Tree is one parsed line. It renders back to markdown by copying the
// source and splicing injected links over the bytes they replace.
type Tree struct {
	doc ast.Node
	src []byte

	cur     ast.Node
	entered bool
	done    bool

	injected map[ast.Node]injection
}

var _ autolink.Tree = (*Tree)(nil)

func newTree(doc ast.Node, src []byte) *Tree {
	return &Tree{doc: doc, src: src, injected: map[ast.Node]injection{}}
}

func kindOf(n ast.Node) autolink.NodeKind {
	switch n.Kind() {
	case ast.KindDocument:
		return autolink.KindDocument
	case ast.KindText:
		return autolink.KindText
	case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock, KindMathSpan:
		return autolink.KindCode
	case ast.KindLink, ast.KindAutoLink:
		return autolink.KindLink
	case ast.KindImage:
		return autolink.KindImage
	default:
		return autolink.KindOther
	}
}

// isContainer reports whether n produces an exit event. Protected kinds
// always do, even when they have no children.
func isContainer(n ast.Node) bool {
	switch kindOf(n) {
	case autolink.KindDocument, autolink.KindCode, autolink.KindLink, autolink.KindImage:
		return true
	}
	return n.HasChildren()
}

func (t *Tree) wrap(ev autolink.Event, n ast.Node) (autolink.Event, autolink.Node) {
	t.cur = n
	t.entered = ev == autolink.EventEnter
	kind := kindOf(n)
	if raw, ok := n.(*ast.RawHTML); ok && ev == autolink.EventEnter {
		// Inline <a> ... </a> reads as a link so the text between stays
		// untouched.
		switch anchorTag(raw, t.src) {
		case tagOpen:
			kind = autolink.KindLink
		case tagClose:
			kind = autolink.KindLink
			ev = autolink.EventExit
		}
	}
	return ev, &node{n: n, kind: kind}
}

const (
	tagOther = iota
	tagOpen
	tagClose
)

func anchorTag(raw *ast.RawHTML, src []byte) int {
	var b strings.Builder
	for i := 0; i < raw.Segments.Len(); i++ {
		seg := raw.Segments.At(i)
		b.Write(seg.Value(src))
	}
	tag := strings.ToLower(b.String())
	kind := tagOpen
	if strings.HasPrefix(tag, "</") {
		kind = tagClose
		tag = tag[2:]
	} else {
		tag = strings.TrimPrefix(tag, "<")
	}
	if len(tag) < 2 || tag[0] != 'a' || !strings.ContainsRune(" \t\n/>", rune(tag[1])) {
		return tagOther
	}
	if kind == tagOpen && strings.HasSuffix(tag, "/>") {
		return tagOther
	}
	return kind
}

func (t *Tree) Next() (autolink.Event, autolink.Node) {
	switch {
	case t.done:
		return autolink.EventNone, nil
	case t.cur == nil:
		return t.wrap(autolink.EventEnter, t.doc)
	case t.entered && isContainer(t.cur):
		if c := t.cur.FirstChild(); c != nil {
			return t.wrap(autolink.EventEnter, c)
		}
		return t.wrap(autolink.EventExit, t.cur)
	case t.cur == t.doc:
		t.done = true
		return autolink.EventNone, nil
	}
	if s := t.cur.NextSibling(); s != nil {
		return t.wrap(autolink.EventEnter, s)
	}
	return t.wrap(autolink.EventExit, t.cur.Parent())
}

func (t *Tree) textNode(n autolink.Node) (*ast.Text, error) {
	w, ok := n.(*node)
	if !ok {
		return nil, errForeignNode
	}
	txt, ok := w.n.(*ast.Text)
	if !ok {
		return nil, errNotText
	}
	return txt, nil
}

func (t *Tree) Literal(n autolink.Node) string {
	txt, err := t.textNode(n)
	if err != nil {
		return ""
	}
	return string(txt.Segment.Value(t.src))
}

func (t *Tree) segment(anchor *ast.Text, start, end int) (gtext.Segment, error) {
	seg := anchor.Segment
	if start < 0 || end < start || seg.Start+end > seg.Stop {
		return gtext.Segment{}, fmt.Errorf("%w: [%d,%d) of %d bytes", errBadRange, start, end, seg.Len())
	}
	return gtext.NewSegment(seg.Start+start, seg.Start+end), nil
}

func (t *Tree) InsertTextBefore(anchor autolink.Node, start, end int) error {
	txt, err := t.textNode(anchor)
	if err != nil {
		return err
	}
	seg, err := t.segment(txt, start, end)
	if err != nil {
		return err
	}
	parent := txt.Parent()
	if parent == nil {
		return errForeignNode
	}
	parent.InsertBefore(parent, txt, ast.NewTextSegment(seg))
	return nil
}

func (t *Tree) InsertLinkBefore(anchor autolink.Node, start, end int, dest, display string) error {
	txt, err := t.textNode(anchor)
	if err != nil {
		return err
	}
	seg, err := t.segment(txt, start, end)
	if err != nil {
		return err
	}
	parent := txt.Parent()
	if parent == nil {
		return errForeignNode
	}
	link := ast.NewLink()
	link.Destination = []byte(dest)
	link.AppendChild(link, ast.NewString([]byte(display)))
	parent.InsertBefore(parent, txt, link)
	t.injected[link] = injection{start: seg.Start, end: seg.Stop, dest: dest, display: display}
	return nil
}

func (t *Tree) Unlink(n autolink.Node) {
	w, ok := n.(*node)
	if !ok || w.n.Parent() == nil {
		return
	}
	parent := w.n.Parent()
	parent.RemoveChild(parent, w.n)
}

func (t *Tree) Render() (string, error) {
	var b strings.Builder
	b.Grow(len(t.src) + 16*len(t.injected))
	pos := 0
	err := ast.Walk(t.doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		inj, ok := t.injected[n]
		if !ok {
			return ast.WalkContinue, nil
		}
		if inj.start < pos {
			return ast.WalkStop, fmt.Errorf("overlapping link at byte %d", inj.start)
		}
		b.Write(t.src[pos:inj.start])
		writeLink(&b, inj, string(t.src[inj.start:inj.end]))
		pos = inj.end
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return "", err
	}
	b.Write(t.src[pos:])
	return b.String(), nil
}

func writeLink(b *strings.Builder, inj injection, literal string) {
	b.WriteByte('[')
	if inj.display == literal && !strings.ContainsAny(literal, "[]\\") {
		b.WriteString(literal)
	} else {
		b.WriteString(escapeText(inj.display))
	}
	b.WriteString("](")
	b.WriteString(escapeDestination(inj.dest))
	b.WriteByte(')')
}

const textSpecials = "\\`*_[]<>!#&~|$"

func escapeText(s string) string {
	if !strings.ContainsAny(s, textSpecials) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(textSpecials, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// escapeDestination uses the <...> form when the bare form would end early
// or a backslash could escape the closing delimiter.
func escapeDestination(dest string) string {
	if !strings.ContainsAny(dest, " \t()<>\\") {
		return dest
	}
	var b strings.Builder
	b.WriteByte('<')
	for i := 0; i < len(dest); i++ {
		if dest[i] == '<' || dest[i] == '>' || dest[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(dest[i])
	}
	b.WriteByte('>')
	return b.String()
}
