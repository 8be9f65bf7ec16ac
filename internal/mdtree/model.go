// Package mdtree implements autolink.TreeModel on goldmark.
package mdtree

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"notelink/internal/autolink"
)

// Model parses markdown lines with GFM and inline math enabled.
type Model struct {
	md goldmark.Markdown
}

var _ autolink.TreeModel = (*Model)(nil)

func New() *Model {
	return &Model{md: goldmark.New(goldmark.WithExtensions(extension.GFM, Math))}
}

func (m *Model) Parse(line string) (autolink.Tree, error) {
	src := []byte(line)
	doc := m.md.Parser().Parse(text.NewReader(src))
	mergeText(doc)
	return newTree(doc, src), nil
}

// mergeText joins sibling text nodes that cover contiguous source bytes.
// Inline parsers that trigger on a space (GFM linkify) leave a paragraph
// split at its last space, which would hide a multi-word name from the
// linker.
func mergeText(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		txt, ok := c.(*ast.Text)
		if !ok {
			mergeText(c)
			continue
		}
		for {
			next, ok := txt.NextSibling().(*ast.Text)
			if !ok || !contiguous(txt, next) {
				break
			}
			txt.Segment = txt.Segment.WithStop(next.Segment.Stop)
			txt.SetSoftLineBreak(next.SoftLineBreak())
			txt.SetHardLineBreak(next.HardLineBreak())
			n.RemoveChild(n, next)
		}
	}
}

func contiguous(a, b *ast.Text) bool {
	switch {
	case a.SoftLineBreak(), a.HardLineBreak(), a.IsRaw(), b.IsRaw():
		return false
	case a.Segment.Padding != 0 || b.Segment.Padding != 0:
		return false
	}
	return a.Segment.Stop == b.Segment.Start
}
