package mdtree

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var KindMathSpan = ast.NewNodeKind("MathSpan")

// MathSpan is $...$ or, with Display set, $$...$$ on a single line.
type MathSpan struct {
	ast.BaseInline
	Display bool
}

func (n *MathSpan) Kind() ast.NodeKind { return KindMathSpan }

func (n *MathSpan) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{}, nil)
}

func NewMathSpan(display bool) *MathSpan {
	return &MathSpan{Display: display}
}

type mathParser struct{}

var _ parser.InlineParser = (*mathParser)(nil)

func (p *mathParser) Trigger() []byte {
	return []byte{'$'}
}

// Parse accepts a span whose opening delimiter is not followed by a space
// and whose closing delimiter is not preceded by one. A single $ closing
// delimiter may not be followed by a digit, so "$5 and $10" stays text.
func (p *mathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, seg := block.PeekLine()
	delim := 1
	if len(line) > 1 && line[1] == '$' {
		delim = 2
	}
	if len(line) <= delim || util.IsSpace(line[delim]) || line[delim] == '$' {
		return nil
	}

	for i := delim + 1; i+delim <= len(line); i++ {
		switch line[i] {
		case '\\':
			i++
			continue
		case '\n', '\r':
			return nil
		case '$':
		default:
			continue
		}
		if delim == 2 && (i+1 >= len(line) || line[i+1] != '$') {
			continue
		}
		if util.IsSpace(line[i-1]) {
			continue
		}
		if delim == 1 && i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
			continue
		}
		node := NewMathSpan(delim == 2)
		node.AppendChild(node, ast.NewTextSegment(text.NewSegment(seg.Start+delim, seg.Start+i)))
		block.Advance(i + delim)
		return node
	}
	return nil
}

func (p *mathParser) CloseBlock(parent ast.Node, pc parser.Context) {}

type mathHTMLRenderer struct {
	html.Config
}

func (r *mathHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathSpan, r.renderMathSpan)
}

func (r *mathHTMLRenderer) renderMathSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathSpan)
	if n.Display {
		_, _ = w.WriteString(`<span class="math display">`)
	} else {
		_, _ = w.WriteString(`<span class="math inline">`)
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			_, _ = w.Write(util.EscapeHTML(t.Segment.Value(source)))
		}
	}
	_, _ = w.WriteString("</span>")
	return ast.WalkSkipChildren, nil
}

type mathExtension struct{}

// Math adds single-line inline math spans to a goldmark instance.
var Math goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&mathParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathHTMLRenderer{Config: html.NewConfig()}, 500),
	))
}
