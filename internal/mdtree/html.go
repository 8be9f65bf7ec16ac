package mdtree

import (
	"bytes"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

const DefaultHighlightStyle = "github"

// HTMLRenderer renders whole markdown documents with GFM, inline math and
// highlighted fenced code.
type HTMLRenderer struct {
	md goldmark.Markdown
}

func NewHTMLRenderer(style string) *HTMLRenderer {
	if style == "" {
		style = DefaultHighlightStyle
	}
	code := &codeRenderer{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(false)),
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, Math),
		goldmark.WithRendererOptions(renderer.WithNodeRenderers(util.Prioritized(code, 200))),
	)
	return &HTMLRenderer{md: md}
}

func (r *HTMLRenderer) Render(w io.Writer, markdown []byte) error {
	return r.md.Convert(markdown, w)
}

// RenderHTML renders markdown with the default highlight style.
func RenderHTML(w io.Writer, markdown []byte) error {
	return NewHTMLRenderer("").Render(w, markdown)
}

type codeRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lexer := lexers.Get(string(n.Language(source)))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	tokens, err := lexer.Tokenise(nil, code.String())
	if err != nil {
		return ast.WalkStop, err
	}
	if err := r.formatter.Format(w, r.style, tokens); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}
