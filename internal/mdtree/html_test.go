package mdtree

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderHTMLMath(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, []byte("area is $a<b$ and $$x^2$$, costs $5 and $10")); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `<span class="math inline">a&lt;b</span>`) {
		t.Fatalf("expected inline math span, got %s", out)
	}
	if !strings.Contains(out, `<span class="math display">x^2</span>`) {
		t.Fatalf("expected display math span, got %s", out)
	}
	if !strings.Contains(out, "costs $5 and $10") {
		t.Fatalf("expected currency to stay text, got %s", out)
	}
}

func TestRenderHTMLHighlightsFencedCode(t *testing.T) {
	var buf bytes.Buffer
	md := "```go\nfunc main() {}\n```\n"
	if err := NewHTMLRenderer("monokai").Render(&buf, []byte(md)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<pre") || !strings.Contains(out, "style=") {
		t.Fatalf("expected inline-styled highlighted block, got %s", out)
	}
	if !strings.Contains(out, "func") || !strings.Contains(out, "main") {
		t.Fatalf("expected code content, got %s", out)
	}
}

func TestRenderHTMLLinks(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, []byte("[Ada](mf://Ada)")); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), `>Ada</a>`) {
		t.Fatalf("expected link, got %s", buf.String())
	}
}
