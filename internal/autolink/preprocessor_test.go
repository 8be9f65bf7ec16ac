package autolink_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"notelink/internal/autolink"
	"notelink/internal/mdtree"
)

func strp(s string) *string { return &s }

func newPreprocessor(opts autolink.Options, names ...string) *autolink.Preprocessor {
	if opts.TreeModel == nil {
		opts.TreeModel = mdtree.New()
	}
	return autolink.New(autolink.StaticDictionary(names), opts)
}

func TestProcessDocument(t *testing.T) {
	p := newPreprocessor(autolink.Options{}, "John", "Aho", "Aho Corasick")
	in := []*string{
		strp("John met Aho Corasick."),
		nil,
		strp(""),
		strp("```"),
		strp("John"),
		strp("```"),
		strp("John"),
	}
	res, err := p.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []*string{
		strp("[John](mf://John) met [Aho Corasick](<mf://Aho Corasick>)."),
		nil,
		strp(""),
		strp("```"),
		strp("John"),
		strp("```"),
		strp("[John](mf://John)"),
	}
	if len(res.Lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(res.Lines))
	}
	for i := range want {
		switch {
		case want[i] == nil:
			if res.Lines[i] != nil {
				t.Fatalf("line %d: expected nil, got %q", i, *res.Lines[i])
			}
		case res.Lines[i] == nil:
			t.Fatalf("line %d: expected %q, got nil", i, *want[i])
		case *res.Lines[i] != *want[i]:
			t.Fatalf("line %d: expected %q, got %q", i, *want[i], *res.Lines[i])
		}
		if in[i] != nil && res.Lines[i] == in[i] {
			t.Fatalf("line %d: output aliases input", i)
		}
	}
	if res.Linked != 3 || res.Rewritten != 2 || res.Truncated {
		t.Fatalf("unexpected result counters: %+v", res)
	}
}

func TestProcessRequiresDictionary(t *testing.T) {
	p := autolink.New(nil, autolink.Options{})
	if _, err := p.Process(context.Background(), nil); !errors.Is(err, autolink.ErrNoDictionary) {
		t.Fatalf("expected ErrNoDictionary, got %v", err)
	}
}

func TestProcessSurfacesDictionaryError(t *testing.T) {
	boom := errors.New("boom")
	dict := autolink.DictionaryFunc(func(context.Context) ([]string, error) { return nil, boom })
	p := autolink.New(dict, autolink.Options{TreeModel: mdtree.New()})
	if _, err := p.Process(context.Background(), []*string{strp("x")}); !errors.Is(err, boom) {
		t.Fatalf("expected dictionary error, got %v", err)
	}
}

func TestProcessCancelledCopiesRemainder(t *testing.T) {
	p := newPreprocessor(autolink.Options{}, "John")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := p.Process(ctx, []*string{strp("John"), strp("John again")})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.Truncated {
		t.Fatalf("expected truncated result")
	}
	if *res.Lines[0] != "John" || *res.Lines[1] != "John again" {
		t.Fatalf("expected unmodified lines, got %q %q", *res.Lines[0], *res.Lines[1])
	}
}

func TestProcessParallelMatchesSequential(t *testing.T) {
	var lines []*string
	for i := 0; i < 64; i++ {
		lines = append(lines, strp(fmt.Sprintf("line %d mentions John and Go", i)))
	}
	seq, err := newPreprocessor(autolink.Options{}, "John", "Go").Process(context.Background(), lines)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := newPreprocessor(autolink.Options{Workers: 4}, "John", "Go").Process(context.Background(), lines)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	for i := range lines {
		if *seq.Lines[i] != *par.Lines[i] {
			t.Fatalf("line %d differs: %q vs %q", i, *seq.Lines[i], *par.Lines[i])
		}
	}
	if seq.Linked != 128 || par.Linked != seq.Linked || par.Rewritten != seq.Rewritten {
		t.Fatalf("counter mismatch: seq=%+v par=%+v", seq, par)
	}
}

func TestProcessTextKeepsLineEndings(t *testing.T) {
	p := newPreprocessor(autolink.Options{CaseInsensitive: true}, "John")
	out, res, err := p.ProcessText(context.Background(), "john\r\nhi\r\n")
	if err != nil {
		t.Fatalf("process text: %v", err)
	}
	if out != "[John](mf://John)\r\nhi\r\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if res.Linked != 1 {
		t.Fatalf("expected 1 link, got %d", res.Linked)
	}
}

func TestProcessCustomScheme(t *testing.T) {
	p := newPreprocessor(autolink.Options{LinkScheme: "note:"}, "ops")
	out, _, err := p.ProcessText(context.Background(), "paged #ops")
	if err != nil {
		t.Fatalf("process text: %v", err)
	}
	if out != "paged #[ops](note:ops)" {
		t.Fatalf("unexpected output: %q", out)
	}
}
