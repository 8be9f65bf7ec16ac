package autolink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrNoDictionary = errors.New("no entity dictionary configured")

type Options struct {
	// LinkScheme prefixes link targets. Defaults to DefaultLinkScheme.
	LinkScheme      string
	CaseInsensitive bool
	// Budget bounds the wall-clock time of one Process call. Lines not
	// reached in time are copied through unmodified.
	Budget time.Duration
	// Workers > 1 rewrites lines concurrently.
	Workers   int
	Logger    *slog.Logger
	TreeModel TreeModel
}

type Result struct {
	Lines     []*string
	Linked    int
	Rewritten int
	Truncated bool
	Elapsed   time.Duration
}

// Preprocessor autolinks whole documents against a Dictionary.
type Preprocessor struct {
	dict   Dictionary
	opts   Options
	logger *slog.Logger

	// mu keeps the index read-only while a document is scanned.
	mu    sync.Mutex
	index *NameIndex
}

func New(dict Dictionary, opts Options) *Preprocessor {
	if opts.LinkScheme == "" {
		opts.LinkScheme = DefaultLinkScheme
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		dict:   dict,
		opts:   opts,
		logger: logger,
		index:  NewNameIndex(),
	}
}

// Process autolinks lines. A nil entry is re-emitted as nil; every other
// output entry is a fresh copy of its input, rewritten when unguarded.
// A leading frontmatter block is copied through untouched.
func (p *Preprocessor) Process(ctx context.Context, lines []*string) (*Result, error) {
	if p.dict == nil {
		return nil, ErrNoDictionary
	}
	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	names, err := p.dict.EntityNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entity names: %w", err)
	}
	if err := p.index.Rebuild(names, p.opts.CaseInsensitive); err != nil {
		return nil, fmt.Errorf("rebuild name index: %w", err)
	}

	if p.opts.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Budget)
		defer cancel()
	}

	res := &Result{Lines: make([]*string, len(lines))}
	var guard LineGuard
	frontmatter := FrontmatterLen(lines)
	todo := make([]int, 0, len(lines))
	for i, line := range lines {
		if line == nil {
			continue
		}
		if i < frontmatter || *line == "" || guard.Check(*line) {
			res.Lines[i] = clonePtr(*line)
			continue
		}
		todo = append(todo, i)
	}

	rw := NewLineRewriter(p.opts.TreeModel, NewWordLinker(p.index, p.opts.LinkScheme), p.logger)
	if p.opts.Workers > 1 {
		p.rewriteParallel(ctx, rw, lines, todo, res)
	} else {
		p.rewriteSequential(ctx, rw, lines, todo, res)
	}

	res.Elapsed = time.Since(start)
	if res.Truncated {
		p.logger.Warn("autolink budget exhausted", "lines", len(lines), "elapsed", res.Elapsed, "err", context.Cause(ctx))
	} else {
		p.logger.Debug("autolink done", "lines", len(lines), "names", p.index.Len(), "linked", res.Linked, "elapsed", res.Elapsed)
	}
	return res, nil
}

func (p *Preprocessor) rewriteSequential(ctx context.Context, rw *LineRewriter, lines []*string, todo []int, res *Result) {
	for n, i := range todo {
		if ctx.Err() != nil {
			for _, j := range todo[n:] {
				res.Lines[j] = clonePtr(*lines[j])
			}
			res.Truncated = true
			return
		}
		out, linked := rw.rewrite(*lines[i])
		res.Lines[i] = clonePtr(out)
		if linked > 0 {
			res.Linked += linked
			res.Rewritten++
		}
	}
}

// rewriteParallel may leave unprocessed lines anywhere in todo when the
// context ends, not only at the tail.
func (p *Preprocessor) rewriteParallel(ctx context.Context, rw *LineRewriter, lines []*string, todo []int, res *Result) {
	var (
		g         errgroup.Group
		linked    atomic.Int64
		rewritten atomic.Int64
		truncated atomic.Bool
	)
	g.SetLimit(p.opts.Workers)
	for _, i := range todo {
		g.Go(func() error {
			line := *lines[i]
			if ctx.Err() != nil {
				res.Lines[i] = clonePtr(line)
				truncated.Store(true)
				return nil
			}
			out, n := rw.rewrite(line)
			res.Lines[i] = clonePtr(out)
			if n > 0 {
				linked.Add(int64(n))
				rewritten.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	res.Linked = int(linked.Load())
	res.Rewritten = int(rewritten.Load())
	res.Truncated = truncated.Load()
}

// ProcessText autolinks a whole markdown document. CRLF line endings are
// kept.
func (p *Preprocessor) ProcessText(ctx context.Context, markdown string) (string, *Result, error) {
	raw := strings.Split(markdown, "\n")
	lines := make([]*string, len(raw))
	crlf := make([]bool, len(raw))
	for i, s := range raw {
		if strings.HasSuffix(s, "\r") {
			s = s[:len(s)-1]
			crlf[i] = true
		}
		lines[i] = &s
	}

	res, err := p.Process(ctx, lines)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.Grow(len(markdown))
	for i, line := range res.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(*line)
		if crlf[i] {
			b.WriteByte('\r')
		}
	}
	return b.String(), res, nil
}

func clonePtr(s string) *string {
	c := strings.Clone(s)
	return &c
}
