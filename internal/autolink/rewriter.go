package autolink

import (
	"log/slog"
	"strings"
)

// indentSentinel replaces the first of four or more leading spaces so the
// parser sees a paragraph instead of an indented code block. It is a
// boundary character, so no name can start on it.
const indentSentinel = '\\'

// LineRewriter injects entity links into one markdown line.
type LineRewriter struct {
	model  TreeModel
	linker *WordLinker
	logger *slog.Logger
}

// NewLineRewriter returns a rewriter; a nil model makes Rewrite the identity.
func NewLineRewriter(model TreeModel, linker *WordLinker, logger *slog.Logger) *LineRewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineRewriter{model: model, linker: linker, logger: logger}
}

func (r *LineRewriter) Rewrite(line string) string {
	out, _ := r.rewrite(line)
	return out
}

// rewrite returns the rewritten line and the number of links injected.
func (r *LineRewriter) rewrite(line string) (string, int) {
	if line == "" || r.model == nil || r.linker == nil {
		return line, 0
	}

	src := line
	indented := leadingSpaces(line) >= 4
	if indented {
		src = string(indentSentinel) + line[1:]
	}

	tree, err := r.model.Parse(src)
	if err != nil {
		r.logger.Warn("autolink parse failed", "err", err)
		return line, 0
	}
	linked, err := r.linkTree(tree)
	if err != nil {
		r.logger.Warn("autolink splice failed", "err", err)
		return line, 0
	}
	if linked == 0 {
		return line, 0
	}

	out, err := tree.Render()
	if err != nil {
		r.logger.Warn("autolink render failed", "err", err)
		return line, 0
	}
	out = strings.TrimSuffix(out, "\n")
	if indented {
		if out == "" || out[0] != indentSentinel {
			r.logger.Warn("autolink lost indent sentinel", "line", line)
			return line, 0
		}
		out = " " + out[1:]
	}
	return out, linked
}

// linkTree walks tree and replaces every unprotected text node that holds a
// name with its linkified runs. The replaced node is unlinked only after the
// iterator has advanced past it.
func (r *LineRewriter) linkTree(tree Tree) (int, error) {
	var (
		zombie    Node
		protected int
		linked    int
	)
	for {
		ev, node := tree.Next()
		if zombie != nil {
			tree.Unlink(zombie)
			zombie = nil
		}
		if ev == EventNone {
			return linked, nil
		}

		switch node.Kind() {
		case KindCode, KindLink, KindImage:
			if ev == EventEnter {
				protected++
			} else if protected > 0 {
				protected--
			}
			continue
		case KindText:
			if ev != EventEnter || protected > 0 {
				continue
			}
		default:
			continue
		}

		runs := r.linker.Linkify(tree.Literal(node))
		n := countLinks(runs)
		if n == 0 {
			continue
		}
		for _, run := range runs {
			var err error
			if run.Kind == RunLink {
				err = tree.InsertLinkBefore(node, run.Start, run.End, run.Target, run.Display)
			} else {
				err = tree.InsertTextBefore(node, run.Start, run.End)
			}
			if err != nil {
				return linked, err
			}
		}
		linked += n
		zombie = node
	}
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}
