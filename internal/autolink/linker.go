package autolink

import "strings"

// DefaultLinkScheme prefixes every injected link target.
const DefaultLinkScheme = "mf://"

// boundaryChars may legally end a matched name. All of them are ASCII, so a
// byte test never splits a multi-byte rune.
const boundaryChars = " \t,:;.!?<>{}&()-+/*\\_=%~#$^[]'\""

func isBoundary(b byte) bool {
	return strings.IndexByte(boundaryChars, b) >= 0
}

type RunKind int

const (
	RunText RunKind = iota
	RunLink
)

// Run is one piece of a linkified text node. Start and End are byte offsets
// into the text passed to Linkify.
type Run struct {
	Kind    RunKind
	Start   int
	End     int
	Target  string
	Display string
}

// WordLinker finds whole-word occurrences of indexed names in text.
type WordLinker struct {
	index  *NameIndex
	scheme string
}

func NewWordLinker(index *NameIndex, scheme string) *WordLinker {
	if scheme == "" {
		scheme = DefaultLinkScheme
	}
	return &WordLinker{index: index, scheme: scheme}
}

// Linkify splits text into plain and link runs that cover it exactly once,
// in order.
//
// A name only links when it ends at a boundary character or at the end of
// text. After a failed match the whole word up to and including the next
// space or tab is skipped; the scan never restarts inside a word.
func (l *WordLinker) Linkify(text string) []Run {
	var runs []Run
	pending := 0
	pos := 0
	for pos < len(text) {
		for pos < len(text) && isBoundary(text[pos]) {
			pos++
		}
		if pos == len(text) {
			break
		}

		if m, ok := l.index.LongestMatch(text[pos:]); ok && m.Len > 0 {
			end := pos + m.Len
			if end == len(text) || isBoundary(text[end]) {
				if pending < pos {
					runs = append(runs, Run{Kind: RunText, Start: pending, End: pos})
				}
				runs = append(runs, Run{
					Kind:    RunLink,
					Start:   pos,
					End:     end,
					Target:  l.scheme + m.Name,
					Display: m.Name,
				})
				pos = end
				pending = end
				continue
			}
		}

		ws := strings.IndexAny(text[pos:], " \t")
		if ws < 0 {
			pos = len(text)
			break
		}
		pos += ws + 1
	}
	if pending < len(text) {
		runs = append(runs, Run{Kind: RunText, Start: pending, End: len(text)})
	}
	return runs
}

func countLinks(runs []Run) int {
	n := 0
	for _, r := range runs {
		if r.Kind == RunLink {
			n++
		}
	}
	return n
}
