package autolink

import "strings"

const (
	backtickFence = "```"
	tildeFence    = "~~~"
	mathFence     = "$$"
)

// GuardState is the fence state carried from one line to the next.
type GuardState struct {
	InCodeBlock bool
	InMathBlock bool
	// CodeMarker is the fence that opened the current code block.
	CodeMarker string
}

// LineGuard tracks fenced code and math blocks across the lines of one
// document. Only the fence that opened a block can close it.
type LineGuard struct {
	state GuardState
}

func (g *LineGuard) State() GuardState {
	return g.state
}

func (g *LineGuard) Reset() {
	g.state = GuardState{}
}

// Check reports whether line must pass through unmodified, updating the
// state when line is a fence.
func (g *LineGuard) Check(line string) bool {
	switch {
	case g.state.InCodeBlock:
		if codeFenceMarker(line) == g.state.CodeMarker {
			g.state.InCodeBlock = false
			g.state.CodeMarker = ""
		}
		return true
	case g.state.InMathBlock:
		if strings.HasPrefix(line, mathFence) {
			g.state.InMathBlock = false
		}
		return true
	}

	if marker := codeFenceMarker(line); marker != "" {
		g.state.InCodeBlock = true
		g.state.CodeMarker = marker
		return true
	}
	if strings.HasPrefix(line, mathFence) {
		// $$x$$ on its own line is complete.
		if len(line) >= 2*len(mathFence) && strings.HasSuffix(line, mathFence) && strings.Trim(line, "$") != "" {
			return true
		}
		g.state.InMathBlock = true
		return true
	}
	return false
}

func codeFenceMarker(line string) string {
	switch {
	case strings.HasPrefix(line, backtickFence):
		// ```a` is an inline code span, not a fence.
		if strings.Contains(strings.TrimLeft(line, "`"), "`") {
			return ""
		}
		return backtickFence
	case strings.HasPrefix(line, tildeFence):
		return tildeFence
	}
	return ""
}

const frontmatterFence = "---"

// FrontmatterLen returns how many leading lines form a YAML frontmatter
// block, fences included, or 0 when lines do not open with a closed block.
func FrontmatterLen(lines []*string) int {
	if len(lines) == 0 || lines[0] == nil || strings.TrimSpace(*lines[0]) != frontmatterFence {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] != nil && strings.TrimSpace(*lines[i]) == frontmatterFence {
			return i + 1
		}
	}
	return 0
}
