package index

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NameKind says where an entity name came from.
type NameKind string

const (
	KindTitle   NameKind = "title"
	KindAlias   NameKind = "alias"
	KindTag     NameKind = "tag"
	KindMention NameKind = "mention"
)

func ParseNameKind(s string) (NameKind, bool) {
	switch k := NameKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTitle, KindAlias, KindTag, KindMention:
		return k, true
	}
	return "", false
}

type Name struct {
	Name string
	Kind NameKind
}

type Metadata struct {
	Title    string
	Aliases  []string
	Tags     []string
	Mentions []string
}

// Names lists every entity name a note contributes, deduplicated per kind.
func (m Metadata) Names() []Name {
	var out []Name
	seen := map[Name]struct{}{}
	add := func(kind NameKind, values ...string) {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			n := Name{Name: v, Kind: kind}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	add(KindTitle, m.Title)
	add(KindAlias, m.Aliases...)
	add(KindTag, m.Tags...)
	add(KindMention, m.Mentions...)
	return out
}

var (
	tagRe     = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_/-]+)`)
	mentionRe = regexp.MustCompile(`(?:^|\s)@([A-Za-z0-9_/-]+)`)
)

type frontmatter struct {
	Title   string     `yaml:"title"`
	Aliases stringList `yaml:"aliases"`
	Tags    stringList `yaml:"tags"`
}

// stringList accepts a YAML sequence or a comma separated scalar.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(value.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*s = out
	}
	return nil
}

// ParseContent extracts the title, aliases, tags and mentions of a note.
// Tags and mentions inside fenced or indented code are ignored.
func ParseContent(input string) Metadata {
	body, fmText, ok := splitFrontmatter(input)
	var fm frontmatter
	if ok {
		if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
			slog.Debug("ignoring invalid frontmatter", "err", err)
			fm = frontmatter{}
		}
	}

	meta := Metadata{
		Title:   strings.TrimSpace(fm.Title),
		Aliases: fm.Aliases,
	}
	lines := nonCodeLines(body)
	if meta.Title == "" {
		meta.Title = parseTitle(lines)
	}

	tags := map[string]struct{}{}
	for _, t := range fm.Tags {
		for _, tag := range expandTagPrefixes(strings.TrimPrefix(t, "#")) {
			tags[tag] = struct{}{}
		}
	}
	mentions := map[string]struct{}{}
	for _, line := range lines {
		for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
			for _, tag := range expandTagPrefixes(m[1]) {
				tags[tag] = struct{}{}
			}
		}
		for _, m := range mentionRe.FindAllStringSubmatch(line, -1) {
			mentions["@"+m[1]] = struct{}{}
		}
	}
	meta.Tags = sortedKeys(tags)
	meta.Mentions = sortedKeys(mentions)
	return meta
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonCodeLines(body string) []string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	fence := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = trimmed[:3]
			continue
		}
		if isIndentedCodeLine(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isIndentedCodeLine(line string) bool {
	if line == "" {
		return false
	}
	spaces := 0
	for _, r := range line {
		if r == ' ' {
			spaces++
			continue
		}
		if r == '\t' {
			return true
		}
		break
	}
	return spaces >= 4
}

func expandTagPrefixes(tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}
	parts := splitTagParts(tag)
	if len(parts) == 1 {
		return []string{parts[0]}
	}
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

func splitTagParts(tag string) []string {
	parts := strings.FieldsFunc(tag, func(r rune) bool {
		return r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func StripFrontmatter(input string) string {
	body, _, _ := splitFrontmatter(input)
	return body
}

func splitFrontmatter(input string) (string, string, bool) {
	lines := strings.Split(input, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return input, "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[i+1:], "\n"), strings.Join(lines[1:i], "\n"), true
		}
	}
	return input, "", false
}

func parseTitle(lines []string) string {
	for _, line := range lines {
		if level, text, ok := parseATXHeading(line); ok && level == 1 {
			return text
		}
	}
	return ""
}

func parseATXHeading(line string) (int, string, bool) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || len(trimmed) == level {
		return 0, "", false
	}
	if trimmed[level] != ' ' && trimmed[level] != '\t' {
		return 0, "", false
	}
	text := trimATXHeadingClosingHashes(trimmed[level:])
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}

func trimATXHeadingClosingHashes(text string) string {
	text = strings.TrimSpace(text)
	i := len(text) - 1
	for i >= 0 && text[i] == '#' {
		i--
	}
	if i < len(text)-1 {
		if i < 0 {
			return ""
		}
		if text[i] == ' ' || text[i] == '\t' {
			text = strings.TrimRight(text[:i], " \t")
		}
	}
	return strings.TrimSpace(text)
}
