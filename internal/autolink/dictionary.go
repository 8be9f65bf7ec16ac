package autolink

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Dictionary supplies the entity names known at the time of a call.
type Dictionary interface {
	EntityNames(ctx context.Context) ([]string, error)
}

// DefaultStopNames are URL schemes; linking them would break bare URLs.
var DefaultStopNames = []string{"http", "https", "ftp", "mailto", "file"}

// DefaultMinRunes is the shortest name that may link.
const DefaultMinRunes = 2

type StaticDictionary []string

func (d StaticDictionary) EntityNames(context.Context) ([]string, error) {
	out := make([]string, len(d))
	copy(out, d)
	return out, nil
}

// DictionaryFunc adapts a function to Dictionary.
type DictionaryFunc func(ctx context.Context) ([]string, error)

func (f DictionaryFunc) EntityNames(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// FilterDictionary drops stop names (compared case-insensitively), names
// shorter than MinRunes and surrounding whitespace from Source.
type FilterDictionary struct {
	Source   Dictionary
	Stop     []string
	MinRunes int
}

func (d FilterDictionary) EntityNames(ctx context.Context) ([]string, error) {
	if d.Source == nil {
		return nil, ErrNoDictionary
	}
	names, err := d.Source.EntityNames(ctx)
	if err != nil {
		return nil, err
	}
	stop := make(map[string]struct{}, len(d.Stop))
	for _, s := range d.Stop {
		stop[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	out := names[:0:0]
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || utf8.RuneCountInString(name) < d.MinRunes {
			continue
		}
		if _, ok := stop[strings.ToLower(name)]; ok {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

type namesFile struct {
	Names []string `yaml:"names"`
}

// LoadNamesFile reads a names list. YAML files hold either a top-level list
// or a "names" key; any other file is one name per line with # comments.
func LoadNamesFile(path string) (StaticDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseNamesYAML(data)
	default:
		return parseNamesText(data)
	}
}

func parseNamesYAML(data []byte) (StaticDictionary, error) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return StaticDictionary(list), nil
	}
	var doc namesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse names yaml: %w", err)
	}
	return StaticDictionary(doc.Names), nil
}

func parseNamesText(data []byte) (StaticDictionary, error) {
	var names StaticDictionary
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
