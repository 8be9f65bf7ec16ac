package autolink

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tchap/go-patricia/v2/patricia"
)

var ErrInvalidName = errors.New("invalid entity name")

// Match is the result of a longest-prefix query.
type Match struct {
	// Name is the indexed name in its original spelling.
	Name string
	// Len is the number of bytes of the scanned text covered by the match.
	Len int
}

type indexEntry struct {
	name   string
	keyLen int
}

// NameIndex answers longest-prefix queries over the known entity names.
// Rebuild replaces the content in full; queries may run concurrently.
type NameIndex struct {
	mu              sync.RWMutex
	trie            *patricia.Trie
	caseInsensitive bool
	maxKeyLen       int
	size            int
}

func NewNameIndex() *NameIndex {
	return &NameIndex{trie: patricia.NewTrie()}
}

// Rebuild indexes names, folding case when caseInsensitive is set. Names that
// fold to the same key keep the lexicographically smallest spelling.
func (x *NameIndex) Rebuild(names []string, caseInsensitive bool) error {
	sorted := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if !utf8.ValidString(name) {
			return fmt.Errorf("%w: %q is not valid utf-8", ErrInvalidName, name)
		}
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	trie := patricia.NewTrie()
	maxKeyLen := 0
	size := 0
	for _, name := range sorted {
		key := name
		if caseInsensitive {
			key = foldString(name)
		}
		if !trie.Insert(patricia.Prefix(key), indexEntry{name: name, keyLen: len(key)}) {
			continue
		}
		size++
		if len(key) > maxKeyLen {
			maxKeyLen = len(key)
		}
	}

	x.mu.Lock()
	x.trie = trie
	x.caseInsensitive = caseInsensitive
	x.maxKeyLen = maxKeyLen
	x.size = size
	x.mu.Unlock()
	return nil
}

// Len returns the number of distinct keys in the index.
func (x *NameIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

func (x *NameIndex) CaseInsensitive() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.caseInsensitive
}

// LongestMatch returns the longest indexed name that prefixes text.
func (x *NameIndex) LongestMatch(text string) (Match, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.size == 0 || text == "" {
		return Match{}, false
	}

	key := text
	var ends []foldEnd
	if x.caseInsensitive {
		key, ends = foldPrefix(text, x.maxKeyLen)
	} else if len(key) > x.maxKeyLen {
		key = key[:x.maxKeyLen]
	}

	var best indexEntry
	found := false
	_ = x.trie.VisitPrefixes(patricia.Prefix(key), func(_ patricia.Prefix, item patricia.Item) error {
		entry, ok := item.(indexEntry)
		if !ok {
			return nil
		}
		if !found || entry.keyLen > best.keyLen {
			best = entry
			found = true
		}
		return nil
	})
	if !found {
		return Match{}, false
	}

	n := best.keyLen
	if x.caseInsensitive {
		n = sourceOffset(ends, best.keyLen)
		if n < 0 {
			return Match{}, false
		}
	}
	return Match{Name: best.name, Len: n}, true
}

// foldEnd maps the end of a folded rune back to the end of the source rune.
type foldEnd struct {
	folded int
	source int
}

func foldRune(r rune) rune {
	return unicode.ToLower(r)
}

func foldString(s string) string {
	return strings.Map(foldRune, s)
}

// foldPrefix folds text rune by rune until at least limit folded bytes exist.
func foldPrefix(text string, limit int) (string, []foldEnd) {
	var b strings.Builder
	ends := make([]foldEnd, 0, limit)
	for i, r := range text {
		if b.Len() >= limit {
			break
		}
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			ends = append(ends, foldEnd{folded: b.Len(), source: i + size})
			continue
		}
		b.WriteRune(foldRune(r))
		ends = append(ends, foldEnd{folded: b.Len(), source: i + utf8.RuneLen(r)})
	}
	return b.String(), ends
}

func sourceOffset(ends []foldEnd, folded int) int {
	idx := sort.Search(len(ends), func(i int) bool { return ends[i].folded >= folded })
	if idx == len(ends) || ends[idx].folded != folded {
		return -1
	}
	return ends[idx].source
}
