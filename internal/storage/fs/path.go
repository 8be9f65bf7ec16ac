package fs

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("unsafe path")

// NormalizeNotePath cleans a slash separated path relative to the notes
// root and rejects anything that would leave it.
func NormalizeNotePath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", ErrUnsafePath
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", ErrUnsafePath
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrUnsafePath
	}
	return clean, nil
}

// NoteFilePath resolves notePath inside repoPath.
func NoteFilePath(repoPath, notePath string) (string, error) {
	clean, err := NormalizeNotePath(notePath)
	if err != nil {
		return "", err
	}
	full := filepath.Join(repoPath, filepath.FromSlash(clean))
	rel, err := filepath.Rel(repoPath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return full, nil
}

// RelNotePath is the inverse of NoteFilePath.
func RelNotePath(repoPath, full string) (string, error) {
	rel, err := filepath.Rel(repoPath, full)
	if err != nil {
		return "", err
	}
	return NormalizeNotePath(filepath.ToSlash(rel))
}

func EnsureMDExt(p string) string {
	if IsNoteFile(p) {
		return p
	}
	return p + ".md"
}

func IsNoteFile(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".md")
}

// IsHidden reports whether any element of the slash path starts with a dot.
func IsHidden(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
