// Package pathutil handles the slash-separated names stored in archive
// headers.
package pathutil

import (
	"fmt"
	"path"
	"strings"

	"github.com/meigma/bfstool/internal/bfstype"
)

// Normalize turns an entry name into a clean relative slash path that stays
// inside its extraction root. Backslashes count as separators.
func Normalize(name string) (string, error) {
	p := strings.ReplaceAll(name, `\`, "/")
	if p == "" || strings.HasPrefix(p, "/") || strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: %q", bfstype.ErrUnsafePath, name)
	}
	if len(p) >= 2 && p[1] == ':' {
		return "", fmt.Errorf("%w: %q has a drive letter", bfstype.ErrUnsafePath, name)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", bfstype.ErrUnsafePath, name)
		}
	}
	p = path.Clean(p)
	if p == "." {
		return "", fmt.Errorf("%w: %q", bfstype.ErrUnsafePath, name)
	}
	return p, nil
}

// Dir returns everything before the last slash, or "" for a top-level name.
func Dir(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// Child extracts the immediate child of prefix in p and reports whether more
// path components follow it.
func Child(p, prefix string) (name string, isDir bool) {
	rel := strings.TrimPrefix(p, prefix)
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i], true
	}
	return rel, false
}
