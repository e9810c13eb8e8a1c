package filter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// CopyRule assigns mirror counts to matching paths. Mirrors is carried in the
// narrow copy field and MirrorsWide in the wide one, for revisions that
// have both.
type CopyRule struct {
	Pattern     string
	Mirrors     uint8
	MirrorsWide uint16
}

// Total returns the number of mirror copies the rule requests.
func (c CopyRule) Total() int {
	return int(c.Mirrors) + int(c.MirrorsWide)
}

// EvaluateCopies returns the last copy rule matching path. A path no rule
// matches gets a zero rule.
func EvaluateCopies(path string, rules []CopyRule) CopyRule {
	for i := len(rules) - 1; i >= 0; i-- {
		if ok, err := doublestar.Match(rules[i].Pattern, path); err == nil && ok {
			return rules[i]
		}
	}
	return CopyRule{Pattern: path}
}

// ParseCopyRules reads copy rules from r. Each line is "N+M glob".
func ParseCopyRules(r io.Reader) ([]CopyRule, error) {
	var rules []CopyRule
	err := scanLines(r, func(n int, line string) error {
		counts, pattern, ok := strings.Cut(line, " ")
		pattern = strings.TrimSpace(pattern)
		if !ok || pattern == "" || !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: line %d: %q", ErrInvalidRule, n, line)
		}
		narrow, wide, ok := strings.Cut(counts, "+")
		if !ok {
			return fmt.Errorf("%w: line %d: copy counts %q", ErrInvalidRule, n, counts)
		}
		m, err := strconv.ParseUint(narrow, 10, 8)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidRule, n, err)
		}
		w, err := strconv.ParseUint(wide, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidRule, n, err)
		}
		rules = append(rules, CopyRule{Pattern: pattern, Mirrors: uint8(m), MirrorsWide: uint16(w)})
		return nil
	})
	return rules, err
}
