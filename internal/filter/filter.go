// Package filter decides per archive path whether creation should try to
// compress an entry, and how many mirror copies it gets.
//
// Rules are evaluated in authored order and the last matching rule wins.
// A path no rule matches is excluded. Globs never let * or ? cross a path
// separator; ** spans any number of directories.
package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidRule is returned for a rule line that cannot be parsed.
var ErrInvalidRule = errors.New("filter: invalid rule")

// Decision is the outcome of evaluating rules against a path.
type Decision uint8

const (
	Exclude Decision = iota
	Include
)

// String returns "include" or "exclude".
func (d Decision) String() string {
	if d == Include {
		return "include"
	}
	return "exclude"
}

// Rule pairs a glob pattern with the decision it produces on a match.
type Rule struct {
	Pattern  string
	Polarity Decision
}

// Matches reports whether the rule's pattern matches path. A malformed
// pattern never matches.
func (r Rule) Matches(path string) bool {
	ok, err := doublestar.Match(r.Pattern, path)
	return err == nil && ok
}

// Evaluate returns the polarity of the last rule matching path, or Exclude
// when none does.
func Evaluate(path string, rules []Rule) Decision {
	for i := len(rules) - 1; i >= 0; i-- {
		if rules[i].Matches(path) {
			return rules[i].Polarity
		}
	}
	return Exclude
}

// Parse reads rules from r. Each line is "+ glob" or "- glob"; lines starting
// with # and blank lines are ignored.
func Parse(r io.Reader) ([]Rule, error) {
	var rules []Rule
	err := scanLines(r, func(n int, line string) error {
		if len(line) < 2 || line[1] != ' ' {
			return fmt.Errorf("%w: line %d: %q", ErrInvalidRule, n, line)
		}
		var pol Decision
		switch line[0] {
		case '+':
			pol = Include
		case '-':
			pol = Exclude
		default:
			return fmt.Errorf("%w: line %d: %q", ErrInvalidRule, n, line)
		}
		pattern := strings.TrimSpace(line[2:])
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: line %d: bad glob %q", ErrInvalidRule, n, pattern)
		}
		rules = append(rules, Rule{Pattern: pattern, Polarity: pol})
		return nil
	})
	return rules, err
}

// ParseString is Parse over a string.
func ParseString(s string) ([]Rule, error) {
	return Parse(strings.NewReader(s))
}

func scanLines(r io.Reader, fn func(n int, line string) error) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}
