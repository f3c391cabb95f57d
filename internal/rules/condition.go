package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned for empty or uncompilable regex conditions.
var ErrInvalidPattern = errors.New("invalid pattern")

// Condition roles that compare case-insensitively.
var insensitiveRoles = map[string]bool{
	"AuthorRegex":       true,
	"UserRegex":         true,
	"ChgTypeRegex":      true,
	"CapabilitiesRegex": true,
}

// Condition roles that anchor at the start of the subject. The rest scan
// the whole subject for a match.
var anchoredRoles = map[string]bool{
	"ChgTypeRegex":      true,
	"CapabilitiesRegex": true,
}

// Condition is a compiled regex predicate from a rule-file tag such as
// <PathRegex sense="false">^/tags/</PathRegex>. Sense false inverts the
// match result.
type Condition struct {
	Role    string
	Pattern string
	Sense   bool
	re      *regexp.Regexp
}

// senseTrue matches the attribute values that mean "normal sense".
var senseTrue = regexp.MustCompile(`(?i)^(1|true|yes)$`)

// ParseSense interprets a sense/matchFirst-style boolean attribute.
// Missing attributes default to def.
func ParseSense(value string, present bool, def bool) bool {
	if !present {
		return def
	}
	return senseTrue.MatchString(value)
}

// CompileCondition builds a Condition from a regex tag element.
func CompileCondition(tag *Element) (*Condition, error) {
	pattern := tag.Text
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: required tag content missing: %s", ErrInvalidPattern, tag.Name())
	}

	expr := pattern
	if anchoredRoles[tag.Name()] {
		expr = `\A(?:` + expr + `)`
	}
	if insensitiveRoles[tag.Name()] {
		expr = `(?i)` + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, tag.Name(), err)
	}

	v, ok := tag.Attr("sense")
	return &Condition{
		Role:    tag.Name(),
		Pattern: pattern,
		Sense:   ParseSense(v, ok, true),
		re:      re,
	}, nil
}

// Matches reports whether the subject satisfies the condition, honoring the
// sense flag: with sense false the condition holds exactly when the regex
// does not match.
func (c *Condition) Matches(subject string) bool {
	m := c.re.MatchString(subject)
	if c.Sense {
		return m
	}
	return !m
}
