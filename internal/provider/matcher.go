package provider

import (
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Matcher recognises a provider-specific payload shape with JMESPath.
//
// Match is a boolean-ish expression evaluated against the decoded JSON
// document; Message, when set, extracts the provider's own wording for the
// notice. Expressions are validated once at construction.
type Matcher struct {
	match   string
	message string
}

// NewMatcher compiles both expressions and fails on syntax errors.
func NewMatcher(match, message string) (*Matcher, error) {
	if _, err := jmespath.Compile(match); err != nil {
		return nil, fmt.Errorf("provider: compiling matcher %q: %w", match, err)
	}
	if message != "" {
		if _, err := jmespath.Compile(message); err != nil {
			return nil, fmt.Errorf("provider: compiling matcher message %q: %w", message, err)
		}
	}
	return &Matcher{match: match, message: message}, nil
}

// MustMatcher is NewMatcher for package-level matchers with literal expressions.
func MustMatcher(match, message string) *Matcher {
	p, err := NewMatcher(match, message)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether doc has the expected shape. Evaluation errors (for
// example contains() on a non-string) count as no match.
func (p *Matcher) Match(doc any) bool {
	if p == nil {
		return false
	}
	v, err := jmespath.Search(p.match, doc)
	if err != nil {
		return false
	}
	return truthy(v)
}

// Message extracts the provider's text, or "" when there is none.
func (p *Matcher) Message(doc any) string {
	if p == nil || p.message == "" {
		return ""
	}
	v, err := jmespath.Search(p.message, doc)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// truthy follows JMESPath's definition of false: null, false, "", [] and {}.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
