// Package matching implements the comparison engine: value matchers driven
// by matching rules, body comparators for the supported content types, and
// the request, response and message entry points.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// Context carries the matching rules of one category plus the diff
// configuration through a comparison.
type Context struct {
	Config domain.DiffConfig
	rules  *domain.MatchingRuleCategory
}

func NewContext(config domain.DiffConfig, rules *domain.MatchingRuleCategory) *Context {
	return &Context{Config: config, rules: rules}
}

// ContextWithConfig builds a context with no matching rules.
func ContextWithConfig(config domain.DiffConfig) *Context {
	return &Context{Config: config}
}

func (c *Context) MatcherDefined(path []string) bool {
	return c.rules.MatcherDefined(path)
}

func (c *Context) SelectBestMatcher(path []string) domain.RuleList {
	return c.rules.MaxByPath(path)
}

func (c *Context) WildcardMatcherDefined(path []string) bool {
	return c.rules.WildcardMatcherDefined(path)
}

func (c *Context) ValuesMatcherDefined(path []string) bool {
	return c.rules.ValuesMatcherDefined(path)
}

func (c *Context) TypeMatcherDefined(path []string) bool {
	return c.rules.TypeMatcherDefined(path)
}

// CloneWith returns a context with the same configuration but a different
// rule category, used when descending into ArrayContains variants.
func (c *Context) CloneWith(rules *domain.MatchingRuleCategory) *Context {
	return &Context{Config: c.Config, rules: rules}
}

// MatchKeys compares the key sets of two maps according to the diff
// configuration: extra actual keys are a mismatch only when unexpected keys
// are disallowed, missing expected keys always are.
func (c *Context) MatchKeys(path []string, expected, actual map[string]any) []domain.Mismatch {
	expectedKeys := mapKeys(expected)
	actualKeys := mapKeys(actual)

	var missing []string
	for _, k := range expectedKeys {
		if _, ok := actual[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)

	var mismatches []domain.Mismatch
	switch {
	case c.Config == domain.AllowUnexpectedKeys && len(missing) > 0:
		mismatches = append(mismatches, domain.Mismatch{
			Type:     domain.MismatchBody,
			Path:     strings.Join(path, "."),
			Expected: jsonRepr(expected),
			Actual:   jsonRepr(actual),
			Description: fmt.Sprintf("Actual map is missing the following keys: %s",
				strings.Join(missing, ", ")),
		})
	case c.Config == domain.NoUnexpectedKeys && !equalStrings(expectedKeys, actualKeys):
		mismatches = append(mismatches, domain.Mismatch{
			Type:     domain.MismatchBody,
			Path:     strings.Join(path, "."),
			Expected: jsonRepr(expected),
			Actual:   jsonRepr(actual),
			Description: fmt.Sprintf("Expected a Map with keys %s but received one with keys %s",
				strings.Join(expectedKeys, ", "), strings.Join(actualKeys, ", ")),
		})
	}
	return mismatches
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
