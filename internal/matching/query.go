package matching

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchQuery compares the query parameters of two requests, keyed by
// parameter name. Nil maps stand for requests without a query string.
func MatchQuery(expected, actual map[string][]string, ctx *Context) map[string][]domain.Mismatch {
	result := map[string][]domain.Mismatch{}
	switch {
	case expected == nil && actual == nil:
		return result
	case expected == nil:
		for _, key := range paramKeys(actual) {
			result[key] = append(result[key], queryMismatch(key, "", formatStringList(actual[key]),
				fmt.Sprintf("Unexpected query parameter '%s' received", key)))
		}
		return result
	case actual == nil:
		for _, key := range paramKeys(expected) {
			result[key] = append(result[key], queryMismatch(key, formatStringList(expected[key]), "",
				fmt.Sprintf("Expected query parameter '%s' but was missing", key)))
		}
		return result
	}

	for _, key := range paramKeys(expected) {
		if actualValues, ok := actual[key]; ok {
			result[key] = append(result[key], matchQueryValues(key, expected[key], actualValues, ctx)...)
		} else {
			result[key] = append(result[key], queryMismatch(key, formatStringList(expected[key]), "",
				fmt.Sprintf("Expected query parameter '%s' but was missing", key)))
		}
	}
	for _, key := range paramKeys(actual) {
		if _, ok := expected[key]; !ok {
			result[key] = append(result[key], queryMismatch(key, "", formatStringList(actual[key]),
				fmt.Sprintf("Unexpected query parameter '%s' received", key)))
		}
	}
	return result
}

func matchQueryValues(key string, expected, actual []string, ctx *Context) []domain.Mismatch {
	path := []string{"$", key}
	if ctx.MatcherDefined(path) {
		var mismatches []domain.Mismatch
		list := ctx.SelectBestMatcher(path)
		for _, rule := range list.Rules {
			mismatches = append(mismatches, compareQueryListWithRule(rule, list.Cascaded, key, path, expected, actual, ctx)...)
		}
		return mismatches
	}

	if len(expected) == 0 && len(actual) > 0 {
		return []domain.Mismatch{queryMismatch(key, formatStringList(expected), formatStringList(actual),
			fmt.Sprintf("Expected an empty parameter list for '%s' but received %s", key, formatStringList(actual)))}
	}

	var mismatches []domain.Mismatch
	if len(expected) != len(actual) {
		mismatches = append(mismatches, queryMismatch(key, formatStringList(expected), formatStringList(actual),
			fmt.Sprintf("Expected query parameter '%s' with %d value(s) but received %d value(s)",
				key, len(expected), len(actual))))
	}
	for index, value := range expected {
		if index < len(actual) {
			mismatches = append(mismatches, compareQueryValue(key, path, value, actual[index], index, ctx)...)
		} else {
			mismatches = append(mismatches, queryMismatch(key, formatStringList(expected), formatStringList(actual),
				fmt.Sprintf("Expected query parameter '%s' value '%s' but was missing", key, value)))
		}
	}
	return mismatches
}

// compareQueryListWithRule applies a rule registered against the parameter
// itself. Length bounds are checked against the actual value list, then the
// values are compared pairwise with the first expected value standing in for
// any extra actual ones.
func compareQueryListWithRule(rule domain.MatchingRule, cascaded bool, key string, path []string, expected, actual []string, ctx *Context) []domain.Mismatch {
	var mismatches []domain.Mismatch
	if err := matchStringListRule(actual, rule, cascaded); err != nil {
		mismatches = append(mismatches, queryMismatch(key, formatStringList(expected), formatStringList(actual), err.Error()))
	}

	if len(expected) == 0 {
		return mismatches
	}
	for index, actualValue := range actual {
		expectedValue := expected[0]
		if index < len(expected) {
			expectedValue = expected[index]
		}
		mismatches = append(mismatches, compareQueryValue(key, path, expectedValue, actualValue, index, ctx)...)
	}
	return mismatches
}

// matchStringListRule applies length bounds to a value list. Other rule
// kinds cascade down to the individual values.
func matchStringListRule(actual []string, rule domain.MatchingRule, cascaded bool) error {
	if cascaded {
		return nil
	}
	switch rule.Kind {
	case domain.RuleMinType:
		if len(actual) < rule.Min {
			return fmt.Errorf("Expected list with length %d to have a minimum length of %d", len(actual), rule.Min)
		}
	case domain.RuleMaxType:
		if len(actual) > rule.Max {
			return fmt.Errorf("Expected list with length %d to have a maximum length of %d", len(actual), rule.Max)
		}
	case domain.RuleMinMaxType:
		if len(actual) < rule.Min {
			return fmt.Errorf("Expected list with length %d to have a minimum length of %d", len(actual), rule.Min)
		}
		if len(actual) > rule.Max {
			return fmt.Errorf("Expected list with length %d to have a maximum length of %d", len(actual), rule.Max)
		}
	}
	return nil
}

func compareQueryValue(key string, path []string, expected, actual string, index int, ctx *Context) []domain.Mismatch {
	indexPath := append(append([]string{}, path...), strconv.Itoa(index))
	var failures []string
	if ctx.MatcherDefined(indexPath) {
		failures = applyRuleList(indexPath, ctx.SelectBestMatcher(indexPath), func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule(expected, actual, rule, cascaded)
		})
	} else if expected != actual {
		failures = []string{fmt.Sprintf("Expected query parameter '%s' with value '%s' but was '%s'",
			key, expected, actual)}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, queryMismatch(key, expected, actual, failure))
	}
	return mismatches
}

func queryMismatch(key, expected, actual, description string) domain.Mismatch {
	return domain.Mismatch{
		Type:        domain.MismatchQuery,
		Parameter:   key,
		Expected:    expected,
		Actual:      actual,
		Description: description,
	}
}

// formatStringList renders a value list for a mismatch message.
func formatStringList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func paramKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
