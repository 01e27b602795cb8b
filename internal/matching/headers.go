package matching

import (
	"fmt"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// Headers whose values carry parameters after a semicolon. Their parameter
// maps are compared instead of the raw strings, so a reordered charset does
// not fail the match.
var parameterisedHeaders = map[string]bool{
	"content-type": true,
	"accept":       true,
}

// MatchHeaders compares the headers of two requests or responses, keyed by
// header name. Actual header names are looked up case-insensitively; extra
// actual headers are ignored.
func MatchHeaders(expected, actual map[string][]string, ctx *Context) map[string][]domain.Mismatch {
	result := map[string][]domain.Mismatch{}
	for _, key := range paramKeys(expected) {
		values := expected[key]
		actualValues, ok := findHeader(actual, key)
		if !ok {
			result[key] = append(result[key], headerMismatch(key, strings.Join(values, ", "), "",
				fmt.Sprintf("Expected header '%s' but was missing", key)))
			continue
		}
		for index, value := range values {
			if index >= len(actualValues) {
				result[key] = append(result[key], headerMismatch(key, value, "",
					fmt.Sprintf("Mismatch with header '%s': Expected '%s' but was missing", key, value)))
				continue
			}
			result[key] = append(result[key], matchHeaderValue(key, value, actualValues[index], ctx)...)
		}
	}
	return result
}

func findHeader(headers map[string][]string, key string) ([]string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func matchHeaderValue(key, expected, actual string, ctx *Context) []domain.Mismatch {
	path := []string{"$", key}
	expected = stripWhitespace(expected, ",")
	actual = stripWhitespace(actual, ",")

	var failures []string
	switch {
	case ctx.MatcherDefined(path):
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule(expected, actual, rule, cascaded)
		})
	case parameterisedHeaders[strings.ToLower(key)]:
		return matchParameterHeader(key, expected, actual)
	default:
		if expected != actual {
			failures = []string{fmt.Sprintf("Expected '%s' to be equal to '%s'", expected, actual)}
		}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, headerMismatch(key, expected, actual,
			fmt.Sprintf("Mismatch with header '%s': %s", key, failure)))
	}
	return mismatches
}

// matchParameterHeader compares a parameterised header such as Content-Type:
// the base values must be equal and every expected parameter must be present
// with the same value. Extra actual parameters are ignored.
func matchParameterHeader(key, expected, actual string) []domain.Mismatch {
	mismatch := headerMismatch(key, expected, actual,
		fmt.Sprintf("Expected header '%s' to have value '%s' but was '%s'", key, expected, actual))

	expectedParts := splitTrimmed(expected, ";")
	actualParts := splitTrimmed(actual, ";")
	if expectedParts[0] != actualParts[0] {
		return []domain.Mismatch{mismatch}
	}

	expectedParams := parseHeaderParameters(expectedParts[1:])
	actualParams := parseHeaderParameters(actualParts[1:])
	for k, v := range expectedParams {
		if actualValue, ok := actualParams[k]; !ok || actualValue != v {
			return []domain.Mismatch{mismatch}
		}
	}
	return nil
}

func parseHeaderParameters(parameters []string) map[string]string {
	params := map[string]string{}
	for _, parameter := range parameters {
		if name, value, ok := strings.Cut(parameter, "="); ok {
			params[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}
	return params
}

func splitTrimmed(value, separator string) []string {
	parts := strings.Split(value, separator)
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func stripWhitespace(value, separator string) string {
	return strings.Join(splitTrimmed(value, separator), separator)
}

func headerMismatch(key, expected, actual, description string) domain.Mismatch {
	return domain.Mismatch{
		Type:        domain.MismatchHeader,
		Key:         key,
		Expected:    expected,
		Actual:      actual,
		Description: description,
	}
}
