package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchJSON compares two JSON bodies. The parser keeps integers and floats
// distinct, which the Integer and Decimal rules rely on.
func MatchJSON(expected, actual []byte, ctx *Context) []domain.Mismatch {
	expectedJSON, expErr := oj.Parse(expected)
	actualJSON, actErr := oj.Parse(actual)

	if expErr != nil || actErr != nil {
		var mismatches []domain.Mismatch
		if expErr != nil {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    string(expected),
				Actual:      string(actual),
				Description: fmt.Sprintf("Failed to parse the expected body: '%s'", expErr),
			})
		}
		if actErr != nil {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    string(expected),
				Actual:      string(actual),
				Description: fmt.Sprintf("Failed to parse the actual body: '%s'", actErr),
			})
		}
		return mismatches
	}

	return compareJSON([]string{"$"}, expectedJSON, actualJSON, ctx)
}

func compareJSON(path []string, expected, actual any, ctx *Context) []domain.Mismatch {
	switch exp := expected.(type) {
	case map[string]any:
		if act, ok := actual.(map[string]any); ok {
			return compareJSONMaps(path, exp, act, ctx)
		}
		return []domain.Mismatch{typeMismatch(path, expected, actual)}
	case []any:
		if act, ok := actual.([]any); ok {
			return compareJSONLists(path, exp, act, ctx)
		}
		return []domain.Mismatch{typeMismatch(path, expected, actual)}
	default:
		return compareJSONValues(path, expected, actual, ctx)
	}
}

func typeMismatch(path []string, expected, actual any) domain.Mismatch {
	return domain.Mismatch{
		Type:     domain.MismatchBody,
		Path:     strings.Join(path, "."),
		Expected: jsonToString(expected),
		Actual:   jsonToString(actual),
		Description: fmt.Sprintf("Type mismatch: Expected %s %s but received %s %s",
			typeOf(expected), jsonRepr(expected), typeOf(actual), jsonRepr(actual)),
	}
}

func compareJSONMaps(path []string, expected, actual map[string]any, ctx *Context) []domain.Mismatch {
	if len(expected) == 0 && len(actual) > 0 {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    jsonRepr(expected),
			Actual:      jsonRepr(actual),
			Description: fmt.Sprintf("Expected an empty Map but received %s", jsonRepr(actual)),
		}}
	}

	var mismatches []domain.Mismatch
	if ctx.MatcherDefined(path) {
		list := ctx.SelectBestMatcher(path)
		for _, rule := range list.Rules {
			mismatches = append(mismatches, compareMapWithRule(rule, path, expected, actual, ctx)...)
		}
		return mismatches
	}

	mismatches = append(mismatches, ctx.MatchKeys(path, expected, actual)...)
	for _, key := range mapKeys(expected) {
		childPath := append(append([]string{}, path...), key)
		if actualValue, ok := actual[key]; ok {
			mismatches = append(mismatches, compareJSON(childPath, expected[key], actualValue, ctx)...)
		} else if !ctx.WildcardMatcherDefined(childPath) {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        strings.Join(path, "."),
				Expected:    jsonRepr(expected),
				Actual:      jsonRepr(actual),
				Description: fmt.Sprintf("Expected entry %s=%s but was missing", key, jsonToString(expected[key])),
			})
		}
	}
	return mismatches
}

// compareMapWithRule delegates a map comparison to a matching rule. A Values
// rule compares the actual entries regardless of their keys; anything else
// checks the key sets and recurses into the common entries.
func compareMapWithRule(rule domain.MatchingRule, path []string, expected, actual map[string]any, ctx *Context) []domain.Mismatch {
	var mismatches []domain.Mismatch
	if rule.Kind == domain.RuleValues || ctx.ValuesMatcherDefined(path) {
		expectedKeys := mapKeys(expected)
		for _, key := range mapKeys(actual) {
			childPath := append(append([]string{}, path...), key)
			if expectedValue, ok := expected[key]; ok {
				mismatches = append(mismatches, compareJSON(childPath, expectedValue, actual[key], ctx)...)
			} else if len(expectedKeys) > 0 {
				mismatches = append(mismatches, compareJSON(childPath, expected[expectedKeys[0]], actual[key], ctx)...)
			}
		}
		return mismatches
	}

	mismatches = append(mismatches, ctx.MatchKeys(path, expected, actual)...)
	for _, key := range mapKeys(expected) {
		if actualValue, ok := actual[key]; ok {
			childPath := append(append([]string{}, path...), key)
			mismatches = append(mismatches, compareJSON(childPath, expected[key], actualValue, ctx)...)
		}
	}
	return mismatches
}

func compareJSONLists(path []string, expected, actual []any, ctx *Context) []domain.Mismatch {
	if ctx.MatcherDefined(path) {
		var mismatches []domain.Mismatch
		list := ctx.SelectBestMatcher(path)
		for _, rule := range list.Rules {
			mismatches = append(mismatches, compareListWithRule(rule, list.Cascaded, path, expected, actual, ctx)...)
		}
		return mismatches
	}

	if len(expected) == 0 && len(actual) > 0 {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    jsonRepr(expected),
			Actual:      jsonRepr(actual),
			Description: fmt.Sprintf("Expected an empty List but received %s", jsonRepr(actual)),
		}}
	}

	mismatches := compareListContent(path, expected, actual, ctx)
	if len(expected) != len(actual) {
		mismatches = append(mismatches, domain.Mismatch{
			Type:     domain.MismatchBody,
			Path:     strings.Join(path, "."),
			Expected: jsonRepr(expected),
			Actual:   jsonRepr(actual),
			Description: fmt.Sprintf("Expected a List with %d elements but received %d elements",
				len(expected), len(actual)),
		})
	}
	return mismatches
}

func compareListContent(path []string, expected, actual []any, ctx *Context) []domain.Mismatch {
	var mismatches []domain.Mismatch
	for index, value := range expected {
		childPath := append(append([]string{}, path...), strconv.Itoa(index))
		if index < len(actual) {
			mismatches = append(mismatches, compareJSON(childPath, value, actual[index], ctx)...)
		} else if !ctx.MatcherDefined(childPath) {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        strings.Join(path, "."),
				Expected:    jsonRepr(expected),
				Actual:      jsonRepr(actual),
				Description: fmt.Sprintf("Expected %s but was missing", jsonToString(value)),
			})
		}
	}
	return mismatches
}

// compareListWithRule delegates a list comparison to a matching rule. An
// ArrayContains rule probes the actual list for each expected variant; other
// rules check the list bounds and compare element-wise against the first
// expected element repeated to the actual length.
func compareListWithRule(rule domain.MatchingRule, cascaded bool, path []string, expected, actual []any, ctx *Context) []domain.Mismatch {
	if rule.Kind == domain.RuleArrayContains {
		return compareArrayContains(rule, path, expected, actual, ctx)
	}

	var mismatches []domain.Mismatch
	if err := matchJSONListRule(expected, actual, rule, cascaded); err != nil {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    jsonRepr(expected),
			Actual:      jsonRepr(actual),
			Description: err.Error(),
		})
	}

	if len(expected) == 0 {
		return mismatches
	}
	example := expected[0]
	for index := range actual {
		childPath := append(append([]string{}, path...), strconv.Itoa(index))
		expectedValue := example
		if index < len(expected) {
			expectedValue = expected[index]
		}
		mismatches = append(mismatches, compareJSON(childPath, expectedValue, actual[index], ctx)...)
	}
	return mismatches
}

// matchJSONListRule applies a rule to the lists themselves. Inherited rules
// do not re-check length bounds.
func matchJSONListRule(expected, actual []any, rule domain.MatchingRule, cascaded bool) error {
	switch rule.Kind {
	case domain.RuleType, domain.RuleNotEmpty:
		return nil
	case domain.RuleMinType:
		if !cascaded && len(actual) < rule.Min {
			return fmt.Errorf("Expected list with length %d to have a minimum length of %d", len(actual), rule.Min)
		}
		return nil
	case domain.RuleMaxType:
		if !cascaded && len(actual) > rule.Max {
			return fmt.Errorf("Expected list with length %d to have a maximum length of %d", len(actual), rule.Max)
		}
		return nil
	case domain.RuleMinMaxType:
		if !cascaded && len(actual) < rule.Min {
			return fmt.Errorf("Expected list with length %d to have a minimum length of %d", len(actual), rule.Min)
		}
		if !cascaded && len(actual) > rule.Max {
			return fmt.Errorf("Expected list with length %d to have a maximum length of %d", len(actual), rule.Max)
		}
		return nil
	default:
		return matchJSONRule(expected, actual, rule, cascaded)
	}
}

func compareArrayContains(rule domain.MatchingRule, path []string, expected, actual []any, ctx *Context) []domain.Mismatch {
	variants := rule.Variants
	if len(variants) == 0 {
		variants = make([]domain.ArrayContainsVariant, len(expected))
		for i := range expected {
			equality := domain.NewCategory(domain.CategoryBody)
			_ = equality.AddRule("$", domain.LogicAnd, domain.EqualityRule())
			variants[i] = domain.ArrayContainsVariant{Index: i, Rules: equality}
		}
	}

	var mismatches []domain.Mismatch
	for _, variant := range variants {
		if variant.Index >= len(expected) {
			mismatches = append(mismatches, domain.Mismatch{
				Type:     domain.MismatchBody,
				Path:     strings.Join(path, "."),
				Expected: jsonRepr(expected),
				Actual:   jsonRepr(actual),
				Description: fmt.Sprintf("ArrayContains: variant %d is missing from the expected list, which has %d items",
					variant.Index, len(expected)),
			})
			continue
		}
		expectedValue := expected[variant.Index]
		variantCtx := ctx.CloneWith(variant.Rules)
		found := false
		for _, actualValue := range actual {
			if len(compareJSON([]string{"$"}, expectedValue, actualValue, variantCtx)) == 0 {
				found = true
				break
			}
		}
		if !found {
			mismatches = append(mismatches, domain.Mismatch{
				Type:     domain.MismatchBody,
				Path:     strings.Join(path, "."),
				Expected: jsonRepr(expectedValue),
				Actual:   jsonRepr(actual),
				Description: fmt.Sprintf("Variant at index %d (%s) was not found in the actual list",
					variant.Index, jsonRepr(expectedValue)),
			})
		}
	}
	return mismatches
}

func compareJSONValues(path []string, expected, actual any, ctx *Context) []domain.Mismatch {
	var failures []string
	if ctx.MatcherDefined(path) {
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchJSONRule(expected, actual, rule, cascaded)
		})
	} else {
		if err := matchJSONRule(expected, actual, domain.EqualityRule(), false); err != nil {
			failures = []string{err.Error()}
		}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    jsonRepr(expected),
			Actual:      jsonRepr(actual),
			Description: failure,
		})
	}
	return mismatches
}
