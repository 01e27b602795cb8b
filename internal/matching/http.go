package matching

import (
	"fmt"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchRequest compares an actual request against the expected one from the
// pact. Request bodies are compared strictly: unexpected keys fail the
// match, because the provider must be able to handle exactly what the
// consumer recorded.
func MatchRequest(expected, actual *domain.Request) domain.RequestMatchResult {
	rules := expected.Rules()
	result := domain.RequestMatchResult{
		Method: matchMethod(expected.Method, actual.Method),
		Path:   matchPath(expected.Path, actual.Path, rules),
		Body:   MatchBody(expected.Body, actual.Body, rules, domain.NoUnexpectedKeys),
	}

	queryCtx := NewContext(domain.AllowUnexpectedKeys, rules.RulesForCategory(domain.CategoryQuery))
	result.Query = MatchQuery(expected.Query, actual.Query, queryCtx)

	headerCtx := NewContext(domain.AllowUnexpectedKeys, rules.RulesForCategory(domain.CategoryHeader))
	result.Headers = MatchHeaders(expected.Headers, actual.Headers, headerCtx)

	return result
}

// MatchResponse compares an actual provider response against the expected
// one. Extra keys in the response body are allowed: providers may return
// more than the consumer needs.
func MatchResponse(expected, actual *domain.Response) domain.ResponseMatchResult {
	rules := expected.Rules()
	result := domain.ResponseMatchResult{
		Status: matchStatus(expected.Status, actual.Status, rules),
		Body:   MatchBody(expected.Body, actual.Body, rules, domain.AllowUnexpectedKeys),
	}

	headerCtx := NewContext(domain.AllowUnexpectedKeys, rules.RulesForCategory(domain.CategoryHeader))
	result.Headers = MatchHeaders(expected.Headers, actual.Headers, headerCtx)

	return result
}

func matchMethod(expected, actual string) *domain.Mismatch {
	if strings.EqualFold(expected, actual) {
		return nil
	}
	return &domain.Mismatch{
		Type:        domain.MismatchMethod,
		Expected:    expected,
		Actual:      actual,
		Description: fmt.Sprintf("Expected method %s but received %s", expected, actual),
	}
}

func matchPath(expected, actual string, rules *domain.MatchingRules) []domain.Mismatch {
	ctx := NewContext(domain.AllowUnexpectedKeys, rules.RulesForCategory(domain.CategoryPath))
	path := []string{"$"}

	var failures []string
	if ctx.MatcherDefined(path) {
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule(expected, actual, rule, cascaded)
		})
	} else if expected != actual {
		failures = []string{fmt.Sprintf("Expected '%s' to be equal to '%s'", expected, actual)}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchPath,
			Expected:    expected,
			Actual:      actual,
			Description: failure,
		})
	}
	return mismatches
}

// matchStatus compares status codes. A status matcher such as a range or an
// explicit code list replaces the equality default.
func matchStatus(expected, actual int, rules *domain.MatchingRules) *domain.Mismatch {
	ctx := NewContext(domain.AllowUnexpectedKeys, rules.RulesForCategory(domain.CategoryStatus))
	path := []string{"$"}

	if ctx.MatcherDefined(path) {
		failures := applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			if rule.Kind == domain.RuleStatusCode {
				return matchStatusCode(actual, rule)
			}
			return matchStringRule(fmt.Sprintf("%d", expected), fmt.Sprintf("%d", actual), rule, cascaded)
		})
		if len(failures) == 0 {
			return nil
		}
		return &domain.Mismatch{
			Type:        domain.MismatchStatus,
			Expected:    fmt.Sprintf("%d", expected),
			Actual:      fmt.Sprintf("%d", actual),
			Description: strings.Join(failures, ", "),
		}
	}

	if expected == actual {
		return nil
	}
	return &domain.Mismatch{
		Type:        domain.MismatchStatus,
		Expected:    fmt.Sprintf("%d", expected),
		Actual:      fmt.Sprintf("%d", actual),
		Description: fmt.Sprintf("expected status of %d but was %d", expected, actual),
	}
}
