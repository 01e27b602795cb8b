package matching

import (
	"fmt"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchMessage compares an actual message produced by the provider against
// the expected one from the pact. Contents are compared like response
// bodies; metadata entries are matched individually by key.
func MatchMessage(expected, actual *domain.Message) domain.MessageMatchResult {
	rules := expected.Rules()
	result := domain.MessageMatchResult{
		Body:     matchMessageContents(expected, actual, rules),
		Metadata: matchMessageMetadata(expected, actual, rules),
	}
	return result
}

func matchMessageContents(expected, actual *domain.Message, rules *domain.MatchingRules) domain.BodyMatchResult {
	expectedCT := expected.ContentType()
	actualCT := actual.ContentType()

	if expectedCT.Equal(actualCT) || expectedCT.IsUnknown() || actualCT.IsUnknown() {
		// Message rules live under the V4 "content" category, with the V3
		// "body" category as the fallback.
		category := rules.RulesForCategory(domain.CategoryContents)
		if category.IsEmpty() {
			category = rules.RulesForCategory(domain.CategoryBody)
		}
		ctx := NewContext(domain.AllowUnexpectedKeys, category)
		return matchBodyContent(expectedCT, expected.Contents, actual.Contents, ctx)
	}

	if expected.Contents.IsPresent() {
		return domain.BodyMatchResult{TypeMismatch: &domain.Mismatch{
			Type:     domain.MismatchBodyType,
			Expected: expectedCT.String(),
			Actual:   actualCT.String(),
			Description: fmt.Sprintf("Expected message with content type %s but was %s",
				expectedCT, actualCT),
		}}
	}
	return domain.BodyMatchResult{}
}

func matchMessageMetadata(expected, actual *domain.Message, rules *domain.MatchingRules) map[string][]domain.Mismatch {
	result := map[string][]domain.Mismatch{}
	ctx := NewContext(domain.AllowUnexpectedKeys, rules.RulesForCategory(domain.CategoryMetadata))
	for _, key := range mapKeys(expected.Metadata) {
		// The content type is matched through the body comparison.
		if key == "contentType" || key == "content-type" {
			continue
		}
		expectedValue := expected.Metadata[key]
		actualValue, ok := actual.Metadata[key]
		if !ok {
			result[key] = append(result[key], domain.Mismatch{
				Type:        domain.MismatchMetadata,
				Key:         key,
				Expected:    jsonToString(expectedValue),
				Description: fmt.Sprintf("Expected message metadata '%s' but was missing", key),
			})
			continue
		}
		result[key] = append(result[key], matchMetadataValue(key, expectedValue, actualValue, ctx)...)
	}
	return result
}

func matchMetadataValue(key string, expected, actual any, ctx *Context) []domain.Mismatch {
	path := []string{"$", key}
	var failures []string
	if ctx.MatcherDefined(path) {
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchJSONRule(expected, actual, rule, cascaded)
		})
	} else if jsonToString(expected) != jsonToString(actual) {
		failures = []string{fmt.Sprintf("Expected message metadata '%s' with value '%s' but was '%s'",
			key, jsonToString(expected), jsonToString(actual))}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchMetadata,
			Key:         key,
			Expected:    jsonToString(expected),
			Actual:      jsonToString(actual),
			Description: failure,
		})
	}
	return mismatches
}
