package matching

import (
	"fmt"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchBody compares two bodies, taking the content type of each into
// account. Bodies with differing known content types are a type mismatch;
// otherwise the comparison is delegated to the comparator for the expected
// content type, falling back to plain text.
func MatchBody(expected, actual domain.OptionalBody, rules *domain.MatchingRules, config domain.DiffConfig) domain.BodyMatchResult {
	expectedCT := expected.ContentType
	actualCT := actual.ContentType

	if expectedCT.IsUnknown() || actualCT.IsUnknown() || expectedCT.Equal(actualCT) {
		ctx := NewContext(config, rules.RulesForCategory(domain.CategoryBody))
		return matchBodyContent(expectedCT, expected, actual, ctx)
	}

	if expected.IsPresent() {
		return domain.BodyMatchResult{TypeMismatch: &domain.Mismatch{
			Type:     domain.MismatchBodyType,
			Expected: expectedCT.String(),
			Actual:   actualCT.String(),
			Description: fmt.Sprintf("Expected body with content type %s but was %s",
				expectedCT, actualCT),
		}}
	}
	return domain.BodyMatchResult{}
}

// matchBodyContent applies the body presence rules before any content
// comparison: a missing expected body matches anything, an empty or null
// one only matches an absent actual body.
func matchBodyContent(contentType domain.ContentType, expected, actual domain.OptionalBody, ctx *Context) domain.BodyMatchResult {
	switch expected.State {
	case domain.BodyMissing:
		return domain.BodyMatchResult{}
	case domain.BodyNull, domain.BodyEmpty:
		if actual.State == domain.BodyPresent {
			return groupBodyMismatches([]domain.Mismatch{{
				Type:        domain.MismatchBody,
				Path:        "/",
				Actual:      actual.ValueString(),
				Description: fmt.Sprintf("Expected empty body but received '%s'", actual.ValueString()),
			}})
		}
		return domain.BodyMatchResult{}
	default:
		if actual.State == domain.BodyMissing {
			return groupBodyMismatches([]domain.Mismatch{{
				Type:        domain.MismatchBody,
				Path:        "/",
				Expected:    expected.ValueString(),
				Description: fmt.Sprintf("Expected body '%s' but was missing", expected.ValueString()),
			}})
		}
		return groupBodyMismatches(compareBodyContents(contentType, expected, actual, ctx))
	}
}

func compareBodyContents(contentType domain.ContentType, expected, actual domain.OptionalBody, ctx *Context) []domain.Mismatch {
	switch {
	case contentType.IsJSON():
		return MatchJSON(expected.Value, actual.Value, ctx)
	case contentType.IsXML():
		return MatchXML(expected.Value, actual.Value, ctx)
	case contentType.IsFormURLEncoded():
		return MatchFormURLEncoded(expected.Value, actual.Value, ctx)
	case contentType.IsMultipart():
		return MatchMultipart(expected, actual, ctx)
	case contentType.IsUnknown() || contentType.IsText():
		return MatchText(expected.Value, actual.Value, ctx)
	default:
		return MatchBinary(expected.Value, actual.Value, ctx)
	}
}

// groupBodyMismatches buckets body mismatches by the path that produced
// them, preserving the order within each path.
func groupBodyMismatches(mismatches []domain.Mismatch) domain.BodyMatchResult {
	result := domain.BodyMatchResult{Mismatches: map[string][]domain.Mismatch{}}
	for _, m := range mismatches {
		key := m.Path
		if key == "" {
			key = "$"
		}
		result.Mismatches[key] = append(result.Mismatches[key], m)
	}
	return result
}
