package matching

import (
	"bytes"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchText compares two plain text bodies. A matcher registered at the body
// root takes over from the byte-for-byte default.
func MatchText(expected, actual []byte, ctx *Context) []domain.Mismatch {
	path := []string{"$"}
	if ctx.MatcherDefined(path) {
		failures := applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule(string(expected), string(actual), rule, cascaded)
		})
		return bodyMismatches("$", string(expected), string(actual), failures)
	}
	if !bytes.Equal(expected, actual) {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        "$",
			Expected:    string(expected),
			Actual:      string(actual),
			Description: fmt.Sprintf("Expected text '%s' but received '%s'", expected, actual),
		}}
	}
	return nil
}

// MatchBinary compares two opaque binary bodies. Without a matcher the bytes
// must be identical; a ContentType rule sniffs the actual payload instead.
func MatchBinary(expected, actual []byte, ctx *Context) []domain.Mismatch {
	path := []string{"$"}
	if ctx.MatcherDefined(path) {
		list := ctx.SelectBestMatcher(path)
		if list.IsEmpty() {
			return []domain.Mismatch{{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    describeBinary(expected),
				Actual:      describeBinary(actual),
				Description: "No matcher found for category 'body' and path '$'",
			}}
		}
		failures := applyRuleList(path, list, func(rule domain.MatchingRule, cascaded bool) error {
			return matchBinaryRule(expected, actual, rule, cascaded)
		})
		return bodyMismatches("$", describeBinary(expected), describeBinary(actual), failures)
	}
	if !bytes.Equal(expected, actual) {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        "$",
			Expected:    describeBinary(expected),
			Actual:      describeBinary(actual),
			Description: fmt.Sprintf("Expected binary data of %d bytes but received %d bytes", len(expected), len(actual)),
		}}
	}
	return nil
}

func matchBinaryRule(expected, actual []byte, rule domain.MatchingRule, cascaded bool) error {
	switch rule.Kind {
	case domain.RuleEquality:
		if !bytes.Equal(expected, actual) {
			return fmt.Errorf("Expected binary data of %d bytes but received %d bytes", len(expected), len(actual))
		}
		return nil
	case domain.RuleContentType:
		result := mimetype.Detect(actual)
		if result.Is(rule.Value) {
			return nil
		}
		detected := domain.ParseContentType(result.String())
		if detected.Equal(domain.ParseContentType(rule.Value)) {
			return nil
		}
		return fmt.Errorf("Expected binary contents to have content type '%s' but detected contents was '%s'",
			rule.Value, detected.Base())
	default:
		return matchStringRule(string(expected), string(actual), rule, cascaded)
	}
}

func describeBinary(data []byte) string {
	return fmt.Sprintf("%d bytes", len(data))
}

func bodyMismatches(path, expected, actual string, failures []string) []domain.Mismatch {
	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchBody,
			Path:        path,
			Expected:    expected,
			Actual:      actual,
			Description: failure,
		})
	}
	if len(mismatches) == 0 {
		return nil
	}
	return mismatches
}
