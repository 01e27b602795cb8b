package matching

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/dlclark/regexp2"
	"github.com/gabriel-vasile/mimetype"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// matchFunc applies one rule to a pair of values, reporting nil on a match.
type matchFunc func(rule domain.MatchingRule, cascaded bool) error

// applyRuleList runs a rule list against a value pair. AND logic requires
// every rule to pass and collects every failure; OR logic passes if any rule
// does. An empty list is a failure in itself.
func applyRuleList(path []string, list domain.RuleList, match matchFunc) []string {
	if list.IsEmpty() {
		return []string{fmt.Sprintf("No matcher found for path '%s'", strings.Join(path, "."))}
	}
	var failures []string
	for _, rule := range list.Rules {
		err := match(rule, list.Cascaded)
		if err == nil {
			if list.Logic == domain.LogicOr {
				return nil
			}
			continue
		}
		failures = append(failures, err.Error())
	}
	if list.Logic == domain.LogicOr {
		return failures
	}
	return failures
}

// regexMatch runs a backtracking regex match. Pact regexes originate from
// JVM and JS consumers and can use constructs like lookarounds that RE2
// rejects, so the regexp2 engine is used.
func regexMatch(pattern, value string) (bool, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return false, err
	}
	matched, err := re.MatchString(value)
	if err != nil {
		return false, err
	}
	return matched, nil
}

// matchStringRule applies a rule to a pair of strings. The mismatch wording
// follows the shared pact message fixtures.
func matchStringRule(expected, actual string, rule domain.MatchingRule, cascaded bool) error {
	switch rule.Kind {
	case domain.RuleRegex:
		matched, err := regexMatch(rule.Regex, actual)
		if err != nil {
			return fmt.Errorf("'%s' is not a valid regular expression - %s", rule.Regex, err)
		}
		if !matched {
			return fmt.Errorf("Expected '%s' to match '%s'", actual, rule.Regex)
		}
		return nil
	case domain.RuleEquality:
		if expected != actual {
			return fmt.Errorf("Expected '%s' to be equal to '%s'", expected, actual)
		}
		return nil
	case domain.RuleType, domain.RuleMinType, domain.RuleMaxType, domain.RuleMinMaxType, domain.RuleValues:
		return nil
	case domain.RuleInclude:
		if !strings.Contains(actual, rule.Value) {
			return fmt.Errorf("Expected '%s' to include '%s'", actual, rule.Value)
		}
		return nil
	case domain.RuleNumber:
		if _, err := strconv.ParseFloat(actual, 64); err != nil {
			return fmt.Errorf("Expected '%s' to match a number", actual)
		}
		return nil
	case domain.RuleInteger:
		if _, err := strconv.ParseInt(actual, 10, 64); err != nil {
			return fmt.Errorf("Expected '%s' to match an integer number", actual)
		}
		return nil
	case domain.RuleDecimal:
		if !isDecimalString(actual) {
			return fmt.Errorf("Expected '%s' to match a decimal number", actual)
		}
		return nil
	case domain.RuleBoolean:
		if actual != "true" && actual != "false" {
			return fmt.Errorf("Expected '%s' to match a boolean", actual)
		}
		return nil
	case domain.RuleDate:
		if err := validateDatetime(actual, orDefault(rule.Format, defaultDateFormat)); err != nil {
			return fmt.Errorf("Expected '%s' to match a date format of '%s'", actual, orDefault(rule.Format, defaultDateFormat))
		}
		return nil
	case domain.RuleTime:
		if err := validateDatetime(actual, orDefault(rule.Format, defaultTimeFormat)); err != nil {
			return fmt.Errorf("Expected '%s' to match a time format of '%s'", actual, orDefault(rule.Format, defaultTimeFormat))
		}
		return nil
	case domain.RuleTimestamp:
		if err := validateDatetime(actual, orDefault(rule.Format, defaultTimestampFormat)); err != nil {
			return fmt.Errorf("Expected '%s' to match a timestamp format of '%s'", actual, orDefault(rule.Format, defaultTimestampFormat))
		}
		return nil
	case domain.RuleNull:
		return fmt.Errorf("Expected '%s' to be a null value", actual)
	case domain.RuleNotEmpty:
		if actual == "" {
			return fmt.Errorf("Expected an non-empty string")
		}
		return nil
	case domain.RuleSemver:
		if _, err := semver.StrictNewVersion(actual); err != nil {
			return fmt.Errorf("'%s' is not a valid semantic version - %s", actual, err)
		}
		return nil
	case domain.RuleContentType:
		return matchContentType([]byte(actual), rule.Value)
	case domain.RuleStatusCode:
		status, err := strconv.Atoi(actual)
		if err != nil {
			return fmt.Errorf("Unable to match '%s' using %s", actual, rule)
		}
		return matchStatusCode(status, rule)
	default:
		return fmt.Errorf("Unable to match '%s' using %s", actual, rule)
	}
}

// Decimal strings must carry a fractional part; "100" is an integer.
func isDecimalString(value string) bool {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return false
	}
	return strings.ContainsAny(value, ".eE")
}

// matchJSONRule applies a rule to a pair of parsed JSON values.
func matchJSONRule(expected, actual any, rule domain.MatchingRule, cascaded bool) error {
	switch rule.Kind {
	case domain.RuleRegex:
		actualStr := jsonToString(actual)
		matched, err := regexMatch(rule.Regex, actualStr)
		if err != nil {
			return fmt.Errorf("'%s' is not a valid regular expression - %s", rule.Regex, err)
		}
		if !matched {
			return fmt.Errorf("Expected '%s' to match '%s'", jsonToString(actual), rule.Regex)
		}
		return nil
	case domain.RuleInclude:
		if !strings.Contains(jsonToString(actual), rule.Value) {
			return fmt.Errorf("Expected '%s' to include '%s'", jsonToString(actual), rule.Value)
		}
		return nil
	case domain.RuleType:
		if !sameJSONType(expected, actual) {
			return fmt.Errorf("Expected '%s' to be the same type as '%s'", jsonToString(expected), jsonToString(actual))
		}
		return nil
	case domain.RuleMinType:
		return matchBoundedType(expected, actual, rule.Min, -1, cascaded)
	case domain.RuleMaxType:
		return matchBoundedType(expected, actual, -1, rule.Max, cascaded)
	case domain.RuleMinMaxType:
		return matchBoundedType(expected, actual, rule.Min, rule.Max, cascaded)
	case domain.RuleEquality:
		if !reflect.DeepEqual(expected, actual) {
			return fmt.Errorf("Expected '%s' to be equal to '%s'", jsonToString(expected), jsonToString(actual))
		}
		return nil
	case domain.RuleNull:
		if actual != nil {
			return fmt.Errorf("Expected '%s' to be a null value", jsonToString(actual))
		}
		return nil
	case domain.RuleInteger:
		if !isInteger(actual) {
			return fmt.Errorf("Expected '%s' to be an integer value", jsonToString(actual))
		}
		return nil
	case domain.RuleDecimal:
		if !isDecimal(actual) {
			return fmt.Errorf("Expected '%s' to be a decimal value", jsonToString(actual))
		}
		return nil
	case domain.RuleNumber:
		if !isNumber(actual) {
			return fmt.Errorf("Expected '%s' to be a number", jsonToString(actual))
		}
		return nil
	case domain.RuleBoolean:
		if _, ok := actual.(bool); ok {
			return nil
		}
		if s, ok := actual.(string); ok && (s == "true" || s == "false") {
			return nil
		}
		return fmt.Errorf("Expected '%s' to match a boolean", jsonToString(actual))
	case domain.RuleDate:
		format := orDefault(rule.Format, defaultDateFormat)
		if err := validateDatetime(jsonToString(actual), format); err != nil {
			return fmt.Errorf("Expected '%s' to match a date format of '%s': %s", jsonToString(actual), format, err)
		}
		return nil
	case domain.RuleTime:
		format := orDefault(rule.Format, defaultTimeFormat)
		if err := validateDatetime(jsonToString(actual), format); err != nil {
			return fmt.Errorf("Expected '%s' to match a time format of '%s': %s", jsonToString(actual), format, err)
		}
		return nil
	case domain.RuleTimestamp:
		format := orDefault(rule.Format, defaultTimestampFormat)
		if err := validateDatetime(jsonToString(actual), format); err != nil {
			return fmt.Errorf("Expected '%s' to match a timestamp format of '%s': %s", jsonToString(actual), format, err)
		}
		return nil
	case domain.RuleContentType:
		return matchContentType([]byte(jsonToString(actual)), rule.Value)
	case domain.RuleNotEmpty:
		switch v := actual.(type) {
		case string:
			if v == "" {
				return fmt.Errorf("Expected an non-empty string")
			}
		case nil:
			return fmt.Errorf("Expected a non-empty value but received a null value")
		}
		return nil
	case domain.RuleSemver:
		s, ok := actual.(string)
		if !ok {
			return fmt.Errorf("'%s' is not a valid semantic version", jsonToString(actual))
		}
		if _, err := semver.StrictNewVersion(s); err != nil {
			return fmt.Errorf("'%s' is not a valid semantic version - %s", s, err)
		}
		return nil
	case domain.RuleValues, domain.RuleArrayContains:
		// Handled structurally by the map and list comparators.
		return nil
	case domain.RuleStatusCode:
		if isInteger(actual) {
			return matchStatusCode(int(toInt64(actual)), rule)
		}
		return fmt.Errorf("Unable to match '%s' using %s", jsonToString(actual), rule)
	default:
		return fmt.Errorf("Unable to match '%s' using %s", jsonToString(actual), rule)
	}
}

// matchBoundedType is the Min/Max/MinMaxType check for JSON values. For
// lists the bounds are applied to the actual length, unless the rule
// cascaded from a shorter path; for every other type it degrades to a type
// check.
func matchBoundedType(expected, actual any, min, max int, cascaded bool) error {
	_, expectedIsList := expected.([]any)
	actualList, actualIsList := actual.([]any)
	if expectedIsList && actualIsList {
		if !cascaded && min >= 0 && len(actualList) < min {
			return fmt.Errorf("Expected '%s' to have at least %d item(s)", jsonToString(actual), min)
		}
		if !cascaded && max >= 0 && len(actualList) > max {
			return fmt.Errorf("Expected '%s' to have at most %d item(s)", jsonToString(actual), max)
		}
		return nil
	}
	if !sameJSONType(expected, actual) {
		return fmt.Errorf("Expected '%s' to be the same type as '%s'", jsonToString(expected), jsonToString(actual))
	}
	return nil
}

func matchStatusCode(status int, rule domain.MatchingRule) error {
	if len(rule.StatusCodes) > 0 {
		for _, c := range rule.StatusCodes {
			if c == status {
				return nil
			}
		}
		return fmt.Errorf("Expected status code %d to be a %s", status, formatStatusCodes(rule.StatusCodes))
	}
	if rule.Status.Matches(status) {
		return nil
	}
	return fmt.Errorf("Expected status code %d to be a %s", status, rule.Status)
}

func formatStatusCodes(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// matchContentType sniffs the actual bytes and compares the detected type
// with the expected one, allowing a detected subtype suffix match.
func matchContentType(data []byte, expectedType string) error {
	detected := mimetype.Detect(data)
	expected := domain.ParseContentType(expectedType)
	actual := domain.ParseContentType(detected.String())
	if expected.Equal(actual) || detected.Is(expectedType) {
		return nil
	}
	return fmt.Errorf("Expected data to have a content type of '%s' but was detected as '%s'",
		expectedType, actual.Base())
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
