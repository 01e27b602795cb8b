package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchXML compares two XML bodies element by element. Children are grouped
// by element name, attributes and text nodes are compared with the string
// matchers.
func MatchXML(expected, actual []byte, ctx *Context) []domain.Mismatch {
	expectedDoc := etree.NewDocument()
	actualDoc := etree.NewDocument()
	expErr := expectedDoc.ReadFromBytes(expected)
	actErr := actualDoc.ReadFromBytes(actual)

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
	if len(mismatches) > 0 {
		return mismatches
	}

	expectedRoot := expectedDoc.Root()
	actualRoot := actualDoc.Root()
	if expectedRoot == nil {
		return nil
	}
	if actualRoot == nil {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        "$",
			Expected:    string(expected),
			Actual:      "",
			Description: "Expected an XML body but was missing",
		}}
	}

	path := []string{"$", elementName(expectedRoot)}
	return compareXMLElement(path, expectedRoot, actualRoot, ctx)
}

func elementName(e *etree.Element) string {
	if e.Space != "" {
		return e.Space + ":" + e.Tag
	}
	return e.Tag
}

func compareXMLElement(path []string, expected, actual *etree.Element, ctx *Context) []domain.Mismatch {
	var failures []string
	if ctx.MatcherDefined(path) {
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchXMLElementRule(expected, actual, rule)
		})
	} else if err := matchXMLElementRule(expected, actual, domain.EqualityRule()); err != nil {
		failures = []string{err.Error()}
	}

	if len(failures) > 0 {
		mismatches := make([]domain.Mismatch, 0, len(failures))
		for _, failure := range failures {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        strings.Join(path, "."),
				Expected:    elementName(expected),
				Actual:      elementName(actual),
				Description: failure,
			})
		}
		return mismatches
	}

	var mismatches []domain.Mismatch
	mismatches = append(mismatches, compareXMLAttributes(path, expected, actual, ctx)...)
	mismatches = append(mismatches, compareXMLChildren(path, expected, actual, ctx)...)
	mismatches = append(mismatches, compareXMLText(path, expected, actual, ctx)...)
	return mismatches
}

func matchXMLElementRule(expected, actual *etree.Element, rule domain.MatchingRule) error {
	switch rule.Kind {
	case domain.RuleRegex:
		matched, err := regexMatch(rule.Regex, actual.Tag)
		if err != nil {
			return fmt.Errorf("'%s' is not a valid regular expression - %s", rule.Regex, err)
		}
		if !matched {
			return fmt.Errorf("Expected '%s' to match '%s'", elementName(actual), rule.Regex)
		}
		return nil
	case domain.RuleType:
		if elementName(expected) != elementName(actual) {
			return fmt.Errorf("Expected '%s' to be the same type as '%s'",
				elementName(expected), elementName(actual))
		}
		return nil
	case domain.RuleMinType:
		if len(actual.ChildElements()) < rule.Min {
			return fmt.Errorf("Expected '%s' to have at least %d children", elementName(actual), rule.Min)
		}
		return nil
	case domain.RuleMaxType:
		if len(actual.ChildElements()) > rule.Max {
			return fmt.Errorf("Expected '%s' to have at most %d children", elementName(actual), rule.Max)
		}
		return nil
	case domain.RuleMinMaxType:
		if len(actual.ChildElements()) < rule.Min {
			return fmt.Errorf("Expected '%s' to have at least %d children", elementName(actual), rule.Min)
		}
		if len(actual.ChildElements()) > rule.Max {
			return fmt.Errorf("Expected '%s' to have at most %d children", elementName(actual), rule.Max)
		}
		return nil
	case domain.RuleEquality:
		if elementName(expected) != elementName(actual) {
			return fmt.Errorf("Expected '%s' to be equal to '%s'", elementName(expected), elementName(actual))
		}
		return nil
	default:
		return fmt.Errorf("Unable to match <%s/> using %s", elementName(expected), rule)
	}
}

func attributeMap(e *etree.Element) map[string]string {
	out := make(map[string]string, len(e.Attr))
	for _, attr := range e.Attr {
		if attr.Space == "xmlns" || attr.Key == "xmlns" {
			continue
		}
		key := attr.Key
		if attr.Space != "" {
			key = attr.Space + ":" + attr.Key
		}
		out[key] = attr.Value
	}
	return out
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q: %q", k, attrs[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func compareXMLAttributes(path []string, expected, actual *etree.Element, ctx *Context) []domain.Mismatch {
	expectedAttrs := attributeMap(expected)
	actualAttrs := attributeMap(actual)

	if len(expectedAttrs) == 0 && len(actualAttrs) > 0 && ctx.Config == domain.NoUnexpectedKeys {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    formatAttributes(expectedAttrs),
			Actual:      formatAttributes(actualAttrs),
			Description: fmt.Sprintf("Did not expect any attributes but received %s", formatAttributes(actualAttrs)),
		}}
	}

	var mismatches []domain.Mismatch
	switch {
	case ctx.Config == domain.AllowUnexpectedKeys && len(expectedAttrs) > len(actualAttrs):
		mismatches = append(mismatches, domain.Mismatch{
			Type:     domain.MismatchBody,
			Path:     strings.Join(path, "."),
			Expected: formatAttributes(expectedAttrs),
			Actual:   formatAttributes(actualAttrs),
			Description: fmt.Sprintf("Expected at least %d attribute(s) but received %d attribute(s)",
				len(expectedAttrs), len(actualAttrs)),
		})
	case ctx.Config == domain.NoUnexpectedKeys && len(expectedAttrs) != len(actualAttrs):
		mismatches = append(mismatches, domain.Mismatch{
			Type:     domain.MismatchBody,
			Path:     strings.Join(path, "."),
			Expected: formatAttributes(expectedAttrs),
			Actual:   formatAttributes(actualAttrs),
			Description: fmt.Sprintf("Expected %d attribute(s) but received %d attribute(s)",
				len(expectedAttrs), len(actualAttrs)),
		})
	}

	expectedKeys := make([]string, 0, len(expectedAttrs))
	for k := range expectedAttrs {
		expectedKeys = append(expectedKeys, k)
	}
	sort.Strings(expectedKeys)
	for _, key := range expectedKeys {
		attrPath := append(append([]string{}, path...), "@"+key)
		if actualValue, ok := actualAttrs[key]; ok {
			mismatches = append(mismatches, compareXMLValue(attrPath, expectedAttrs[key], actualValue, ctx)...)
		} else {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        strings.Join(attrPath, "."),
				Expected:    key,
				Actual:      "",
				Description: fmt.Sprintf("Expected attribute '%s'='%s' but was missing", key, expectedAttrs[key]),
			})
		}
	}
	return mismatches
}

func childrenByName(e *etree.Element) (map[string][]*etree.Element, []string) {
	grouped := map[string][]*etree.Element{}
	for _, child := range e.ChildElements() {
		key := elementName(child)
		grouped[key] = append(grouped[key], child)
	}
	names := make([]string, 0, len(grouped))
	for k := range grouped {
		names = append(names, k)
	}
	sort.Strings(names)
	return grouped, names
}

func describeChildren(children []*etree.Element) string {
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = elementName(c)
	}
	return strings.Join(names, ", ")
}

func compareXMLChildren(path []string, expected, actual *etree.Element, ctx *Context) []domain.Mismatch {
	expectedChildren := expected.ChildElements()
	actualChildren := actual.ChildElements()

	if len(expectedChildren) == 0 && len(actualChildren) > 0 && ctx.Config == domain.NoUnexpectedKeys {
		return []domain.Mismatch{{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    describeChildren(expectedChildren),
			Actual:      describeChildren(actualChildren),
			Description: fmt.Sprintf("Expected no children but received [%s]", describeChildren(actualChildren)),
		}}
	}

	var mismatches []domain.Mismatch
	expectedByName, _ := childrenByName(expected)
	actualByName, actualNames := childrenByName(actual)
	matched := map[string]bool{}

	for _, key := range actualNames {
		group := actualByName[key]
		childPath := append(append([]string{}, path...), key)
		expectedGroup, ok := expectedByName[key]
		if !ok {
			if ctx.Config == domain.NoUnexpectedKeys || ctx.TypeMatcherDefined(childPath) {
				mismatches = append(mismatches, domain.Mismatch{
					Type:        domain.MismatchBody,
					Path:        strings.Join(path, "."),
					Expected:    describeChildren(expectedChildren),
					Actual:      describeChildren(actualChildren),
					Description: fmt.Sprintf("Unexpected child <%s/>", key),
				})
			}
			continue
		}
		matched[key] = true
		if ctx.TypeMatcherDefined(childPath) {
			example := expectedGroup[0]
			for _, child := range group {
				mismatches = append(mismatches, compareXMLElement(childPath, example, child, ctx)...)
			}
			continue
		}
		max := len(expectedGroup)
		if len(group) > max {
			max = len(group)
		}
		for i := 0; i < max; i++ {
			switch {
			case i >= len(expectedGroup):
				if ctx.Config == domain.NoUnexpectedKeys {
					mismatches = append(mismatches, domain.Mismatch{
						Type:        domain.MismatchBody,
						Path:        strings.Join(childPath, "."),
						Expected:    describeChildren(expectedGroup),
						Actual:      describeChildren(actualChildren),
						Description: fmt.Sprintf("Unexpected child <%s/>", elementName(group[i])),
					})
				}
			case i >= len(group):
				mismatches = append(mismatches, domain.Mismatch{
					Type:        domain.MismatchBody,
					Path:        strings.Join(childPath, "."),
					Expected:    describeChildren(expectedGroup),
					Actual:      describeChildren(actualChildren),
					Description: fmt.Sprintf("Expected child <%s/> but was missing", elementName(expectedGroup[i])),
				})
			default:
				mismatches = append(mismatches, compareXMLElement(childPath, expectedGroup[i], group[i], ctx)...)
			}
		}
	}

	expectedNames := make([]string, 0, len(expectedByName))
	for k := range expectedByName {
		expectedNames = append(expectedNames, k)
	}
	sort.Strings(expectedNames)
	for _, key := range expectedNames {
		if !matched[key] {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        strings.Join(path, "."),
				Expected:    describeChildren(expectedChildren),
				Actual:      describeChildren(actualChildren),
				Description: fmt.Sprintf("Expected child <%s/> but was missing", key),
			})
		}
	}
	return mismatches
}

// elementText concatenates every text node directly under the element.
func elementText(e *etree.Element) string {
	var sb strings.Builder
	for _, child := range e.Child {
		if cd, ok := child.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

func compareXMLText(path []string, expected, actual *etree.Element, ctx *Context) []domain.Mismatch {
	expectedText := elementText(expected)
	actualText := elementText(actual)
	textPath := append(append([]string{}, path...), "#text")

	var failures []string
	if ctx.MatcherDefined(textPath) {
		failures = applyRuleList(textPath, ctx.SelectBestMatcher(textPath), func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule(expectedText, actualText, rule, cascaded)
		})
	} else if err := matchStringRule(expectedText, actualText, domain.EqualityRule(), false); err != nil {
		failures = []string{err.Error()}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchBody,
			Path:        strings.Join(textPath, "."),
			Expected:    expectedText,
			Actual:      actualText,
			Description: failure,
		})
	}
	return mismatches
}

func compareXMLValue(path []string, expected, actual string, ctx *Context) []domain.Mismatch {
	var failures []string
	if ctx.MatcherDefined(path) {
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule(expected, actual, rule, cascaded)
		})
	} else if err := matchStringRule(expected, actual, domain.EqualityRule(), false); err != nil {
		failures = []string{err.Error()}
	}

	mismatches := make([]domain.Mismatch, 0, len(failures))
	for _, failure := range failures {
		mismatches = append(mismatches, domain.Mismatch{
			Type:        domain.MismatchBody,
			Path:        strings.Join(path, "."),
			Expected:    expected,
			Actual:      actual,
			Description: failure,
		})
	}
	return mismatches
}
