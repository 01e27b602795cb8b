package domain

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

type RuleKind string

const (
	RuleEquality      RuleKind = "equality"
	RuleRegex         RuleKind = "regex"
	RuleType          RuleKind = "type"
	RuleMinType       RuleKind = "min-type"
	RuleMaxType       RuleKind = "max-type"
	RuleMinMaxType    RuleKind = "min-max-type"
	RuleInclude       RuleKind = "include"
	RuleNumber        RuleKind = "number"
	RuleInteger       RuleKind = "integer"
	RuleDecimal       RuleKind = "decimal"
	RuleDate          RuleKind = "date"
	RuleTime          RuleKind = "time"
	RuleTimestamp     RuleKind = "timestamp"
	RuleNull          RuleKind = "null"
	RuleBoolean       RuleKind = "boolean"
	RuleContentType   RuleKind = "contentType"
	RuleArrayContains RuleKind = "arrayContains"
	RuleValues        RuleKind = "values"
	RuleStatusCode    RuleKind = "statusCode"
	RuleNotEmpty      RuleKind = "notEmpty"
	RuleSemver        RuleKind = "semver"
)

// Status ranges accepted by the StatusCode rule. An empty StatusRange with a
// non-empty code list matches the explicit codes instead of a range.
type StatusRange string

const (
	StatusInformation StatusRange = "information"
	StatusSuccess     StatusRange = "success"
	StatusRedirect    StatusRange = "redirect"
	StatusClientError StatusRange = "clientError"
	StatusServerError StatusRange = "serverError"
	StatusNonError    StatusRange = "nonError"
	StatusRangeError  StatusRange = "error"
)

// Matches reports whether the status code falls in the range.
func (s StatusRange) Matches(status int) bool {
	switch s {
	case StatusInformation:
		return status >= 100 && status <= 199
	case StatusSuccess:
		return status >= 200 && status <= 299
	case StatusRedirect:
		return status >= 300 && status <= 399
	case StatusClientError:
		return status >= 400 && status <= 499
	case StatusServerError:
		return status >= 500 && status <= 599
	case StatusNonError:
		return status < 400
	case StatusRangeError:
		return status >= 400
	default:
		return false
	}
}

// ArrayContainsVariant is one expected element of an ArrayContains rule,
// carrying the matching rules to apply when probing actual elements.
type ArrayContainsVariant struct {
	Index int
	Rules *MatchingRuleCategory
}

// MatchingRule is a single matching rule definition. Only the fields relevant
// to the Kind are populated; Min and Max are -1 when unset.
type MatchingRule struct {
	Kind        RuleKind
	Regex       string
	Min         int
	Max         int
	Value       string
	Format      string
	Status      StatusRange
	StatusCodes []int
	Variants    []ArrayContainsVariant
}

func (r MatchingRule) String() string {
	switch r.Kind {
	case RuleRegex:
		return fmt.Sprintf("Regex(%s)", r.Regex)
	case RuleMinType:
		return fmt.Sprintf("MinType(%d)", r.Min)
	case RuleMaxType:
		return fmt.Sprintf("MaxType(%d)", r.Max)
	case RuleMinMaxType:
		return fmt.Sprintf("MinMaxType(%d, %d)", r.Min, r.Max)
	case RuleInclude:
		return fmt.Sprintf("Include(%s)", r.Value)
	default:
		return string(r.Kind)
	}
}

func EqualityRule() MatchingRule   { return MatchingRule{Kind: RuleEquality, Min: -1, Max: -1} }
func TypeRule() MatchingRule       { return MatchingRule{Kind: RuleType, Min: -1, Max: -1} }
func NumberRule() MatchingRule     { return MatchingRule{Kind: RuleNumber, Min: -1, Max: -1} }
func IntegerRule() MatchingRule    { return MatchingRule{Kind: RuleInteger, Min: -1, Max: -1} }
func DecimalRule() MatchingRule    { return MatchingRule{Kind: RuleDecimal, Min: -1, Max: -1} }
func NullRule() MatchingRule       { return MatchingRule{Kind: RuleNull, Min: -1, Max: -1} }
func BooleanRule() MatchingRule    { return MatchingRule{Kind: RuleBoolean, Min: -1, Max: -1} }
func ValuesRule() MatchingRule     { return MatchingRule{Kind: RuleValues, Min: -1, Max: -1} }
func NotEmptyRule() MatchingRule   { return MatchingRule{Kind: RuleNotEmpty, Min: -1, Max: -1} }
func SemverRule() MatchingRule     { return MatchingRule{Kind: RuleSemver, Min: -1, Max: -1} }

func RegexRule(regex string) MatchingRule {
	return MatchingRule{Kind: RuleRegex, Regex: regex, Min: -1, Max: -1}
}

func MinTypeRule(min int) MatchingRule {
	return MatchingRule{Kind: RuleMinType, Min: min, Max: -1}
}

func MaxTypeRule(max int) MatchingRule {
	return MatchingRule{Kind: RuleMaxType, Min: -1, Max: max}
}

func MinMaxTypeRule(min, max int) MatchingRule {
	return MatchingRule{Kind: RuleMinMaxType, Min: min, Max: max}
}

func IncludeRule(substr string) MatchingRule {
	return MatchingRule{Kind: RuleInclude, Value: substr, Min: -1, Max: -1}
}

func DateRule(format string) MatchingRule {
	return MatchingRule{Kind: RuleDate, Format: format, Min: -1, Max: -1}
}

func TimeRule(format string) MatchingRule {
	return MatchingRule{Kind: RuleTime, Format: format, Min: -1, Max: -1}
}

func TimestampRule(format string) MatchingRule {
	return MatchingRule{Kind: RuleTimestamp, Format: format, Min: -1, Max: -1}
}

func ContentTypeRule(contentType string) MatchingRule {
	return MatchingRule{Kind: RuleContentType, Value: contentType, Min: -1, Max: -1}
}

func StatusCodeRule(status StatusRange) MatchingRule {
	return MatchingRule{Kind: RuleStatusCode, Status: status, Min: -1, Max: -1}
}

func StatusCodesRule(codes ...int) MatchingRule {
	return MatchingRule{Kind: RuleStatusCode, StatusCodes: codes, Min: -1, Max: -1}
}

func ArrayContainsRule(variants ...ArrayContainsVariant) MatchingRule {
	return MatchingRule{Kind: RuleArrayContains, Variants: variants, Min: -1, Max: -1}
}

// ruleSpec is the wire form of a matching rule definition inside a pact
// document.
type ruleSpec struct {
	Match     string `mapstructure:"match"`
	Regex     string `mapstructure:"regex"`
	Min       *int   `mapstructure:"min"`
	Max       *int   `mapstructure:"max"`
	Value     string `mapstructure:"value"`
	Timestamp string `mapstructure:"timestamp"`
	Datetime  string `mapstructure:"datetime"`
	Time      string `mapstructure:"time"`
	Date      string `mapstructure:"date"`
	Format    string `mapstructure:"format"`
	Status    any    `mapstructure:"status"`
	Variants  []any  `mapstructure:"variants"`
}

// RuleFromMap builds a MatchingRule from its pact JSON definition. Maps
// without a "match" key fall back to the V2 heuristics: a "regex" key means a
// Regex rule, "min"/"max" a bounded type rule, and a date or time key the
// corresponding format rule.
func RuleFromMap(def map[string]any) (MatchingRule, error) {
	var spec ruleSpec
	if err := mapstructure.WeakDecode(def, &spec); err != nil {
		return MatchingRule{}, apperrors.Wrap(err, apperrors.CodePactParseError, "invalid matching rule definition")
	}

	if spec.Match == "" {
		switch {
		case spec.Regex != "":
			return RegexRule(spec.Regex), nil
		case spec.Min != nil:
			return MinTypeRule(*spec.Min), nil
		case spec.Max != nil:
			return MaxTypeRule(*spec.Max), nil
		case spec.Timestamp != "":
			return TimestampRule(spec.Timestamp), nil
		case spec.Time != "":
			return TimeRule(spec.Time), nil
		case spec.Date != "":
			return DateRule(spec.Date), nil
		default:
			return MatchingRule{}, apperrors.Newf(apperrors.CodePactParseError,
				"matching rule definition %v is missing the rule type", def)
		}
	}

	switch spec.Match {
	case "equality":
		return EqualityRule(), nil
	case "regex":
		if spec.Regex == "" {
			return MatchingRule{}, apperrors.New(apperrors.CodePactParseError,
				"regex matching rule is missing the regex definition")
		}
		return RegexRule(spec.Regex), nil
	case "type":
		switch {
		case spec.Min != nil && spec.Max != nil:
			return MinMaxTypeRule(*spec.Min, *spec.Max), nil
		case spec.Min != nil:
			return MinTypeRule(*spec.Min), nil
		case spec.Max != nil:
			return MaxTypeRule(*spec.Max), nil
		default:
			return TypeRule(), nil
		}
	case "min":
		if spec.Min == nil {
			return MatchingRule{}, apperrors.New(apperrors.CodePactParseError,
				"min matching rule is missing the min value")
		}
		return MinTypeRule(*spec.Min), nil
	case "max":
		if spec.Max == nil {
			return MatchingRule{}, apperrors.New(apperrors.CodePactParseError,
				"max matching rule is missing the max value")
		}
		return MaxTypeRule(*spec.Max), nil
	case "include":
		return IncludeRule(spec.Value), nil
	case "number":
		return NumberRule(), nil
	case "integer":
		return IntegerRule(), nil
	case "decimal", "real":
		return DecimalRule(), nil
	case "timestamp", "datetime":
		return TimestampRule(firstNonEmpty(spec.Timestamp, spec.Datetime, spec.Format)), nil
	case "time":
		return TimeRule(firstNonEmpty(spec.Time, spec.Format)), nil
	case "date":
		return DateRule(firstNonEmpty(spec.Date, spec.Format)), nil
	case "null":
		return NullRule(), nil
	case "boolean":
		return BooleanRule(), nil
	case "contentType", "content-type":
		return ContentTypeRule(spec.Value), nil
	case "values":
		return ValuesRule(), nil
	case "notEmpty", "not-empty":
		return NotEmptyRule(), nil
	case "semver":
		return SemverRule(), nil
	case "statusCode":
		return statusCodeRuleFromSpec(spec)
	case "arrayContains", "array-contains":
		return arrayContainsFromSpec(spec)
	default:
		return MatchingRule{}, apperrors.Newf(apperrors.CodePactParseError,
			"%s is not a valid matching rule type", spec.Match)
	}
}

func statusCodeRuleFromSpec(spec ruleSpec) (MatchingRule, error) {
	switch status := spec.Status.(type) {
	case nil:
		return StatusCodeRule(StatusSuccess), nil
	case string:
		r := StatusRange(status)
		switch r {
		case StatusInformation, StatusSuccess, StatusRedirect, StatusClientError,
			StatusServerError, StatusNonError, StatusRangeError:
			return StatusCodeRule(r), nil
		}
		return MatchingRule{}, apperrors.Newf(apperrors.CodePactParseError,
			"%q is not a valid status code range", status)
	case []any:
		codes := make([]int, 0, len(status))
		for _, c := range status {
			var code int
			if err := mapstructure.WeakDecode(c, &code); err != nil {
				return MatchingRule{}, apperrors.Newf(apperrors.CodePactParseError,
					"%v is not a valid status code", c)
			}
			codes = append(codes, code)
		}
		return StatusCodesRule(codes...), nil
	default:
		return MatchingRule{}, apperrors.Newf(apperrors.CodePactParseError,
			"unable to parse status code for StatusCode matcher: %v", spec.Status)
	}
}

func arrayContainsFromSpec(spec ruleSpec) (MatchingRule, error) {
	variants := make([]ArrayContainsVariant, 0, len(spec.Variants))
	for i, v := range spec.Variants {
		variant := ArrayContainsVariant{Index: i, Rules: NewCategory(CategoryBody)}
		vm, ok := v.(map[string]any)
		if !ok {
			variants = append(variants, variant)
			continue
		}
		if idx, ok := vm["index"]; ok {
			var n int
			if err := mapstructure.WeakDecode(idx, &n); err == nil {
				variant.Index = n
			}
		}
		if rules, ok := vm["rules"].(map[string]any); ok {
			for _, path := range sortedKeys(rules) {
				if err := addRulesFromDefinition(variant.Rules, path, rules[path]); err != nil {
					return MatchingRule{}, err
				}
			}
		}
		variants = append(variants, variant)
	}
	return ArrayContainsRule(variants...), nil
}

// addRulesFromDefinition handles both the V3 form, where a path maps to
// {"matchers": [...], "combine": "AND"}, and the V2 form where it maps
// directly to a single rule definition.
func addRulesFromDefinition(category *MatchingRuleCategory, path string, def any) error {
	switch d := def.(type) {
	case map[string]any:
		if matchers, ok := d["matchers"].([]any); ok {
			logic := LogicAnd
			if combine, ok := d["combine"].(string); ok && strings.EqualFold(combine, "OR") {
				logic = LogicOr
			}
			for _, m := range matchers {
				mm, ok := m.(map[string]any)
				if !ok {
					return apperrors.Newf(apperrors.CodePactParseError,
						"matching rule definition at %q is not a map", path)
				}
				rule, err := RuleFromMap(mm)
				if err != nil {
					return err
				}
				if err := category.AddRule(path, logic, rule); err != nil {
					return err
				}
			}
			return nil
		}
		rule, err := RuleFromMap(d)
		if err != nil {
			return err
		}
		return category.AddRule(path, LogicAnd, rule)
	default:
		return apperrors.Newf(apperrors.CodePactParseError,
			"matching rule definition at %q is not a map", path)
	}
}

type RuleLogic string

const (
	LogicAnd RuleLogic = "AND"
	LogicOr  RuleLogic = "OR"
)

// RuleList is the ordered list of rules registered for one path expression,
// combined with AND or OR logic. Cascaded marks a list inherited from a
// shorter path expression; inherited Min/Max bounds are not re-checked at
// deeper paths.
type RuleList struct {
	Rules    []MatchingRule
	Logic    RuleLogic
	Cascaded bool
}

func NewRuleList(logic RuleLogic, rules ...MatchingRule) RuleList {
	return RuleList{Rules: rules, Logic: logic}
}

func (l RuleList) IsEmpty() bool {
	return len(l.Rules) == 0
}

func (l RuleList) AsCascaded(cascaded bool) RuleList {
	out := l
	out.Cascaded = cascaded
	return out
}

// Category names for the rule sets of a pact interaction.
const (
	CategoryBody     = "body"
	CategoryHeader   = "header"
	CategoryQuery    = "query"
	CategoryPath     = "path"
	CategoryStatus   = "status"
	CategoryMetadata = "metadata"
	CategoryContents = "content"
)

type categoryEntry struct {
	Expression string
	Tokens     []PathToken
	List       RuleList
}

// MatchingRuleCategory holds the rules of one category in registration
// order. Order matters: when two expressions select a value with equal
// specificity, the one registered last wins.
type MatchingRuleCategory struct {
	Name    string
	entries []categoryEntry
}

func NewCategory(name string) *MatchingRuleCategory {
	return &MatchingRuleCategory{Name: name}
}

func (c *MatchingRuleCategory) IsEmpty() bool {
	return c == nil || len(c.entries) == 0
}

// AddRule registers a rule under the given path expression, appending to the
// expression's rule list if one already exists.
func (c *MatchingRuleCategory) AddRule(expr string, logic RuleLogic, rules ...MatchingRule) error {
	tokens, err := ParsePathTokens(normaliseExpression(expr))
	if err != nil {
		return err
	}
	for i := range c.entries {
		if c.entries[i].Expression == expr {
			c.entries[i].List.Rules = append(c.entries[i].List.Rules, rules...)
			c.entries[i].List.Logic = logic
			return nil
		}
	}
	c.entries = append(c.entries, categoryEntry{
		Expression: expr,
		Tokens:     tokens,
		List:       NewRuleList(logic, rules...),
	})
	return nil
}

// normaliseExpression maps the category-level shorthand ("" and "$") used by
// path, status and single-value categories onto the root expression.
func normaliseExpression(expr string) string {
	if expr == "" {
		return "$"
	}
	if !strings.HasPrefix(expr, "$") {
		return "$." + expr
	}
	return expr
}

// MatcherDefined reports whether any rule in the category selects the path.
func (c *MatchingRuleCategory) MatcherDefined(path []string) bool {
	if c.IsEmpty() {
		return false
	}
	for _, e := range c.entries {
		if PathWeight(e.Tokens, path) > 0 {
			return true
		}
	}
	return false
}

// WildcardMatcherDefined reports whether a rule whose expression ends in a
// wildcard selects the path exactly.
func (c *MatchingRuleCategory) WildcardMatcherDefined(path []string) bool {
	if c.IsEmpty() {
		return false
	}
	for _, e := range c.entries {
		if len(e.Tokens) != len(path) {
			continue
		}
		last := e.Tokens[len(e.Tokens)-1]
		if last.Kind != TokenStar && last.Kind != TokenStarIndex {
			continue
		}
		if PathWeight(e.Tokens, path) > 0 {
			return true
		}
	}
	return false
}

// ValuesMatcherDefined reports whether a Values rule is registered at an
// expression selecting the path exactly.
func (c *MatchingRuleCategory) ValuesMatcherDefined(path []string) bool {
	if c.IsEmpty() {
		return false
	}
	for _, e := range c.entries {
		if len(e.Tokens) != len(path) || PathWeight(e.Tokens, path) == 0 {
			continue
		}
		for _, rule := range e.List.Rules {
			if rule.Kind == RuleValues {
				return true
			}
		}
	}
	return false
}

// TypeMatcherDefined reports whether a type-class rule (Type or a bounded
// variant) selects the path.
func (c *MatchingRuleCategory) TypeMatcherDefined(path []string) bool {
	if c.IsEmpty() {
		return false
	}
	for _, e := range c.entries {
		if PathWeight(e.Tokens, path) == 0 {
			continue
		}
		for _, rule := range e.List.Rules {
			switch rule.Kind {
			case RuleType, RuleMinType, RuleMaxType, RuleMinMaxType:
				return true
			}
		}
	}
	return false
}

// MaxByPath selects the most specific rule list for the path. Specificity is
// the path weight multiplied by the token count; among entries with equal
// specificity the one registered last wins. The returned list is flagged as
// cascaded when its expression is shorter than the path it was selected for.
func (c *MatchingRuleCategory) MaxByPath(path []string) RuleList {
	if c.IsEmpty() {
		return RuleList{}
	}
	best := -1
	bestScore := 0
	for i, e := range c.entries {
		weight := PathWeight(e.Tokens, path)
		if weight == 0 {
			continue
		}
		score := weight * len(e.Tokens)
		if score >= bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return RuleList{}
	}
	entry := c.entries[best]
	return entry.List.AsCascaded(len(entry.Tokens) != len(path))
}

// Entries returns the registered expressions in registration order.
func (c *MatchingRuleCategory) Entries() []string {
	if c.IsEmpty() {
		return nil
	}
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Expression
	}
	return out
}

// RulesForExpression returns the rule list registered for an exact
// expression.
func (c *MatchingRuleCategory) RulesForExpression(expr string) (RuleList, bool) {
	if c.IsEmpty() {
		return RuleList{}, false
	}
	for _, e := range c.entries {
		if e.Expression == expr {
			return e.List, true
		}
	}
	return RuleList{}, false
}

// MatchingRules is the full rule set of an interaction, grouped by category.
type MatchingRules struct {
	categories map[string]*MatchingRuleCategory
}

func NewMatchingRules() *MatchingRules {
	return &MatchingRules{categories: map[string]*MatchingRuleCategory{}}
}

// Category returns the named category, creating it if needed.
func (m *MatchingRules) Category(name string) *MatchingRuleCategory {
	if m.categories == nil {
		m.categories = map[string]*MatchingRuleCategory{}
	}
	c, ok := m.categories[name]
	if !ok {
		c = NewCategory(name)
		m.categories[name] = c
	}
	return c
}

// RulesForCategory returns the named category or nil when no rules were
// registered for it.
func (m *MatchingRules) RulesForCategory(name string) *MatchingRuleCategory {
	if m == nil || m.categories == nil {
		return nil
	}
	return m.categories[name]
}

// AddFromDefinition registers the rules in a pact JSON definition under the
// named category. The definition may be the V3 {"matchers": [...]} form or a
// direct V2 rule map.
func (m *MatchingRules) AddFromDefinition(category, path string, def any) error {
	return addRulesFromDefinition(m.Category(category), path, def)
}

func (m *MatchingRules) IsEmpty() bool {
	if m == nil {
		return true
	}
	for _, c := range m.categories {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
