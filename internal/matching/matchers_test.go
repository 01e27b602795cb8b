package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

func TestConvertDatetimeFormat(t *testing.T) {
	cases := []struct {
		format string
		layout string
	}{
		{"yyyy-MM-dd", "2006-01-02"},
		{"HH:mm:ss", "15:04:05"},
		{"yyyy-MM-dd'T'HH:mm:ssXXX", "2006-01-02T15:04:05Z07:00"},
		{"dd/MM/yyyy HH:mm:ss.SSS", "02/01/2006 15:04:05.000"},
		{"EEE, dd MMM yyyy", "Mon, 02 Jan 2006"},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			layout, err := convertDatetimeFormat(tc.format)
			require.NoError(t, err)
			assert.Equal(t, tc.layout, layout)
		})
	}

	t.Run("unsupported pattern letter", func(t *testing.T) {
		_, err := convertDatetimeFormat("yyyy-Q")
		assert.Error(t, err)
	})

	t.Run("unterminated quote", func(t *testing.T) {
		_, err := convertDatetimeFormat("yyyy'T")
		assert.Error(t, err)
	})
}

func TestValidateDatetime(t *testing.T) {
	assert.NoError(t, validateDatetime("2000-01-01", "yyyy-MM-dd"))
	assert.NoError(t, validateDatetime("14:31:20", "HH:mm:ss"))
	assert.NoError(t, validateDatetime("2000-01-01T14:31:20+10:00", "yyyy-MM-dd'T'HH:mm:ssXXX"))
	assert.Error(t, validateDatetime("01-01-2000", "yyyy-MM-dd"))
	assert.Error(t, validateDatetime("14:31", "HH:mm:ss"))
}

func TestMatchStringRule(t *testing.T) {
	t.Run("equality", func(t *testing.T) {
		assert.NoError(t, matchStringRule("a", "a", domain.EqualityRule(), false))
		err := matchStringRule("a", "b", domain.EqualityRule(), false)
		require.Error(t, err)
		assert.Equal(t, "Expected 'a' to be equal to 'b'", err.Error())
	})

	t.Run("include", func(t *testing.T) {
		assert.NoError(t, matchStringRule("", "somewhere", domain.IncludeRule("here"), false))
		err := matchStringRule("", "nowhe", domain.IncludeRule("here"), false)
		require.Error(t, err)
		assert.Equal(t, "Expected 'nowhe' to include 'here'", err.Error())
	})

	t.Run("number classes", func(t *testing.T) {
		assert.NoError(t, matchStringRule("", "100", domain.IntegerRule(), false))
		assert.Error(t, matchStringRule("", "100.1", domain.IntegerRule(), false))
		assert.NoError(t, matchStringRule("", "100.1", domain.DecimalRule(), false))
		assert.Error(t, matchStringRule("", "100", domain.DecimalRule(), false))
		assert.NoError(t, matchStringRule("", "1e3", domain.NumberRule(), false))
	})

	t.Run("semver", func(t *testing.T) {
		assert.NoError(t, matchStringRule("", "1.2.3-beta.1", domain.SemverRule(), false))
		err := matchStringRule("", "04.1.2", domain.SemverRule(), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'04.1.2' is not a valid semantic version")
	})

	t.Run("not empty", func(t *testing.T) {
		assert.NoError(t, matchStringRule("", "x", domain.NotEmptyRule(), false))
		err := matchStringRule("", "", domain.NotEmptyRule(), false)
		require.Error(t, err)
		assert.Equal(t, "Expected an non-empty string", err.Error())
	})

	t.Run("lookaround regex", func(t *testing.T) {
		assert.NoError(t, matchStringRule("", "price-10", domain.RegexRule(`^(?!id).*$`), false))
		assert.Error(t, matchStringRule("", "id-10", domain.RegexRule(`^(?!id).*$`), false))
	})
}

func TestMatchStatusCode(t *testing.T) {
	cases := []struct {
		name   string
		rule   domain.MatchingRule
		status int
		ok     bool
	}{
		{"information", domain.StatusCodeRule(domain.StatusInformation), 150, true},
		{"success", domain.StatusCodeRule(domain.StatusSuccess), 204, true},
		{"success upper bound", domain.StatusCodeRule(domain.StatusSuccess), 300, false},
		{"redirect", domain.StatusCodeRule(domain.StatusRedirect), 301, true},
		{"client error", domain.StatusCodeRule(domain.StatusClientError), 404, true},
		{"server error", domain.StatusCodeRule(domain.StatusServerError), 503, true},
		{"non error", domain.StatusCodeRule(domain.StatusNonError), 399, true},
		{"non error rejects 4xx", domain.StatusCodeRule(domain.StatusNonError), 400, false},
		{"error", domain.StatusCodeRule(domain.StatusRangeError), 500, true},
		{"explicit list", domain.StatusCodesRule(200, 201), 201, true},
		{"explicit list rejects others", domain.StatusCodesRule(200, 201), 202, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := matchStatusCode(tc.status, tc.rule)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	t.Run("mismatch message names the range", func(t *testing.T) {
		err := matchStatusCode(404, domain.StatusCodeRule(domain.StatusSuccess))
		require.Error(t, err)
		assert.Equal(t, "Expected status code 404 to be a success", err.Error())
	})

	t.Run("mismatch message lists explicit codes", func(t *testing.T) {
		err := matchStatusCode(202, domain.StatusCodesRule(200, 201))
		require.Error(t, err)
		assert.Equal(t, "Expected status code 202 to be a [200, 201]", err.Error())
	})
}

func TestApplyRuleListLogic(t *testing.T) {
	path := []string{"$", "value"}

	t.Run("and collects every failure", func(t *testing.T) {
		list := domain.NewRuleList(domain.LogicAnd, domain.IntegerRule(), domain.IncludeRule("9"))
		failures := applyRuleList(path, list, func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule("", "abc", rule, cascaded)
		})
		assert.Len(t, failures, 2)
	})

	t.Run("or passes when any rule passes", func(t *testing.T) {
		list := domain.NewRuleList(domain.LogicOr, domain.IntegerRule(), domain.IncludeRule("b"))
		failures := applyRuleList(path, list, func(rule domain.MatchingRule, cascaded bool) error {
			return matchStringRule("", "abc", rule, cascaded)
		})
		assert.Empty(t, failures)
	})

	t.Run("empty list is itself a failure", func(t *testing.T) {
		failures := applyRuleList(path, domain.RuleList{}, func(rule domain.MatchingRule, cascaded bool) error {
			return nil
		})
		require.Len(t, failures, 1)
		assert.Equal(t, "No matcher found for path '$.value'", failures[0])
	})
}
