package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/matching"
)

func plainContext(config domain.DiffConfig) *matching.Context {
	return matching.NewContext(config, nil)
}

func ruleContext(t *testing.T, config domain.DiffConfig, expr string, rules ...domain.MatchingRule) *matching.Context {
	t.Helper()
	category := domain.NewCategory(domain.CategoryBody)
	require.NoError(t, category.AddRule(expr, domain.LogicAnd, rules...))
	return matching.NewContext(config, category)
}

func TestMatchJSONEquality(t *testing.T) {
	t.Run("identical documents match", func(t *testing.T) {
		body := []byte(`{"a": 1, "b": ["x", "y"], "c": {"d": true}}`)
		mismatches := matching.MatchJSON(body, body, plainContext(domain.AllowUnexpectedKeys))
		assert.Empty(t, mismatches)
	})

	t.Run("differing value reports the path", func(t *testing.T) {
		expected := []byte(`{"a": 100}`)
		actual := []byte(`{"a": 101}`)
		mismatches := matching.MatchJSON(expected, actual, plainContext(domain.AllowUnexpectedKeys))
		require.Len(t, mismatches, 1)
		assert.Equal(t, "$.a", mismatches[0].Path)
		assert.Equal(t, "Expected '100' to be equal to '101'", mismatches[0].Description)
	})

	t.Run("differing list element uses the index as path segment", func(t *testing.T) {
		expected := []byte(`["a", "b"]`)
		actual := []byte(`["a", "c"]`)
		mismatches := matching.MatchJSON(expected, actual, plainContext(domain.AllowUnexpectedKeys))
		require.Len(t, mismatches, 1)
		assert.Equal(t, "$.1", mismatches[0].Path)
	})

	t.Run("integers and decimals are distinct", func(t *testing.T) {
		mismatches := matching.MatchJSON([]byte(`100`), []byte(`100.0`),
			ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.IntegerRule()))
		require.Len(t, mismatches, 1)
		assert.Equal(t, "Expected '100.0' to be an integer value", mismatches[0].Description)
	})
}

func TestMatchJSONParseFailures(t *testing.T) {
	mismatches := matching.MatchJSON([]byte(`{"a":`), []byte(`not json`), plainContext(domain.AllowUnexpectedKeys))
	require.Len(t, mismatches, 2)
	assert.Contains(t, mismatches[0].Description, "Failed to parse the expected body")
	assert.Contains(t, mismatches[1].Description, "Failed to parse the actual body")
	assert.Equal(t, "$", mismatches[0].Path)
}

func TestMatchJSONTypeMismatch(t *testing.T) {
	expected := []byte(`{"a": 1}`)
	actual := []byte(`[1]`)
	mismatches := matching.MatchJSON(expected, actual, plainContext(domain.AllowUnexpectedKeys))
	require.Len(t, mismatches, 1)
	assert.Equal(t, `Type mismatch: Expected Map {"a":1} but received List [1]`, mismatches[0].Description)
}

func TestMatchJSONMapKeys(t *testing.T) {
	t.Run("expected empty map rejects any entries", func(t *testing.T) {
		mismatches := matching.MatchJSON([]byte(`{}`), []byte(`{"a": 1}`), plainContext(domain.AllowUnexpectedKeys))
		require.Len(t, mismatches, 1)
		assert.Equal(t, `Expected an empty Map but received {"a":1}`, mismatches[0].Description)
	})

	t.Run("missing keys are always reported", func(t *testing.T) {
		expected := []byte(`{"a": 1, "b": 2, "c": 3}`)
		actual := []byte(`{"a": 1, "b": 2}`)
		mismatches := matching.MatchJSON(expected, actual, plainContext(domain.AllowUnexpectedKeys))
		require.NotEmpty(t, mismatches)
		assert.Equal(t, "Actual map is missing the following keys: c", mismatches[0].Description)
	})

	t.Run("unexpected keys fail a strict comparison", func(t *testing.T) {
		expected := []byte(`{"a": 1, "b": 2}`)
		actual := []byte(`{"a": 1, "b": 2, "c": 3}`)
		mismatches := matching.MatchJSON(expected, actual, plainContext(domain.NoUnexpectedKeys))
		require.Len(t, mismatches, 1)
		assert.Equal(t, "Expected a Map with keys a, b but received one with keys a, b, c",
			mismatches[0].Description)
	})

	t.Run("unexpected keys are allowed in a lenient comparison", func(t *testing.T) {
		expected := []byte(`{"a": 1}`)
		actual := []byte(`{"a": 1, "c": 3}`)
		mismatches := matching.MatchJSON(expected, actual, plainContext(domain.AllowUnexpectedKeys))
		assert.Empty(t, mismatches)
	})
}

func TestMatchJSONLists(t *testing.T) {
	t.Run("shorter actual list reports missing entries and the length", func(t *testing.T) {
		expected := []byte(`[1, 2, 3]`)
		actual := []byte(`[1, 2]`)
		mismatches := matching.MatchJSON(expected, actual, plainContext(domain.AllowUnexpectedKeys))
		require.Len(t, mismatches, 2)
		assert.Equal(t, "Expected 3 but was missing", mismatches[0].Description)
		assert.Equal(t, "Expected a List with 3 elements but received 2 elements", mismatches[1].Description)
	})

	t.Run("min type matcher compares every element against the first", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.MinTypeRule(1))
		expected := []byte(`[{"name": "x"}]`)
		actual := []byte(`[{"name": "a"}, {"name": "b"}]`)
		assert.Empty(t, matching.MatchJSON(expected, actual, ctx))
	})

	t.Run("min type matcher enforces the bound", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.MinTypeRule(3))
		mismatches := matching.MatchJSON([]byte(`[1]`), []byte(`[1, 2]`), ctx)
		require.Len(t, mismatches, 1)
		assert.Equal(t, "Expected list with length 2 to have a minimum length of 3", mismatches[0].Description)
	})

	t.Run("cascaded min type does not re-check the bound on nested lists", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.MinTypeRule(2))
		expected := []byte(`[[1, 2]]`)
		actual := []byte(`[[1], [3]]`)
		assert.Empty(t, matching.MatchJSON(expected, actual, ctx))
	})
}

func TestMatchJSONWithMatchers(t *testing.T) {
	t.Run("regex matcher overrides equality", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$.id", domain.RegexRule(`\d+`))
		assert.Empty(t, matching.MatchJSON([]byte(`{"id": "100"}`), []byte(`{"id": "255"}`), ctx))
	})

	t.Run("regex failure names the pattern", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$.id", domain.RegexRule(`^\d+$`))
		mismatches := matching.MatchJSON([]byte(`{"id": "100"}`), []byte(`{"id": "abc"}`), ctx)
		require.Len(t, mismatches, 1)
		assert.Equal(t, `Expected 'abc' to match '^\d+$'`, mismatches[0].Description)
	})

	t.Run("the most specific matcher wins", func(t *testing.T) {
		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$.*", domain.LogicAnd, domain.RegexRule(`^[a-z]+$`)))
		require.NoError(t, category.AddRule("$.id", domain.LogicAnd, domain.RegexRule(`^\d+$`)))
		ctx := matching.NewContext(domain.AllowUnexpectedKeys, category)

		assert.Empty(t, matching.MatchJSON([]byte(`{"id": "1"}`), []byte(`{"id": "42"}`), ctx))
	})

	t.Run("wildcard matcher covers unexpected keys", func(t *testing.T) {
		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$.*", domain.LogicAnd, domain.TypeRule()))
		ctx := matching.NewContext(domain.NoUnexpectedKeys, category)

		expected := []byte(`{"a": "x", "b": "y"}`)
		actual := []byte(`{"a": "p", "b": "q"}`)
		assert.Empty(t, matching.MatchJSON(expected, actual, ctx))
	})

	t.Run("values matcher ignores the actual keys", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.ValuesRule(), domain.TypeRule())
		expected := []byte(`{"a": 100}`)
		actual := []byte(`{"x": 1, "y": 2}`)
		assert.Empty(t, matching.MatchJSON(expected, actual, ctx))
	})
}

func TestMatchJSONArrayContains(t *testing.T) {
	t.Run("variants found anywhere in the actual list", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.ArrayContainsRule())
		expected := []byte(`[1, 2, 3]`)
		actual := []byte(`[10, 22, 6, 1, 5, 3, 2]`)
		assert.Empty(t, matching.MatchJSON(expected, actual, ctx))
	})

	t.Run("missing variant is reported", func(t *testing.T) {
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", domain.ArrayContainsRule())
		expected := []byte(`[1, 2, 3]`)
		actual := []byte(`[10, 22, 6, 1, 5, 2]`)
		mismatches := matching.MatchJSON(expected, actual, ctx)
		require.Len(t, mismatches, 1)
		assert.Equal(t, "Variant at index 2 (3) was not found in the actual list", mismatches[0].Description)
	})

	t.Run("variant index beyond the expected list", func(t *testing.T) {
		rule := domain.ArrayContainsRule(domain.ArrayContainsVariant{Index: 5})
		ctx := ruleContext(t, domain.AllowUnexpectedKeys, "$", rule)
		mismatches := matching.MatchJSON([]byte(`[1, 2]`), []byte(`[1, 2]`), ctx)
		require.Len(t, mismatches, 1)
		assert.Equal(t, "ArrayContains: variant 5 is missing from the expected list, which has 2 items",
			mismatches[0].Description)
	})
}
