package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

func TestMaxByPath(t *testing.T) {
	path := []string{"$", "item1", "level", "3", "id"}

	t.Run("the most specific expression wins", func(t *testing.T) {
		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$", domain.LogicAnd, domain.EqualityRule()))
		require.NoError(t, category.AddRule("$.item1", domain.LogicAnd, domain.TypeRule()))
		require.NoError(t, category.AddRule("$.item1.level[1]", domain.LogicAnd, domain.IntegerRule()))
		require.NoError(t, category.AddRule("$.item1.level[*].id", domain.LogicAnd, domain.NumberRule()))

		list := category.MaxByPath(path)
		require.Len(t, list.Rules, 1)
		assert.Equal(t, domain.RuleNumber, list.Rules[0].Kind)
		assert.False(t, list.Cascaded)
	})

	t.Run("a shorter expression cascades onto deeper values", func(t *testing.T) {
		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$.item1", domain.LogicAnd, domain.TypeRule()))

		list := category.MaxByPath(path)
		require.Len(t, list.Rules, 1)
		assert.True(t, list.Cascaded)

		exact := category.MaxByPath([]string{"$", "item1"})
		assert.False(t, exact.Cascaded)
	})

	t.Run("equal specificity keeps the rule registered last", func(t *testing.T) {
		selected := []string{"$", "a", "b"}

		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$.a.*", domain.LogicAnd, domain.RegexRule("\\d+")))
		require.NoError(t, category.AddRule("$.*.b", domain.LogicAnd, domain.TypeRule()))
		list := category.MaxByPath(selected)
		require.Len(t, list.Rules, 1)
		assert.Equal(t, domain.RuleType, list.Rules[0].Kind)

		reversed := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, reversed.AddRule("$.*.b", domain.LogicAnd, domain.TypeRule()))
		require.NoError(t, reversed.AddRule("$.a.*", domain.LogicAnd, domain.RegexRule("\\d+")))
		list = reversed.MaxByPath(selected)
		require.Len(t, list.Rules, 1)
		assert.Equal(t, domain.RuleRegex, list.Rules[0].Kind)
	})

	t.Run("no selecting expression gives an empty list", func(t *testing.T) {
		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$.item2", domain.LogicAnd, domain.TypeRule()))
		assert.True(t, category.MaxByPath(path).IsEmpty())
	})
}

func TestMatcherDefined(t *testing.T) {
	category := domain.NewCategory(domain.CategoryBody)
	require.NoError(t, category.AddRule("$.item1.level[*].id", domain.LogicAnd, domain.TypeRule()))

	assert.True(t, category.MatcherDefined([]string{"$", "item1", "level", "0", "id"}))
	assert.False(t, category.MatcherDefined([]string{"$", "item1", "level", "x", "id"}))
	assert.False(t, category.MatcherDefined([]string{"$", "item2"}))
}
