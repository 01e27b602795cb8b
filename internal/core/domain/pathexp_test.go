package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

func TestParsePathTokens(t *testing.T) {
	t.Run("fields, indexes and wildcards", func(t *testing.T) {
		tokens, err := domain.ParsePathTokens("$.a.b[2]['name'][*].*")
		require.NoError(t, err)

		require.Len(t, tokens, 7)
		assert.Equal(t, domain.TokenRoot, tokens[0].Kind)
		assert.Equal(t, "a", tokens[1].Name)
		assert.Equal(t, "b", tokens[2].Name)
		assert.Equal(t, 2, tokens[3].Index)
		assert.Equal(t, "name", tokens[4].Name)
		assert.Equal(t, domain.TokenStarIndex, tokens[5].Kind)
		assert.Equal(t, domain.TokenStar, tokens[6].Kind)
	})

	t.Run("invalid expressions", func(t *testing.T) {
		for _, expr := range []string{"", "a.b", "$.", "$.a[", "$.a[b]", "$.a['x"} {
			_, err := domain.ParsePathTokens(expr)
			assert.Error(t, err, "expression %q", expr)
		}
	})
}

func TestPathWeight(t *testing.T) {
	path := []string{"$", "item1", "level", "3", "id"}

	tests := []struct {
		expr   string
		weight int
	}{
		{"$", 2},
		{"$.item1", 4},
		{"$.item1.level", 8},
		{"$.item1.level[1]", 0},
		{"$.item1.level[3]", 16},
		{"$.item1.level[*]", 8},
		{"$.item1.level[*].id", 16},
		{"$.*.level[*].id", 8},
		{"$.item2", 0},
		{"$.item1.level[3].id.extra", 0},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			tokens, err := domain.ParsePathTokens(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.weight, domain.PathWeight(tokens, path))
		})
	}
}
