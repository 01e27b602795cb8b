package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/matching"
)

func TestMatchXML(t *testing.T) {
	ctx := matching.NewContext(domain.AllowUnexpectedKeys, nil)

	t.Run("identical documents match", func(t *testing.T) {
		body := []byte(`<alligator name="Mary"><favouriteColour>blue</favouriteColour></alligator>`)
		assert.Empty(t, matching.MatchXML(body, body, ctx))
	})

	t.Run("different element names", func(t *testing.T) {
		mismatches := matching.MatchXML([]byte(`<alligator/>`), []byte(`<crocodile/>`), ctx)
		assert.NotEmpty(t, mismatches)
	})

	t.Run("different attribute values", func(t *testing.T) {
		expected := []byte(`<alligator name="Mary"/>`)
		actual := []byte(`<alligator name="Fred"/>`)
		mismatches := matching.MatchXML(expected, actual, ctx)
		require.NotEmpty(t, mismatches)
		assert.Contains(t, mismatches[0].Path, "@name")
	})

	t.Run("missing attribute", func(t *testing.T) {
		expected := []byte(`<alligator name="Mary" age="3"/>`)
		actual := []byte(`<alligator name="Mary"/>`)
		mismatches := matching.MatchXML(expected, actual, ctx)
		assert.NotEmpty(t, mismatches)
	})

	t.Run("text mismatch", func(t *testing.T) {
		expected := []byte(`<colour>blue</colour>`)
		actual := []byte(`<colour>red</colour>`)
		mismatches := matching.MatchXML(expected, actual, ctx)
		require.NotEmpty(t, mismatches)
		assert.Contains(t, mismatches[0].Path, "#text")
	})

	t.Run("unparseable actual document", func(t *testing.T) {
		mismatches := matching.MatchXML([]byte(`<a/>`), []byte(`<a>`), ctx)
		assert.NotEmpty(t, mismatches)
	})

	t.Run("type matcher compares children against the first expected", func(t *testing.T) {
		category := domain.NewCategory(domain.CategoryBody)
		require.NoError(t, category.AddRule("$.zoo", domain.LogicAnd, domain.MinTypeRule(1)))
		typeCtx := matching.NewContext(domain.AllowUnexpectedKeys, category)

		expected := []byte(`<zoo><animal name="a"/></zoo>`)
		actual := []byte(`<zoo><animal name="b"/><animal name="c"/></zoo>`)
		mismatches := matching.MatchXML(expected, actual, typeCtx)
		// The name attribute has no matcher, so the values must be equal.
		assert.NotEmpty(t, mismatches)
	})

	t.Run("extra children are rejected in strict mode", func(t *testing.T) {
		strictCtx := matching.NewContext(domain.NoUnexpectedKeys, nil)
		expected := []byte(`<zoo><animal/></zoo>`)
		actual := []byte(`<zoo><animal/><animal/></zoo>`)
		mismatches := matching.MatchXML(expected, actual, strictCtx)
		assert.NotEmpty(t, mismatches)
	})
}
