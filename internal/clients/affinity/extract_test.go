package affinity_test

import (
	"strings"
	"testing"

	"narravox-server/internal/clients/affinity"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntities(t *testing.T) {
	t.Run("quoted phrases come first", func(t *testing.T) {
		entities := affinity.ExtractEntities(`a story about "Blade Runner" and "Miles Davis"`)
		assert.Equal(t, []string{"Blade Runner", "Miles Davis"}, entities[:2])
	})

	t.Run("capitalized runs are captured", func(t *testing.T) {
		entities := affinity.ExtractEntities("A detective in Neo Tokyo meets Maria")
		assert.Contains(t, entities, "Neo Tokyo")
		assert.Contains(t, entities, "Maria")
	})

	t.Run("cultural keywords match case-insensitively", func(t *testing.T) {
		entities := affinity.ExtractEntities("a JAZZ musician in a sci-fi world")
		assert.Contains(t, entities, "jazz")
		assert.Contains(t, entities, "sci-fi")
	})

	t.Run("stop words and short candidates are dropped", func(t *testing.T) {
		entities := affinity.ExtractEntities("The Fox And My TV")
		assert.NotContains(t, entities, "The")
		assert.NotContains(t, entities, "And")
		assert.NotContains(t, entities, "TV")
	})

	t.Run("duplicates collapse case-insensitively", func(t *testing.T) {
		entities := affinity.ExtractEntities(`"jazz" music with Jazz overtones`)
		count := 0
		for _, e := range entities {
			if strings.EqualFold(e, "jazz") {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("capped at ten entities", func(t *testing.T) {
		entities := affinity.ExtractEntities("Alpha Bravo Charlie Delta Echo Foxtrot Golf Hotel India Juliett Kilo Lima Mike")
		assert.LessOrEqual(t, len(entities), 10)
	})

	t.Run("empty and unremarkable text yields nothing", func(t *testing.T) {
		assert.Empty(t, affinity.ExtractEntities(""))
		assert.Empty(t, affinity.ExtractEntities("a story about nothing in particular"))
	})

	t.Run("deterministic output", func(t *testing.T) {
		text := `a jazz detective in "Neo Tokyo" hunts a thriller plot`
		first := affinity.ExtractEntities(text)
		second := affinity.ExtractEntities(text)
		assert.Equal(t, first, second)
	})
}
