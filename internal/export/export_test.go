package export_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"narravox-server/internal/export"
	"narravox-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExport() models.SessionExport {
	return models.SessionExport{
		SessionID: "5a1d1a9e-0000-4000-8000-000000000001",
		Entries: []models.StoryEntry{
			{ID: uuid.New(), Content: "A detective walks into a jazz bar", Role: models.RoleUser, TurnIndex: 0},
			{ID: uuid.New(), Content: "The saxophone stopped mid-note.", Role: models.RoleAI, TurnIndex: 0},
		},
		CulturalContext: "music: Jazz; film: Noir",
		TurnCount:       1,
		CulturalExplanations: []models.CulturalExplanation{
			{Label: "Story Cultural Elements", Text: "jazz themes"},
		},
		ExportedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateStoryText(t *testing.T) {
	text := export.CreateStoryText(sampleExport())

	assert.True(t, strings.HasPrefix(text, "NARRAVOX STORY\n"+strings.Repeat("=", 50)))
	assert.Contains(t, text, "Session ID: 5a1d1a9e-0000-4000-8000-000000000001")
	assert.Contains(t, text, "Turns: 1")
	assert.Contains(t, text, "CULTURAL CONTEXT:")
	assert.Contains(t, text, "music: Jazz; film: Noir")
	assert.Contains(t, text, "[YOU]\nA detective walks into a jazz bar")
	assert.Contains(t, text, "[AI]\nThe saxophone stopped mid-note.")
	assert.Contains(t, text, "CULTURAL INSIGHTS:")
	assert.Contains(t, text, "Story Cultural Elements: jazz themes")
}

func TestCreateStoryTextOmitsEmptySections(t *testing.T) {
	data := sampleExport()
	data.CulturalContext = ""
	data.CulturalExplanations = nil

	text := export.CreateStoryText(data)
	assert.NotContains(t, text, "CULTURAL CONTEXT:")
	assert.NotContains(t, text, "CULTURAL INSIGHTS:")
	assert.Contains(t, text, "STORY:")
}

func TestCreateStoryPDF(t *testing.T) {
	pdfBytes, err := export.CreateStoryPDF(sampleExport())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfBytes), "%PDF"), "output must be a PDF document")
	assert.Greater(t, len(pdfBytes), 500)
}

func TestShareableLink(t *testing.T) {
	assert.Equal(t,
		"https://narravox.example.com/story/abc",
		export.ShareableLink("https://narravox.example.com/", "abc"))
	assert.Equal(t,
		"https://narravox.example.com/story/abc",
		export.ShareableLink("https://narravox.example.com", "abc"))
}

func TestSocialExcerpt(t *testing.T) {
	t.Run("uses the first AI entry", func(t *testing.T) {
		got := export.SocialExcerpt(sampleExport())
		assert.Equal(t, `I created a story with Narravox: "The saxophone stopped mid-note." Check it out!`, got)
	})

	t.Run("long excerpts are truncated", func(t *testing.T) {
		data := sampleExport()
		data.Entries[1].Content = strings.Repeat("a", 300)
		got := export.SocialExcerpt(data)
		assert.Contains(t, got, strings.Repeat("a", 197)+"...")
		assert.NotContains(t, got, strings.Repeat("a", 198))
	})

	t.Run("truncation keeps multi-byte characters intact", func(t *testing.T) {
		data := sampleExport()
		data.Entries[1].Content = strings.Repeat("é", 300)
		got := export.SocialExcerpt(data)
		assert.True(t, utf8.ValidString(got), "excerpt must stay valid UTF-8")
		assert.Contains(t, got, strings.Repeat("é", 197)+"...")
	})
}
