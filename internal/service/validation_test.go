package service_test

import (
	"strings"
	"testing"

	"narravox-server/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestValidateInput(t *testing.T) {
	t.Run("accepts normal prompts", func(t *testing.T) {
		assert.NoError(t, service.ValidateInput("a jazz detective story", service.MaxPromptLength))
	})

	t.Run("rejects empty and whitespace-only input", func(t *testing.T) {
		err := service.ValidateInput("", service.MaxPromptLength)
		assert.True(t, service.IsValidationError(err))
		// ValidateInput also guards continuation inputs and preference
		// fields, so the message must not presume a story prompt.
		assert.Equal(t, "input cannot be empty", err.Error())
		assert.True(t, service.IsValidationError(service.ValidateInput("   \t\n", service.MaxPromptLength)))
	})

	t.Run("rejects input over the length cap", func(t *testing.T) {
		long := strings.Repeat("a", service.MaxPromptLength+1)
		err := service.ValidateInput(long, service.MaxPromptLength)
		assert.True(t, service.IsValidationError(err))
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("accepts input exactly at the cap", func(t *testing.T) {
		assert.NoError(t, service.ValidateInput(strings.Repeat("a", service.MaxPromptLength), service.MaxPromptLength))
	})

	t.Run("rejects dangerous patterns", func(t *testing.T) {
		dangerous := []string{
			"<script>alert(1)</script>",
			"<SCRIPT src=x>",
			"click javascript:alert(1)",
			`<img onerror= "x">`,
			"data:text/html,payload",
			"vbscript:msgbox",
			"<iframe src=x>",
		}
		for _, input := range dangerous {
			err := service.ValidateInput(input, service.MaxPromptLength)
			assert.True(t, service.IsValidationError(err), "input %q must be rejected", input)
		}
	})

	t.Run("plain angle brackets in prose are allowed", func(t *testing.T) {
		assert.NoError(t, service.ValidateInput("the value of x < y in this story", service.MaxPromptLength))
	})
}

func TestSanitizeText(t *testing.T) {
	t.Run("strips html tags", func(t *testing.T) {
		assert.Equal(t, "hello world", service.SanitizeText("hello <b>world</b>"))
	})

	t.Run("escapes special characters", func(t *testing.T) {
		assert.Equal(t, "Tom &amp; Jerry &#x27;quoted&#x27; &quot;text&quot;", service.SanitizeText(`Tom & Jerry 'quoted' "text"`))
	})

	t.Run("ampersand escapes before other entities", func(t *testing.T) {
		// A pre-existing entity must not double-escape into &amp;lt;
		// through ordering mistakes; the tag strip runs first so only
		// loose characters remain.
		assert.Equal(t, "a &amp; b &lt; c", service.SanitizeText("a & b < c"))
	})

	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "a jazz detective story", service.SanitizeText("a jazz detective story"))
	})
}
