package narrative_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"narravox-server/internal/clients/narrative"
	"narravox-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "cmpl-test",
		"object":  "chat.completion",
		"created": 1756700000,
		"model":   "sonar-pro",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 20, "completion_tokens": 80, "total_tokens": 100},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*narrative.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := narrative.NewClient(narrative.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, srv
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := narrative.NewClient(narrative.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestGenerateOpener(t *testing.T) {
	var captured capturedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionResponse("The fog rolled over Neo-Tokyo as the saxophone began to play."))
	})

	gen, err := client.GenerateOpener(context.Background(), "a jazz detective story", "music: Jazz; film: Noir")
	require.NoError(t, err)

	assert.Equal(t, "The fog rolled over Neo-Tokyo as the saxophone began to play.", gen.Text)
	assert.Equal(t, 80, gen.Usage.CompletionTokens)

	assert.Equal(t, "sonar-pro", captured.Model)
	assert.Equal(t, 300, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 0.001)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "Create an engaging story opening based on: a jazz detective story")
	assert.Contains(t, captured.Messages[1].Content, "Incorporate these cultural elements naturally: music: Jazz; film: Noir")
}

func TestGenerateOpenerWithoutCulturalContext(t *testing.T) {
	var captured capturedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionResponse("An opening."))
	})

	_, err := client.GenerateOpener(context.Background(), "a story", "")
	require.NoError(t, err)
	assert.NotContains(t, captured.Messages[1].Content, "Incorporate these cultural elements")
}

func TestContinueStoryHistoryWindow(t *testing.T) {
	var captured capturedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionResponse("The story goes on."))
	})

	var history []models.StoryEntry
	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAI
		}
		history = append(history, models.StoryEntry{Content: fmt.Sprintf("entry-%d", i), Role: role})
	}

	_, err := client.ContinueStory(context.Background(), history, "and then?", "music: Jazz")
	require.NoError(t, err)

	// system + last 6 history entries + new input
	require.Len(t, captured.Messages, 8)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "entry-4", captured.Messages[1].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "entry-9", captured.Messages[6].Content)
	assert.Equal(t, "assistant", captured.Messages[6].Role)

	last := captured.Messages[7]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "and then?")
	assert.Contains(t, last.Content, "Consider incorporating: music: Jazz")
}

func TestGenerateBranchingOptions(t *testing.T) {
	t.Run("parses labeled options", func(t *testing.T) {
		var captured capturedRequest
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completionResponse("Option 1: Follow the musician\nOption 2: Search the club\nOption 3: Call for backup"))
		})

		options, err := client.GenerateBranchingOptions(context.Background(), "the story so far", "music: Jazz")
		require.NoError(t, err)
		assert.Equal(t, []string{"Follow the musician", "Search the club", "Call for backup"}, options)

		assert.Equal(t, 200, captured.MaxTokens)
		assert.InDelta(t, 0.8, captured.Temperature, 0.001)
	})

	t.Run("malformed output falls back to the fixed triple", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completionResponse("Here are some vague ideas without the expected labels."))
		})

		options, err := client.GenerateBranchingOptions(context.Background(), "the story so far", "")
		require.NoError(t, err)
		assert.Equal(t, narrative.FallbackOptions(), options)
	})
}

func TestUpstreamErrorMapping(t *testing.T) {
	t.Run("API error status is preserved", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": {"message": "upstream exploded", "type": "server_error"}}`)
		})

		_, err := client.GenerateOpener(context.Background(), "a story", "")
		require.Error(t, err)

		var upstreamErr *narrative.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusInternalServerError, upstreamErr.Status)
		assert.Contains(t, err.Error(), "API Error: 500")
	})

	t.Run("empty choices are rejected", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "cmpl-test", "object": "chat.completion", "choices": []}`)
		})

		_, err := client.GenerateOpener(context.Background(), "a story", "")
		require.Error(t, err)

		var upstreamErr *narrative.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, 0, upstreamErr.Status)
	})
}
