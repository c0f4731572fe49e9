package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"narravox-server/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar-pro"
	defaultTimeout = 30 * time.Second

	// Last N history entries re-rendered into the chat window on
	// continuation.
	historyWindow = 6

	storyMaxTokens   = 300
	optionsMaxTokens = 200

	storyTemperature   = 0.7
	optionsTemperature = 0.8
)

const (
	openerSystemPrompt   = "You are a creative storyteller who crafts engaging narratives. Create vivid, immersive story openings that incorporate cultural elements naturally. Keep responses to 2-3 paragraphs."
	continueSystemPrompt = "You are continuing a collaborative story. Maintain narrative consistency and incorporate cultural elements naturally. Respond with 2-3 paragraphs that advance the plot."
	optionsSystemPrompt  = "You are a creative storyteller generating branching narrative options. Provide exactly 3 distinct, engaging choices."
)

// UpstreamError carries a non-success status or transport failure from
// the completion API; the message is surfaced to the user verbatim.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("API Error: %d - %s", e.Status, e.Message)
	}
	return fmt.Sprintf("Request failed: %s", e.Message)
}

// Generation is one successful completion.
type Generation struct {
	Text  string       `json:"text"`
	Usage openai.Usage `json:"usage"`
}

// Config holds the narrative client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client wraps the completion API. Every operation is a single call with
// a fixed timeout and no retry.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a narrative client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("narrative API key is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("NarrativeClient"),
	}, nil
}

// GenerateOpener generates the initial story content for a prompt,
// embedding the cultural context clause when present.
func (c *Client) GenerateOpener(ctx context.Context, prompt, culturalContext string) (*Generation, error) {
	userPrompt := fmt.Sprintf("Create an engaging story opening based on: %s", prompt)
	if culturalContext != "" {
		userPrompt += fmt.Sprintf("\n\nIncorporate these cultural elements naturally: %s", culturalContext)
	}

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   storyMaxTokens,
		Temperature: storyTemperature,
	})
}

// ContinueStory generates the next story beat from the recent history and
// the user's new input.
func (c *Client) ContinueStory(ctx context.Context, history []models.StoryEntry, input, culturalContext string) (*Generation, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: continueSystemPrompt},
	}

	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, entry := range history[start:] {
		role := openai.ChatMessageRoleAssistant
		if entry.Role == models.RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: entry.Content})
	}

	enhanced := input
	if culturalContext != "" {
		enhanced += fmt.Sprintf("\n\nConsider incorporating: %s", culturalContext)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: enhanced})

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   storyMaxTokens,
		Temperature: storyTemperature,
	})
}

// GenerateBranchingOptions asks for exactly 3 labeled continuations and
// parses them with the strict "Option N:" contract. A malformed response
// falls back to the fixed option triple, never to a partial parse.
func (c *Client) GenerateBranchingOptions(ctx context.Context, storyText, culturalContext string) ([]string, error) {
	prompt := fmt.Sprintf(`Based on this story:

%s

Generate 3 distinct continuation options that:
1. Advance the plot in different directions
2. Incorporate these cultural elements: %s
3. Each option should be 1-2 sentences

Format as:
Option 1: [continuation]
Option 2: [continuation]
Option 3: [continuation]`, storyText, culturalContext)

	gen, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: optionsSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   optionsMaxTokens,
		Temperature: optionsTemperature,
	})
	if err != nil {
		return nil, err
	}

	options, ok := ParseOptions(gen.Text)
	if !ok {
		c.logger.Warn("Branching options parse failed, using fallback options")
		return FallbackOptions(), nil
	}
	return options, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (*Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, &UpstreamError{Message: err.Error()}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &UpstreamError{Message: "empty response from completion API"}
	}

	return &Generation{
		Text:  resp.Choices[0].Message.Content,
		Usage: resp.Usage,
	}, nil
}
