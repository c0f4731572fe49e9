package handler

import (
	"time"

	"narravox-server/internal/models"
)

type startStoryRequest struct {
	Prompt string `json:"prompt"`
}

type continueStoryRequest struct {
	Input          string `json:"input"`
	IsBranchChoice bool   `json:"is_branch_choice"`
}

type buildProfileRequest struct {
	Preferences map[string]string `json:"preferences"`
}

type entryResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	TurnIndex int       `json:"turn_index"`
	CreatedAt time.Time `json:"created_at"`
}

func toEntryResponse(entry models.StoryEntry) entryResponse {
	return entryResponse{
		ID:        entry.ID.String(),
		Content:   entry.Content,
		Role:      string(entry.Role),
		TurnIndex: entry.TurnIndex,
		CreatedAt: entry.CreatedAt,
	}
}

type turnResponse struct {
	Entry           entryResponse `json:"entry"`
	TurnCount       int           `json:"turn_count"`
	MaxTurns        int           `json:"max_turns"`
	IsComplete      bool          `json:"is_complete"`
	CulturalContext string        `json:"cultural_context,omitempty"`
}

type optionsResponse struct {
	Options []string `json:"options"`
}

type enhanceResponse struct {
	Discovered      bool   `json:"discovered"`
	NewContext      string `json:"new_context,omitempty"`
	CulturalContext string `json:"cultural_context,omitempty"`
}

type profileResponse struct {
	Preferences map[string][]string `json:"preferences"`
	Suggestions []string            `json:"suggestions"`
	Source      string              `json:"source"`
}

type storyResponse struct {
	SessionID            string                       `json:"session_id"`
	Started              bool                         `json:"started"`
	Entries              []entryResponse              `json:"entries"`
	TurnCount            int                          `json:"turn_count"`
	MaxTurns             int                          `json:"max_turns"`
	IsComplete           bool                         `json:"is_complete"`
	CulturalContext      string                       `json:"cultural_context,omitempty"`
	CulturalExplanations []models.CulturalExplanation `json:"cultural_explanations,omitempty"`
	BranchingOptions     []string                     `json:"branching_options,omitempty"`
	Suggestions          []string                     `json:"suggestions,omitempty"`
	LastError            *models.SessionError         `json:"last_error,omitempty"`
	ShareLink            string                       `json:"share_link,omitempty"`
	SocialExcerpt        string                       `json:"social_excerpt,omitempty"`
}

// ErrorResponse is the JSON error body for all failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeBadRequest  = "BAD_REQUEST"
	errCodeValidation  = "VALIDATION_FAILED"
	errCodeRateLimited = "RATE_LIMITED"
	errCodeComplete    = "STORY_COMPLETE"
	errCodeUpstream    = "UPSTREAM_ERROR"
	errCodeInternal    = "INTERNAL_ERROR"
)
