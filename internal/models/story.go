package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryRole identifies the author of a story entry.
type EntryRole string

const (
	RoleUser EntryRole = "user"
	RoleAI   EntryRole = "ai"
)

// MaxTurns is the fixed turn limit after which a story session becomes
// read-only (except for a full reset).
const MaxTurns = 15

// StoryEntry is one immutable piece of the narrative thread. Entries are
// appended in narrative order and never modified afterwards.
type StoryEntry struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Role      EntryRole `json:"role"`
	TurnIndex int       `json:"turn_index"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionError holds the last orchestration error surfaced to the user.
type SessionError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CulturalExplanation pairs a label with the explanation text shown in the
// cultural-insights panel. A later write with the same label overwrites.
type CulturalExplanation struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// SessionStats is a read-only projection of a session for display.
type SessionStats struct {
	SessionID                 string `json:"session_id"`
	TurnsCompleted            int    `json:"turns_completed"`
	MaxTurns                  int    `json:"max_turns"`
	StoryLength               int    `json:"story_length"`
	StoryTokens               int    `json:"story_tokens"`
	EntriesCount              int    `json:"entries_count"`
	HasCulturalContext        bool   `json:"has_cultural_context"`
	CulturalExplanationsCount int    `json:"cultural_explanations_count"`
}

// SessionExport is the snapshot consumed by the export renderers.
type SessionExport struct {
	SessionID            string                `json:"session_id"`
	Entries              []StoryEntry          `json:"entries"`
	CulturalContext      string                `json:"cultural_context"`
	TurnCount            int                   `json:"turn_count"`
	Preferences          map[string][]string   `json:"preferences"`
	CulturalExplanations []CulturalExplanation `json:"cultural_explanations"`
	ExportedAt           time.Time             `json:"exported_at"`
}

// ProfileSource records whether taste-profile suggestions came from the
// affinity API or from the offline preference templates.
type ProfileSource string

const (
	ProfileSourceAffinityAPI ProfileSource = "affinity_api"
	ProfileSourcePreferences ProfileSource = "preferences"
)

// TasteProfile is the stored result of BuildTasteProfile.
type TasteProfile struct {
	Preferences map[string][]string `json:"preferences"`
	Suggestions []string            `json:"suggestions"`
	Source      ProfileSource       `json:"source"`
}

// PreferenceCategories lists the taste-profile input categories in the
// order they are rendered.
var PreferenceCategories = []string{"music", "film", "books", "travel", "brands", "other"}
