// Package export renders a story session snapshot into downloadable
// formats: plain text, PDF, and social-sharing strings.
package export

import (
	"fmt"
	"strings"
	"time"

	"narravox-server/internal/models"
)

// CreateStoryText renders the session as a plain-text document.
func CreateStoryText(data models.SessionExport) string {
	var lines []string

	lines = append(lines,
		"NARRAVOX STORY",
		strings.Repeat("=", 50),
		fmt.Sprintf("Session ID: %s", data.SessionID),
		fmt.Sprintf("Created: %s", data.ExportedAt.Format(time.RFC3339)),
		fmt.Sprintf("Turns: %d", data.TurnCount),
		"",
	)

	if data.CulturalContext != "" {
		lines = append(lines,
			"CULTURAL CONTEXT:",
			strings.Repeat("-", 20),
			data.CulturalContext,
			"",
		)
	}

	lines = append(lines,
		"STORY:",
		strings.Repeat("-", 20),
		"",
	)
	for _, entry := range data.Entries {
		lines = append(lines,
			fmt.Sprintf("[%s]", speakerLabel(entry.Role)),
			entry.Content,
			"",
		)
	}

	if len(data.CulturalExplanations) > 0 {
		lines = append(lines,
			"CULTURAL INSIGHTS:",
			strings.Repeat("-", 20),
		)
		for _, explanation := range data.CulturalExplanations {
			lines = append(lines, fmt.Sprintf("%s: %s", explanation.Label, explanation.Text))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func speakerLabel(role models.EntryRole) string {
	if role == models.RoleUser {
		return "YOU"
	}
	return "AI"
}
