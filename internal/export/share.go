package export

import (
	"fmt"
	"strings"

	"narravox-server/internal/models"
)

const socialExcerptLimit = 200

// ShareableLink builds the public URL for a story session.
func ShareableLink(baseURL, sessionID string) string {
	return fmt.Sprintf("%s/story/%s", strings.TrimRight(baseURL, "/"), sessionID)
}

// SocialExcerpt formats the first AI entry as a social-sharing blurb,
// truncated to roughly 200 characters. Truncation counts runes so a
// multi-byte character is never split mid-sequence.
func SocialExcerpt(data models.SessionExport) string {
	var excerpt string
	for _, entry := range data.Entries {
		if entry.Role == models.RoleAI {
			excerpt = entry.Content
			break
		}
	}
	if runes := []rune(excerpt); len(runes) > socialExcerptLimit {
		excerpt = string(runes[:socialExcerptLimit-3]) + "..."
	}
	return fmt.Sprintf("I created a story with Narravox: %q Check it out!", excerpt)
}
