package affinity

import (
	"regexp"
	"strings"
)

const maxExtractedEntities = 10

var (
	quotedPattern      = regexp.MustCompile(`"([^"]*)"`)
	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

// culturalKeywords is the fixed keyword list matched case-insensitively.
var culturalKeywords = []string{
	"jazz", "rock", "classical", "hip-hop", "electronic", "folk",
	"sci-fi", "fantasy", "thriller", "romance", "comedy", "drama",
	"travel", "adventure", "mystery", "historical", "contemporary",
	"urban", "rural", "futuristic", "vintage", "modern",
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "with": {}, "for": {},
}

// ExtractEntities pulls candidate cultural entities from free text: the
// union of quoted substrings, capitalized word runs, and the fixed
// keyword list. Deterministic, first-seen order, capped at 10 entries of
// length > 2 with stop-words removed. No network or state access.
func ExtractEntities(text string) []string {
	var candidates []string

	for _, match := range quotedPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, match[1])
	}
	candidates = append(candidates, capitalizedPattern.FindAllString(text, -1)...)

	lower := strings.ToLower(text)
	for _, keyword := range culturalKeywords {
		if strings.Contains(lower, keyword) {
			candidates = append(candidates, keyword)
		}
	}

	var entities []string
	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		if len(candidate) <= 2 {
			continue
		}
		key := strings.ToLower(candidate)
		if _, stop := stopWords[key]; stop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entities = append(entities, candidate)
		if len(entities) >= maxExtractedEntities {
			break
		}
	}
	return entities
}
