package service

import (
	"fmt"
	"strings"

	"narravox-server/internal/clients/affinity"
	"narravox-server/internal/models"
)

// preferenceContextMap maps preference keywords to ready-made cultural
// context clauses, used when the affinity API yields nothing relevant.
var preferenceContextMap = []struct {
	keyword string
	clause  string
}{
	{"japan", "travel: Japanese culture, Zen aesthetics, Traditional craftsmanship"},
	{"jazz", "music: Jazz improvisation, Blues influences, Swing rhythms"},
	{"sci-fi", "film: Science fiction, Futuristic themes, Technological innovation"},
	{"mystery", "books: Detective fiction, Suspense narrative, Crime investigation"},
	{"minimalist", "lifestyle: Minimalist design, Clean aesthetics, Functional beauty"},
	{"meditation", "lifestyle: Mindfulness practices, Spiritual wellness, Inner peace"},
	{"rock", "music: Rock energy, Electric guitars, Powerful rhythms"},
	{"classical", "music: Orchestral arrangements, Classical composition, Timeless elegance"},
	{"hip-hop", "music: Urban beats, Rap culture, Street art influence"},
	{"electronic", "music: Digital soundscapes, Synthesizer textures, Modern production"},
	{"fantasy", "books: Magical worlds, Epic quests, Mythical creatures"},
	{"thriller", "film: Suspenseful tension, Psychological drama, Intense pacing"},
	{"romance", "books: Emotional depth, Love stories, Heartfelt connections"},
	{"comedy", "film: Humorous situations, Light-hearted storytelling, Witty dialogue"},
	{"drama", "film: Character development, Emotional intensity, Realistic storytelling"},
	{"travel", "lifestyle: Cultural exploration, Geographic diversity, Adventure themes"},
	{"adventure", "lifestyle: Exploration spirit, Risk-taking, Discovery narratives"},
	{"historical", "books: Period settings, Historical accuracy, Time-travel themes"},
	{"contemporary", "lifestyle: Modern settings, Current social issues, Present-day relevance"},
	{"urban", "lifestyle: City life, Metropolitan culture, Street-level stories"},
	{"rural", "lifestyle: Countryside settings, Natural environments, Community focus"},
	{"futuristic", "film: Advanced technology, Sci-fi aesthetics, Tomorrow's world"},
	{"vintage", "lifestyle: Retro aesthetics, Nostalgic themes, Classic style"},
	{"modern", "lifestyle: Contemporary design, Current trends, Present-day relevance"},
}

// preferenceContext builds a cultural context clause directly from user
// preferences, without a network call.
func preferenceContext(preferences []string) string {
	if len(preferences) == 0 {
		return ""
	}

	if len(preferences) > 5 {
		preferences = preferences[:5]
	}

	var clauses []string
	seen := make(map[string]struct{})
	for _, pref := range preferences {
		lower := strings.ToLower(pref)
		for _, mapping := range preferenceContextMap {
			if strings.Contains(lower, mapping.keyword) {
				if _, dup := seen[mapping.clause]; !dup {
					seen[mapping.clause] = struct{}{}
					clauses = append(clauses, mapping.clause)
				}
				break
			}
		}
	}

	if len(clauses) > 0 {
		return strings.Join(clauses, "; ")
	}

	top := preferences
	if len(top) > 3 {
		top = top[:3]
	}
	return fmt.Sprintf("cultural: %s influences", strings.Join(top, ", "))
}

// storySuggestions derives cross-domain story themes from an affinity
// result, capped at 5.
func storySuggestions(result *affinity.Result) []string {
	var suggestions []string
	domains := result.Domains

	for i := 0; i+1 < len(domains) && i < 3; i++ {
		d1, d2 := domains[i], domains[i+1]
		if len(d1.Items) > 0 && len(d2.Items) > 0 {
			suggestions = append(suggestions,
				fmt.Sprintf("A story combining %s from %s with %s from %s", d1.Items[0], d1.Domain, d2.Items[0], d2.Domain))
		}
	}

	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}

// categorySuggestionTemplates renders per-category story themes for the
// offline taste-profile fallback.
var categorySuggestionTemplates = map[string]string{
	"music":  "Stories with %s music themes",
	"film":   "Stories inspired by %s cinematic style",
	"books":  "Stories with %s literary elements",
	"travel": "Stories set in %s locations",
	"brands": "Stories featuring %s lifestyle elements",
	"other":  "Stories incorporating %s interests",
}

// preferenceSuggestions builds story suggestions from preferences alone,
// used when the affinity API is unavailable. No network call.
func preferenceSuggestions(preferences map[string][]string) []string {
	var suggestions []string

	for _, category := range models.PreferenceCategories {
		items := preferences[category]
		template, ok := categorySuggestionTemplates[category]
		if !ok {
			continue
		}
		for i, item := range items {
			if i >= 2 {
				break
			}
			suggestions = append(suggestions, fmt.Sprintf(template, item))
		}
	}

	// Cross-category combinations.
	var populated []string
	for _, category := range models.PreferenceCategories {
		if len(preferences[category]) > 0 {
			populated = append(populated, category)
		}
	}
	for i := 0; i+1 < len(populated) && i < 3; i++ {
		c1, c2 := populated[i], populated[i+1]
		suggestions = append(suggestions,
			fmt.Sprintf("Stories combining %s from %s with %s from %s", preferences[c1][0], c1, preferences[c2][0], c2))
	}

	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}
