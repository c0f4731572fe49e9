package narrative

import "strings"

var optionPrefixes = []string{"Option 1:", "Option 2:", "Option 3:"}

// ParseOptions extracts the three branching options from model output by
// matching literal "Option N:" line prefixes. The contract is all or
// nothing: anything other than exactly three parsed options reports
// failure and the caller substitutes the fixed fallback, never a partial
// result.
func ParseOptions(content string) ([]string, bool) {
	var options []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range optionPrefixes {
			if strings.HasPrefix(line, prefix) {
				options = append(options, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
				break
			}
		}
	}

	if len(options) != 3 {
		return nil, false
	}
	return options, true
}

// FallbackOptions returns the fixed generic option triple used when the
// model output cannot be parsed.
func FallbackOptions() []string {
	return []string{
		"Continue with the current storyline",
		"Introduce a plot twist",
		"Shift perspective to another character",
	}
}
