package service

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxPromptLength caps story prompts and continuation inputs.
	MaxPromptLength = 500
	// MaxPreferenceLength caps individual taste-profile entries.
	MaxPreferenceLength = 50
)

// dangerousPatterns reject markup that could smuggle script content into
// the rendered story thread.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)<iframe[^>]*>`),
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// htmlEscaper escapes the remaining special characters after tag
// stripping. The ampersand must be replaced first.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// ValidateInput checks user input for emptiness, length, and unsafe
// patterns. It runs before any rate-limit check or network call.
func ValidateInput(text string, maxLength int) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Reason: "input cannot be empty"}
	}
	if len(text) > maxLength {
		return &ValidationError{Reason: fmt.Sprintf("input too long: maximum %d characters allowed", maxLength)}
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(text) {
			return &ValidationError{Reason: "input contains potentially unsafe content"}
		}
	}
	return nil
}

// SanitizeText strips HTML tags and escapes special characters for safe
// display.
func SanitizeText(text string) string {
	return htmlEscaper.Replace(htmlTagPattern.ReplaceAllString(text, ""))
}
