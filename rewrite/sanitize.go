// Package rewrite turns an ingested article's raw body into the
// editorial rewritten version plus generated tags, driven by a chat
// completion backend.
package rewrite

import (
	"regexp"
	"strings"
)

const maxTags = 8

var (
	pressContactTailRe = regexp.MustCompile(`(?is)\n?\s*Pressekontakt[\s\S]*$`)
	tagLeadRe          = regexp.MustCompile(`^[#\-•\s]+`)
	tagTrailRe         = regexp.MustCompile(`[;,.:\s]+$`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

// SanitizeSourceText prepares the raw body for the rewrite prompt:
// feed boilerplate in the first three lines is dropped when more text
// follows, and the trailing press-contact block is cut from the first
// "Pressekontakt" marker onward.
func SanitizeSourceText(text string) string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) > 3 {
		lines = lines[3:]
	}

	joined := strings.Join(lines, "\n")
	return strings.TrimSpace(pressContactTailRe.ReplaceAllString(joined, ""))
}

// NormalizeTags cleans model-produced tags: whitespace collapsed,
// list-marker prefixes and trailing punctuation stripped, length
// bounded to 2..40 runes, case-insensitive dedupe, at most maxTags
// kept in order.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range tags {
		value := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
		value = tagLeadRe.ReplaceAllString(value, "")
		value = tagTrailRe.ReplaceAllString(value, "")
		if value == "" {
			continue
		}
		if length := len([]rune(value)); length < 2 || length > 40 {
			continue
		}
		key := strings.ToLower(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
		if len(out) >= maxTags {
			break
		}
	}
	return out
}
