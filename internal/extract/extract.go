// Package extract provides stateless text-signal extraction used by the
// discovery pipeline: email and phone pattern matching, relevance
// classification, and decision-maker line capture.
package extract

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d -]{8,12}\d`)
)

// CleanText trims surrounding whitespace; nil-safe for empty extraction results.
func CleanText(s string) string {
	return strings.TrimSpace(s)
}

// Emails returns the unique email addresses found in text, in order of first
// appearance.
func Emails(text string) []string {
	return uniqueMatches(emailPattern, text)
}

// Phones returns the unique phone-shaped substrings found in text, in order
// of first appearance.
func Phones(text string) []string {
	return uniqueMatches(phonePattern, text)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// DecisionMakers scans text line by line for the configured title strings
// (case-insensitive) and captures each matching line verbatim as context.
// Lines of 100 characters or more are skipped as boilerplate rather than a
// clean title mention.
func DecisionMakers(text string, titles []string) []string {
	if text == "" || len(titles) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var found []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) >= 100 {
			continue
		}
		lower := strings.ToLower(line)
		for _, title := range titles {
			if !strings.Contains(lower, strings.ToLower(title)) {
				continue
			}
			if _, ok := seen[line]; !ok {
				seen[line] = struct{}{}
				found = append(found, line)
			}
			break
		}
	}
	return found
}
