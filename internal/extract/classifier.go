package extract

import (
	"regexp"
	"strings"
)

// Classifier decides whether a body of page text is relevant to the
// configured keyword set. Matching is case-insensitive and whole-word; with
// no keywords configured every page classifies as relevant.
type Classifier struct {
	patterns []*regexp.Regexp
}

// NewClassifier compiles whole-word patterns for each non-empty keyword.
func NewClassifier(keywords []string) *Classifier {
	c := &Classifier{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		c.patterns = append(c.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return c
}

// Empty reports whether no relevance keywords are configured.
func (c *Classifier) Empty() bool {
	return len(c.patterns) == 0
}

// Relevant reports whether any configured keyword appears in text as a whole
// word. An empty keyword set matches everything.
func (c *Classifier) Relevant(text string) bool {
	if c.Empty() {
		return true
	}
	for _, p := range c.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
