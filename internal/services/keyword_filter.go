package services

import (
	"regexp"
)

// KeywordFilter matches content against the configured flagged keyword
// list. A hit does not block publication by itself; it adds a fixed bonus
// to the review-queue priority score.
type KeywordFilter struct {
	patterns []*regexp.Regexp
}

func NewKeywordFilter(keywords []string) *KeywordFilter {
	f := &KeywordFilter{patterns: make([]*regexp.Regexp, 0, len(keywords))}
	for _, word := range keywords {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		re, err := regexp.Compile(pattern)
		if err == nil {
			f.patterns = append(f.patterns, re)
		}
	}
	return f
}

// Flagged reports whether text contains any flagged keyword.
func (f *KeywordFilter) Flagged(text string) bool {
	if text == "" {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Matches returns every flagged keyword found in text, for moderator
// context in queue listings.
func (f *KeywordFilter) Matches(text string) []string {
	if text == "" {
		return nil
	}
	var hits []string
	for _, re := range f.patterns {
		if m := re.FindString(text); m != "" {
			hits = append(hits, m)
		}
	}
	return hits
}
