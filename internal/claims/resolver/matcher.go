package resolver

import (
	"regexp"
	"strings"
)

// ReferenceMatcher proposes order-reference candidates found in free text,
// most plausible first.
type ReferenceMatcher interface {
	Candidates(message string) []string
}

var (
	hashMarked   = regexp.MustCompile(`#\s*([A-Za-z0-9-]{4,})`)
	orderLabeled = regexp.MustCompile(`(?i)\border(?:\s+(?:id|number|ref(?:erence)?|no)\b\.?\s*[:#]?|\s*[:#])\s*([A-Za-z0-9-]{4,})`)
	orderLoose   = regexp.MustCompile(`(?i)\border\s+([A-Za-z0-9-]{4,})`)
	bareToken    = regexp.MustCompile(`[A-Za-z0-9-]{4,}`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
	orderWords   = regexp.MustCompile(`(?i)order|#`)
)

// RegexMatcher is the default matcher. Tokens are runs of four or more
// letters, digits or hyphens. A token right after '#', "order id", "order
// number" or "order:" always qualifies; a token after a bare "order", or
// anywhere else, qualifies only when it holds a digit. Marked tokens come
// first.
type RegexMatcher struct{}

// Candidates implements ReferenceMatcher.
func (RegexMatcher) Candidates(message string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(token string) {
		token = strings.Trim(token, "-")
		key := strings.ToLower(token)
		if len(token) < 4 || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, token)
	}

	for _, m := range hashMarked.FindAllStringSubmatch(message, -1) {
		add(m[1])
	}
	for _, m := range orderLabeled.FindAllStringSubmatch(message, -1) {
		add(m[1])
	}
	for _, m := range orderLoose.FindAllStringSubmatch(message, -1) {
		if hasDigit.MatchString(m[1]) {
			add(m[1])
		}
	}
	for _, token := range bareToken.FindAllString(message, -1) {
		if hasDigit.MatchString(token) {
			add(token)
		}
	}
	return out
}

// mentionsOrder reports whether the message uses order-like language.
func mentionsOrder(message string) bool {
	return orderWords.MatchString(message)
}
