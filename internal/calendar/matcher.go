package calendar

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matcher classifies events by case-insensitive keyword substrings
type Matcher struct {
	work  []string
	rest  []string
	caser cases.Caser
}

// NewMatcher creates a Matcher. Blank keywords are ignored: an empty
// substring would match every event.
func NewMatcher(work, rest []string) *Matcher {
	m := &Matcher{caser: cases.Fold()}
	m.work = m.fold(work)
	m.rest = m.fold(rest)
	return m
}

func (m *Matcher) fold(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, m.caser.String(kw))
	}
	return out
}

// Classify matches the event's title and description against both lists
func (m *Matcher) Classify(ev Event) Classification {
	haystack := m.caser.String(ev.Title + "\n" + ev.Description)

	isWork := containsAny(haystack, m.work)
	isRest := containsAny(haystack, m.rest)

	switch {
	case isWork && isRest:
		return Both
	case isWork:
		return Work
	case isRest:
		return Rest
	default:
		return Neither
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
