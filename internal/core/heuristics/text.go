package heuristics

import (
	"regexp"
	"strings"
	"unicode"
)

var sectionNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// NormalizeText lower-cases s and collapses runs of whitespace to one space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[tok] = struct{}{}
	}
	return out
}

// cueMatcher tests cue phrases against one normalized text. Cues of three
// characters or fewer match whole tokens so that "tst" or "if" do not fire
// inside longer words; longer cues match as substrings.
type cueMatcher struct {
	text   string
	tokens map[string]struct{}
}

func newCueMatcher(text string) *cueMatcher {
	return &cueMatcher{text: NormalizeText(text)}
}

func (m *cueMatcher) match(cue string) bool {
	cue = NormalizeText(cue)
	if cue == "" {
		return false
	}
	if len(cue) <= 3 && !strings.ContainsAny(cue, " -/") {
		if m.tokens == nil {
			m.tokens = tokenSet(m.text)
		}
		_, ok := m.tokens[cue]
		return ok
	}
	return strings.Contains(m.text, cue)
}

func (m *cueMatcher) any(cues []string) bool {
	for _, cue := range cues {
		if m.match(cue) {
			return true
		}
	}
	return false
}

func (m *cueMatcher) count(cues []string) int {
	n := 0
	for _, cue := range cues {
		if m.match(cue) {
			n++
		}
	}
	return n
}

// ContainsCue reports whether text matches any of cues.
func ContainsCue(text string, cues []string) bool {
	return newCueMatcher(text).any(cues)
}

// SectionNumbers extracts dotted numeric headings such as "3.2" from s.
func SectionNumbers(s string) []string {
	return sectionNumberPattern.FindAllString(s, -1)
}

// SectionKeys returns the proximity keys of a section path: the full
// lower-cased path, each pipe-delimited segment, and every dotted number.
func SectionKeys(sectionPath string) map[string]struct{} {
	keys := make(map[string]struct{})
	full := NormalizeText(sectionPath)
	if full == "" {
		return keys
	}
	keys[full] = struct{}{}
	for _, seg := range strings.Split(full, "|") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			keys[seg] = struct{}{}
		}
	}
	for _, num := range SectionNumbers(full) {
		keys[num] = struct{}{}
	}
	return keys
}
