package heuristics

import (
	"regexp"
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

var firstChapterPattern = regexp.MustCompile(`^(chapter\s+)?1(\.|\s|:|$)`)

// Matcher selects chunks by corpus-edition metadata. Every populated criterion
// must hold; within one criterion any listed value is enough. A matcher with
// no criteria matches nothing.
type Matcher struct {
	DocIDs          []string `yaml:"doc_ids"`
	SectionContains []string `yaml:"section_contains"`
	SectionNumbers  []string `yaml:"section_numbers"`
	TextContains    []string `yaml:"text_contains"`
	FirstChapter    bool     `yaml:"first_chapter"`
}

func (m *Matcher) normalize() {
	for i, v := range m.DocIDs {
		m.DocIDs[i] = strings.ToLower(strings.TrimSpace(v))
	}
	for i, v := range m.SectionContains {
		m.SectionContains[i] = NormalizeText(v)
	}
	for i, v := range m.TextContains {
		m.TextContains[i] = NormalizeText(v)
	}
}

func (m Matcher) empty() bool {
	return len(m.DocIDs) == 0 && len(m.SectionContains) == 0 &&
		len(m.SectionNumbers) == 0 && len(m.TextContains) == 0 && !m.FirstChapter
}

func (m Matcher) Match(chunk domain.Chunk) bool {
	if m.empty() {
		return false
	}
	if len(m.DocIDs) > 0 && !containsAny(strings.ToLower(chunk.DocID), m.DocIDs) {
		return false
	}
	section := NormalizeText(chunk.SectionPath)
	if len(m.SectionContains) > 0 && !containsAny(section, m.SectionContains) {
		return false
	}
	if len(m.SectionNumbers) > 0 && !hasSectionNumber(section, m.SectionNumbers) {
		return false
	}
	if len(m.TextContains) > 0 && !containsAny(section+" "+NormalizeText(chunk.Text), m.TextContains) {
		return false
	}
	if m.FirstChapter {
		segments := chunk.SectionSegments()
		if len(segments) == 0 || !firstChapterPattern.MatchString(strings.ToLower(segments[0])) {
			return false
		}
	}
	return true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasSectionNumber(section string, wanted []string) bool {
	for _, num := range SectionNumbers(section) {
		for _, w := range wanted {
			if num == w || strings.HasPrefix(num, w+".") {
				return true
			}
		}
	}
	return false
}
