package tables

import (
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
)

// Detect guesses the subtype of a table from its caption, section path and
// header labels. Groups are tried in a fixed order and the first that fires
// wins; generic is the answer when nothing does.
func Detect(rules heuristics.TableRules, caption, sectionPath string, headers []string) domain.TableSubtype {
	context := strings.Join([]string{caption, sectionPath, strings.Join(headers, " | ")}, " \n ")

	switch {
	case heuristics.ContainsCue(context, rules.DosingCues):
		if heuristics.ContainsCue(context, rules.PediatricCues) {
			return domain.SubtypeDosingPediatric
		}
		return domain.SubtypeDosingAdult
	case heuristics.ContainsCue(context, rules.DecisionCues):
		return domain.SubtypeDecision
	case heuristics.ContainsCue(context, rules.RegimenCues) && anyHeader(headers, rules.RegimenCompanionColumns):
		return domain.SubtypeRegimen
	case heuristics.ContainsCue(context, rules.TimelineCues) || countTimepoints(rules, headers) >= 2:
		return domain.SubtypeTimeline
	case heuristics.ContainsCue(context, rules.InteractionCues):
		return domain.SubtypeInteraction
	case heuristics.ContainsCue(context, rules.ToxicityCues):
		return domain.SubtypeToxicity
	default:
		return domain.SubtypeGeneric
	}
}

func anyHeader(headers []string, cues []string) bool {
	for _, h := range headers {
		if heuristics.ContainsCue(h, cues) {
			return true
		}
	}
	return false
}

func countTimepoints(rules heuristics.TableRules, headers []string) int {
	n := 0
	for _, h := range headers {
		if rules.IsTimepoint(h) {
			n++
		}
	}
	return n
}
