package usecase

import (
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
)

const (
	authorityBoost   = 1.03
	dsPenalty        = 0.6
	proximityFloor   = 0.98
	stalePenalty     = 0.97
	anchorProseCount = 10
)

// channels holds the two ranked candidate lists of one query.
type channels struct {
	prose []candidate
	table []candidate
}

type queryIntent struct {
	flags domain.FlagSet
	scope domain.Scope
}

// boostStage is one adjustment group. It never mutates its input and returns
// both channels freshly sorted, plus the ids of the chunks it touched.
type boostStage struct {
	name  string
	apply func(rules *heuristics.Rules, q queryIntent, in channels) (channels, []string)
}

var cascadeStages = []boostStage{
	{name: "authority", apply: applyAuthority},
	{name: "ds_penalty", apply: applyDSPenalty},
	{name: "section_proximity", apply: applySectionProximity},
	{name: "stale_content", apply: applyStalePenalty},
}

// runCascade applies every stage exactly once, in order, and reports each to
// the retrieval log.
func runCascade(rules *heuristics.Rules, q queryIntent, in channels, log *retrievalLog) channels {
	current := in
	for _, stage := range cascadeStages {
		var touched []string
		current, touched = stage.apply(rules, q, current)
		log.add("boost", map[string]any{
			"name":     stage.name,
			"affected": len(touched),
			"chunks":   touched,
		})
	}
	return current
}

// scale multiplies the score of every candidate accepted by match.
func scale(in []candidate, factor float64, match func(*domain.Chunk) bool) ([]candidate, []string) {
	out := make([]candidate, len(in))
	copy(out, in)
	var touched []string
	for i := range out {
		if match(out[i].chunk) {
			out[i].score *= factor
			touched = append(touched, out[i].chunk.ChunkID)
		}
	}
	return sortedByScore(out), touched
}

func applyAuthority(rules *heuristics.Rules, q queryIntent, in channels) (channels, []string) {
	pediatric := q.flags.Has(heuristics.FlagPediatric)
	resistant := q.flags.Has(heuristics.FlagDrugResistance)

	match := func(c *domain.Chunk) bool {
		switch q.scope {
		case domain.ScopeTreatment:
			if rules.MatchesEdition(heuristics.EditionTreatmentCurrent, *c) {
				return true
			}
			return pediatric && !resistant && rules.MatchesEdition(heuristics.EditionPediatricDSTreatment, *c)
		case domain.ScopeDiagnosis:
			return pediatric && rules.MatchesEdition(heuristics.EditionDiagnosisModule, *c)
		case domain.ScopePrevention:
			return rules.MatchesEdition(heuristics.EditionPreventionCurrent, *c)
		default:
			return false
		}
	}
	return scaleBoth(in, authorityBoost, match)
}

func applyDSPenalty(rules *heuristics.Rules, q queryIntent, in channels) (channels, []string) {
	if !q.flags.Has(heuristics.FlagDrugResistance) {
		return in, nil
	}
	return scaleBoth(in, dsPenalty, func(c *domain.Chunk) bool {
		return rules.MatchesEdition(heuristics.EditionDSSpecific, *c)
	})
}

func scaleBoth(in channels, factor float64, match func(*domain.Chunk) bool) (channels, []string) {
	prose, touchedProse := scale(in.prose, factor, match)
	table, touchedTable := scale(in.table, factor, match)
	return channels{prose: prose, table: table}, append(touchedProse, touchedTable...)
}

type anchor struct {
	docID string
	keys  map[string]struct{}
	chunk *domain.Chunk
}

func proseAnchors(prose []candidate) []anchor {
	n := min(len(prose), anchorProseCount)
	out := make([]anchor, 0, n)
	for _, c := range prose[:n] {
		out = append(out, anchor{
			docID: strings.ToLower(c.chunk.DocID),
			keys:  heuristics.SectionKeys(c.chunk.SectionPath),
			chunk: c.chunk,
		})
	}
	return out
}

func (a anchor) near(c *domain.Chunk) bool {
	if a.docID != strings.ToLower(c.DocID) {
		return false
	}
	for key := range heuristics.SectionKeys(c.SectionPath) {
		if _, ok := a.keys[key]; ok {
			return true
		}
	}
	return false
}

// applySectionProximity lifts tables that share a document and section with
// a top prose anchor to just below the best prose score.
func applySectionProximity(_ *heuristics.Rules, _ queryIntent, in channels) (channels, []string) {
	if len(in.prose) == 0 || len(in.table) == 0 {
		return in, nil
	}
	anchors := proseAnchors(in.prose)
	floor := proximityFloor * in.prose[0].score

	table := make([]candidate, len(in.table))
	copy(table, in.table)
	var touched []string
	for i := range table {
		if table[i].score >= floor {
			continue
		}
		for _, a := range anchors {
			if a.near(table[i].chunk) {
				table[i].score = floor
				touched = append(touched, table[i].chunk.ChunkID)
				break
			}
		}
	}
	return channels{prose: in.prose, table: sortedByScore(table)}, touched
}

// applyStalePenalty demotes older pediatric tables when the current adult or
// preventive edition already anchors the answer.
func applyStalePenalty(rules *heuristics.Rules, q queryIntent, in channels) (channels, []string) {
	var anchorEdition, staleEdition string
	switch {
	case q.scope == domain.ScopeTreatment &&
		q.flags.Has(heuristics.FlagPediatric) && q.flags.Has(heuristics.FlagDrugResistance):
		anchorEdition, staleEdition = heuristics.EditionDRTreatmentCurrent, heuristics.EditionPediatricDRTables
	case q.scope == domain.ScopePrevention && q.flags.Has(heuristics.FlagTPT):
		anchorEdition, staleEdition = heuristics.EditionPreventionCurrent, heuristics.EditionPediatricTPTLegacy
	default:
		return in, nil
	}

	anchored := false
	for _, a := range proseAnchors(in.prose) {
		if rules.MatchesEdition(anchorEdition, *a.chunk) {
			anchored = true
			break
		}
	}
	if !anchored {
		return in, nil
	}

	table, touched := scale(in.table, stalePenalty, func(c *domain.Chunk) bool {
		return rules.MatchesEdition(staleEdition, *c)
	})
	return channels{prose: in.prose, table: table}, touched
}
