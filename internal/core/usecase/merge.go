package usecase

import (
	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
)

const (
	proseChannelCap = 20
	tableChannelCap = 8
	forcedQuota     = 2
)

type mergeReport struct {
	Limit     int      `json:"limit"`
	Prose     int      `json:"prose"`
	Table     int      `json:"table"`
	Merged    int      `json:"merged"`
	Forced    []string `json:"forced,omitempty"`
	Displaced []string `json:"displaced,omitempty"`
}

// resultLimit clamps the requested count to [1, min(MaxTopK, corpus size)].
func resultLimit(topK, corpusSize int) int {
	upper := min(domain.MaxTopK, corpusSize)
	if upper < 1 {
		upper = 1
	}
	return max(1, min(topK, upper))
}

// guaranteedEdition names the edition whose prose must be represented in the
// final results for this query, if any.
func guaranteedEdition(q queryIntent) string {
	switch {
	case q.scope == domain.ScopeTreatment &&
		q.flags.Has(heuristics.FlagPediatric) && q.flags.Has(heuristics.FlagDrugResistance):
		return heuristics.EditionDRTreatmentCurrent
	case q.scope == domain.ScopePrevention && q.flags.Has(heuristics.FlagTPT):
		return heuristics.EditionPreventionCurrent
	default:
		return ""
	}
}

// mergeChannels caps both channels, merges them by score, deduplicates by
// chunk id and truncates to limit. When the query has a guaranteed edition,
// up to two of its prose chunks are pulled into the result, displacing the
// lowest-ranked other entries; the top entry is never displaced.
func mergeChannels(rules *heuristics.Rules, q queryIntent, in channels, limit int) ([]candidate, mergeReport) {
	prose := in.prose[:min(len(in.prose), proseChannelCap)]
	table := in.table[:min(len(in.table), tableChannelCap)]

	merged := make([]candidate, 0, len(prose)+len(table))
	merged = append(merged, prose...)
	merged = append(merged, table...)
	merged = dedupe(sortedByScore(merged))

	report := mergeReport{Limit: limit, Prose: len(prose), Table: len(table), Merged: len(merged)}
	final := merged[:min(len(merged), limit)]
	final = append([]candidate(nil), final...)

	edition := guaranteedEdition(q)
	if edition == "" {
		return final, report
	}
	isGuaranteed := func(c candidate) bool {
		return !c.chunk.IsTable() && rules.MatchesEdition(edition, *c.chunk)
	}

	need := forcedQuota
	present := make(map[string]struct{}, len(final))
	for _, c := range final {
		present[c.chunk.ChunkID] = struct{}{}
		if isGuaranteed(c) {
			need--
		}
	}
	if need <= 0 {
		return final, report
	}

	var forced []candidate
	for _, c := range in.prose {
		if len(forced) == need {
			break
		}
		if _, ok := present[c.chunk.ChunkID]; ok || !isGuaranteed(c) {
			continue
		}
		present[c.chunk.ChunkID] = struct{}{}
		forced = append(forced, c)
	}
	if len(forced) == 0 {
		return final, report
	}

	// Free slots from the tail, skipping the top entry and guaranteed chunks.
	free := limit - len(final)
	for i := len(final) - 1; i > 0 && free < len(forced); i-- {
		if isGuaranteed(final[i]) {
			continue
		}
		report.Displaced = append(report.Displaced, final[i].chunk.ChunkID)
		final = append(final[:i], final[i+1:]...)
		free++
	}
	forced = forced[:min(len(forced), free)]

	final = sortedByScore(append(final, forced...))
	report.Forced = chunkIDs(forced)
	return final, report
}

// dedupe keeps the first occurrence of every chunk id.
func dedupe(in []candidate) []candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]candidate, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.chunk.ChunkID]; ok {
			continue
		}
		seen[c.chunk.ChunkID] = struct{}{}
		out = append(out, c)
	}
	return out
}
