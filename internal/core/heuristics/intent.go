package heuristics

import (
	"regexp"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

var moduleMentionPattern = regexp.MustCompile(`\bmodule\s*(\d+)\b`)

// Classify derives the intent flags of a question. Groups are independent: a
// question may carry any number of flags, including none.
func (r *Rules) Classify(question string) domain.FlagSet {
	m := newCueMatcher(question)
	flags := domain.NewFlagSet()
	for _, flag := range r.intentOrder {
		if m.any(r.Intents[flag]) {
			flags[flag] = struct{}{}
		}
	}
	return flags
}

// ScopeResolution explains how a scope was chosen, for the retrieval log.
type ScopeResolution struct {
	Scope      domain.Scope   `json:"scope"`
	Source     string         `json:"source"`
	Candidates []domain.Scope `json:"candidates,omitempty"`
	Hits       map[string]int `json:"keyword_hits,omitempty"`
}

const (
	ScopeSourceExplicit = "explicit"
	ScopeSourceFlags    = "flags"
	ScopeSourceKeywords = "keywords"
	ScopeSourceModule   = "module_mention"
	ScopeSourceNone     = "none"
)

// ResolveScope picks at most one scope for a question. An explicit scope is
// returned unchanged. Otherwise topical flags vote and ties go to the
// configured priority; without any candidate the keyword-density fallback runs.
func (r *Rules) ResolveScope(question string, flags domain.FlagSet, explicit domain.Scope) ScopeResolution {
	if explicit != domain.ScopeNone {
		return ScopeResolution{Scope: explicit, Source: ScopeSourceExplicit}
	}

	if candidates := r.flagCandidates(flags); len(candidates) > 0 {
		return ScopeResolution{
			Scope:      r.highestPriority(candidates),
			Source:     ScopeSourceFlags,
			Candidates: candidates,
		}
	}

	return r.keywordFallback(question)
}

func (r *Rules) flagCandidates(flags domain.FlagSet) []domain.Scope {
	preventive := flags.HasAny(r.PreventiveFlags...)
	regimenFlags := domain.NewFlagSet(r.RegimenFlags...)

	seen := make(map[domain.Scope]struct{})
	var out []domain.Scope
	for _, flag := range flags.Sorted() {
		raw, ok := r.FlagScopes[flag]
		if !ok {
			continue
		}
		scope, _ := domain.ParseScope(raw)
		if preventive && scope == domain.ScopeTreatment && regimenFlags.Has(flag) {
			continue
		}
		if _, dup := seen[scope]; dup {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	return out
}

func (r *Rules) highestPriority(scopes []domain.Scope) domain.Scope {
	best := scopes[0]
	for _, s := range scopes[1:] {
		if r.scopeRank(s) < r.scopeRank(best) {
			best = s
		}
	}
	return best
}

func (r *Rules) keywordFallback(question string) ScopeResolution {
	m := newCueMatcher(question)

	if match := moduleMentionPattern.FindStringSubmatch(m.text); match != nil {
		if raw, ok := r.ModuleScopes[match[1]]; ok {
			scope, _ := domain.ParseScope(raw)
			return ScopeResolution{Scope: scope, Source: ScopeSourceModule}
		}
	}

	hits := make(map[string]int)
	best := domain.ScopeNone
	bestHits := 0
	for _, scope := range domain.Scopes {
		n := m.count(r.ScopeKeywords[string(scope)])
		if n == 0 {
			continue
		}
		hits[string(scope)] = n
		if n > bestHits || (n == bestHits && r.scopeRank(scope) < r.scopeRank(best)) {
			best, bestHits = scope, n
		}
	}

	if bestHits < r.MinKeywordHits {
		return ScopeResolution{Scope: domain.ScopeNone, Source: ScopeSourceNone, Hits: hits}
	}
	return ScopeResolution{Scope: best, Source: ScopeSourceKeywords, Hits: hits}
}
