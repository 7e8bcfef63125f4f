package heuristics

import (
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// ChunkInScope reports whether chunk belongs to scope. An explicit scope tag on
// the chunk is authoritative; untagged chunks fall back to the configured
// patterns over the document id and section path.
func (r *Rules) ChunkInScope(chunk domain.Chunk, scope domain.Scope) bool {
	if scope == domain.ScopeNone {
		return true
	}
	if chunk.Scope != domain.ScopeNone {
		return chunk.Scope == scope
	}
	haystack := strings.ToLower(chunk.DocID + " " + chunk.SectionPath)
	for _, re := range r.chunkPatterns[scope] {
		if re.MatchString(haystack) {
			return true
		}
	}
	return false
}

// FilterByScope narrows indices to chunks in scope. With no scope the input is
// returned unchanged. The result may be empty; callers decide on fallback.
func (r *Rules) FilterByScope(chunks []domain.Chunk, indices []int, scope domain.Scope) []int {
	if scope == domain.ScopeNone {
		return indices
	}
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(chunks) {
			continue
		}
		if r.ChunkInScope(chunks[idx], scope) {
			out = append(out, idx)
		}
	}
	return out
}
