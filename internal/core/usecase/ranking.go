package usecase

import (
	"sort"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// candidate pairs a corpus position with its score for one query.
type candidate struct {
	index int
	chunk *domain.Chunk
	score float64
}

// rankChannel scores the chunks at indices that belong to the requested
// channel and returns them best first. Positions without a vector are skipped.
func rankChannel(corpus *domain.Corpus, query []float32, indices []int, tableChannel bool) []candidate {
	limit := corpus.Indexable()
	out := make([]candidate, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= limit {
			continue
		}
		chunk := &corpus.Chunks[idx]
		if chunk.IsTable() != tableChannel {
			continue
		}
		out = append(out, candidate{
			index: idx,
			chunk: chunk,
			score: domain.Dot(query, corpus.Vectors[idx]),
		})
	}
	return sortedByScore(out)
}

// sortedByScore returns a descending copy of in. Equal scores keep their
// input order.
func sortedByScore(in []candidate) []candidate {
	out := make([]candidate, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func chunkIDs(in []candidate) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, c.chunk.ChunkID)
	}
	return out
}
