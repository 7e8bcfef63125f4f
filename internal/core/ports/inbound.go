package ports

import (
	"context"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// GuidelineSearcher is the inbound contract for guideline retrieval.
type GuidelineSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// CorpusStatus is the inbound read model used by health checks.
type CorpusStatus interface {
	Stats() CorpusStats
}

type CorpusStats struct {
	Loaded  bool `json:"loaded"`
	Chunks  int  `json:"chunks"`
	Vectors int  `json:"vectors"`
}
