package ports

import (
	"context"
	"time"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// CorpusLoader returns the process-wide corpus, loading it on first use.
type CorpusLoader interface {
	Load(ctx context.Context) (*domain.Corpus, error)
}

// Embedder builds the query vector for a question.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TableSource reads the raw rows behind a table chunk's attachment.
type TableSource interface {
	ReadTable(ctx context.Context, attachmentPath string) (domain.RawTable, error)
}

// SearchObserver receives per-query outcomes for metrics. Implementations must
// be safe for concurrent use.
type SearchObserver interface {
	ObserveSearch(scope domain.Scope, results int, duration time.Duration, err error)
	ObserveTable(subtype domain.TableSubtype, renderer string)
}
