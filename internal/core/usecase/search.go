package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
	"github.com/kirillkom/guideline-retrieval/internal/core/ports"
)

type SearchUseCase struct {
	corpus   ports.CorpusLoader
	embedder ports.Embedder
	tables   ports.TableSource
	rules    *heuristics.Rules
	observer ports.SearchObserver
	logger   *slog.Logger
}

func NewSearchUseCase(
	corpus ports.CorpusLoader,
	embedder ports.Embedder,
	tableSource ports.TableSource,
	rules *heuristics.Rules,
	observer ports.SearchObserver,
	logger *slog.Logger,
) *SearchUseCase {
	if rules == nil {
		rules = heuristics.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		corpus:   corpus,
		embedder: embedder,
		tables:   tableSource,
		rules:    rules,
		observer: observer,
		logger:   logger,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	started := time.Now()
	resp, err := uc.search(ctx, req)

	scope := domain.ScopeNone
	results := 0
	if resp != nil {
		scope = resp.Scope
		results = len(resp.Results)
	}
	uc.observer.ObserveSearch(scope, results, time.Since(started), err)
	if err != nil {
		uc.logger.Error("guideline_search_failed",
			slog.String("question", req.Question),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	uc.logger.Info("guideline_search",
		slog.String("scope", string(resp.Scope)),
		slog.Int("results", results),
		slog.Duration("duration", time.Since(started)),
	)
	return resp, nil
}

func (uc *SearchUseCase) search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("question is required"))
	}
	explicit, ok := domain.ParseScope(string(req.Scope))
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("unknown scope "+string(req.Scope)))
	}
	req.Scope = explicit
	req = req.Normalized()

	var log retrievalLog
	log.add("request", map[string]any{
		"question":           req.Question,
		"top_k":              req.TopK,
		"scope":              req.Scope,
		"include_table_rows": req.IncludeTableRows,
		"table_row_limit":    req.TableRowLimit,
	})

	corpus, err := uc.corpus.Load(ctx)
	if err != nil {
		if !domain.IsKind(err, domain.ErrStoreUnavailable) {
			err = domain.WrapError(domain.ErrStoreUnavailable, "load corpus", err)
		}
		return nil, err
	}

	flags := uc.rules.Classify(req.Question)
	resolution := uc.rules.ResolveScope(req.Question, flags, req.Scope)
	q := queryIntent{flags: flags, scope: resolution.Scope}
	log.add("intent", map[string]any{
		"flags":        flags.Sorted(),
		"scope":        resolution.Scope,
		"scope_source": resolution.Source,
		"candidates":   resolution.Candidates,
		"keyword_hits": resolution.Hits,
	})

	all := make([]int, corpus.Size())
	for i := range all {
		all[i] = i
	}
	filtered := uc.rules.FilterByScope(corpus.Chunks, all, resolution.Scope)
	fallback := len(filtered) == 0
	if fallback {
		filtered = all
	}
	log.add("filter", map[string]any{
		"scope":          resolution.Scope,
		"corpus":         len(all),
		"kept":           len(filtered),
		"scope_fallback": fallback,
	})

	vector, err := uc.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		if !domain.IsKind(err, domain.ErrEmbeddingFailed) && !domain.IsKind(err, domain.ErrTemporary) {
			err = domain.WrapError(domain.ErrEmbeddingFailed, "embed query", err)
		}
		return nil, err
	}
	vector = domain.Normalize(vector)

	ranked := channels{
		prose: rankChannel(corpus, vector, filtered, false),
		table: rankChannel(corpus, vector, filtered, true),
	}
	log.add("channels", map[string]any{
		"prose": len(ranked.prose),
		"table": len(ranked.table),
	})

	adjusted := runCascade(uc.rules, q, ranked, &log)

	limit := resultLimit(req.TopK, corpus.Size())
	selected, report := mergeChannels(uc.rules, q, adjusted, limit)
	log.add("merge", map[string]any{
		"limit":     report.Limit,
		"prose":     report.Prose,
		"table":     report.Table,
		"merged":    report.Merged,
		"forced":    report.Forced,
		"displaced": report.Displaced,
	})

	results := make([]domain.SearchResult, 0, len(selected))
	chunks := make([]*domain.Chunk, 0, len(selected))
	for _, c := range selected {
		results = append(results, toResult(c))
		chunks = append(chunks, c.chunk)
	}
	if uc.tables != nil {
		if enriched := uc.enrichTables(ctx, req, chunks, results); len(enriched) > 0 {
			log.add("tables", map[string]any{"tables": enriched})
		}
	}

	summary := make([]map[string]any, 0, len(results))
	for _, r := range results {
		summary = append(summary, map[string]any{
			"chunk_id":     r.ChunkID,
			"doc_id":       r.DocID,
			"content_type": r.ContentType,
			"score":        r.Score,
		})
	}
	log.add("results", map[string]any{"count": len(results), "results": summary})

	return &domain.SearchResponse{
		Question:     req.Question,
		TopK:         req.TopK,
		Scope:        resolution.Scope,
		Results:      results,
		RetrievalLog: log.entries(),
	}, nil
}

func toResult(c candidate) domain.SearchResult {
	return domain.SearchResult{
		DocID:          c.chunk.DocID,
		Title:          c.chunk.Title,
		Year:           c.chunk.Year,
		ChunkID:        c.chunk.ChunkID,
		SectionPath:    c.chunk.SectionPath,
		Text:           c.chunk.Text,
		ContentType:    c.chunk.ContentType,
		AttachmentID:   c.chunk.AttachmentID,
		AttachmentPath: c.chunk.AttachmentPath,
		Score:          c.score,
	}
}

type noopObserver struct{}

func (noopObserver) ObserveSearch(domain.Scope, int, time.Duration, error) {}
func (noopObserver) ObserveTable(domain.TableSubtype, string) {}
