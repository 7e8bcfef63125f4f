package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/guideline-retrieval/internal/config"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
	"github.com/kirillkom/guideline-retrieval/internal/core/ports"
	"github.com/kirillkom/guideline-retrieval/internal/core/usecase"
	"github.com/kirillkom/guideline-retrieval/internal/infrastructure/attachments"
	"github.com/kirillkom/guideline-retrieval/internal/infrastructure/corpus"
	"github.com/kirillkom/guideline-retrieval/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/guideline-retrieval/internal/infrastructure/resilience"
	"github.com/kirillkom/guideline-retrieval/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Rules    *heuristics.Rules
	Corpus   *corpus.Store
	Tables   *attachments.Store
	Metrics  *metrics.HTTPServerMetrics
	SearchUC ports.GuidelineSearcher
}

func New(cfg config.Config, logger *slog.Logger, service string) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := heuristics.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load retrieval rules: %w", err)
	}

	tables, err := attachments.New(cfg.TablesRoot)
	if err != nil {
		return nil, fmt.Errorf("init table attachments: %w", err)
	}

	store := corpus.NewStore(cfg.CorpusManifestPath, cfg.CorpusEmbeddingsPath, logger)
	m := metrics.NewHTTPServerMetrics(service)

	executor := resilience.NewExecutor(resilienceConfig(cfg), logger)
	executor.OnStateChange(m.ObserveBreaker)
	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, cfg.OllamaEmbedTimeout, executor)

	searchUC := usecase.NewSearchUseCase(store, embedder, tables, rules, m, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Rules:    rules,
		Corpus:   store,
		Tables:   tables,
		Metrics:  m,
		SearchUC: searchUC,
	}, nil
}

// Warm loads the corpus ahead of the first query. Failure is logged, not
// fatal: the next search retries the load.
func (a *App) Warm(ctx context.Context) {
	if !a.Config.WarmCorpus {
		return
	}
	if _, err := a.Corpus.Load(ctx); err != nil {
		a.Logger.Warn("corpus_warmup_failed", "error", err.Error())
		return
	}
	stats := a.Corpus.Stats()
	a.Logger.Info("corpus_ready", "chunks", stats.Chunks, "vectors", stats.Vectors)
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	if cfg.ResilienceRetryInitialBackoff > 0 {
		out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	}
	if cfg.ResilienceRetryMaxBackoff > 0 {
		out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	}
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	if cfg.ResilienceBreakerFailureRatio > 0 {
		out.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	}
	if cfg.ResilienceBreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	}
	return out
}
