package usecase

import "github.com/kirillkom/guideline-retrieval/internal/core/domain"

// retrievalLog collects the per-query stage records. It is append-only.
type retrievalLog struct {
	stages []domain.LogStage
}

func (l *retrievalLog) add(stage string, details map[string]any) {
	l.stages = append(l.stages, domain.LogStage{Stage: stage, Details: details})
}

func (l *retrievalLog) entries() []domain.LogStage {
	out := make([]domain.LogStage, len(l.stages))
	copy(out, l.stages)
	return out
}
