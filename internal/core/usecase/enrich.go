package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/tables"
)

// enrichTables renders every table result in place. A table whose attachment
// cannot be read is returned without enrichment; the query carries on.
func (uc *SearchUseCase) enrichTables(ctx context.Context, req domain.SearchRequest, chunks []*domain.Chunk, results []domain.SearchResult) []map[string]any {
	var report []map[string]any
	for i := range results {
		chunk := chunks[i]
		if !chunk.IsTable() {
			continue
		}
		entry := map[string]any{"chunk_id": chunk.ChunkID}
		report = append(report, entry)

		if chunk.AttachmentPath == "" {
			entry["error"] = "no attachment path"
			continue
		}
		raw, err := uc.tables.ReadTable(ctx, chunk.AttachmentPath)
		if err != nil {
			uc.logger.Warn("table_attachment_unavailable",
				slog.String("chunk_id", chunk.ChunkID),
				slog.String("attachment_path", chunk.AttachmentPath),
				slog.String("error", err.Error()),
			)
			entry["error"] = err.Error()
			continue
		}

		table := tables.Normalize(raw)
		subtype := tables.Detect(uc.rules.Tables, chunk.Text, chunk.SectionPath, table.Headers)
		rendering := tables.Render(subtype, *chunk, table, uc.rules.Tables)

		results[i].TableSubtype = rendering.Subtype
		results[i].TableText = rendering.Text
		results[i].TableRowCount = len(table.Rows)
		if req.IncludeTableRows {
			results[i].TableRows = table.Rows[:min(len(table.Rows), req.TableRowLimit)]
		}

		renderer, _ := rendering.Debug["renderer"].(string)
		uc.observer.ObserveTable(rendering.Subtype, renderer)
		entry["subtype"] = rendering.Subtype
		entry["rows"] = len(table.Rows)
		entry["debug"] = rendering.Debug
	}
	return report
}
