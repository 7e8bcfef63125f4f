package domain

import (
	"encoding/json"
	"testing"
)

func TestSearchRequestNormalizedClampsToBounds(t *testing.T) {
	tests := []struct {
		name         string
		topK, rows   int
		wantK, wantR int
	}{
		{name: "defaults", topK: 0, rows: 0, wantK: DefaultTopK, wantR: DefaultTableRowLimit},
		{name: "in range", topK: 3, rows: 20, wantK: 3, wantR: 20},
		{name: "above max", topK: 50, rows: 900, wantK: MaxTopK, wantR: MaxTableRowLimit},
		{name: "negative clamps to lower bound", topK: -2, rows: -5, wantK: 1, wantR: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchRequest{Question: "q", TopK: tt.topK, TableRowLimit: tt.rows}.Normalized()
			if got.TopK != tt.wantK || got.TableRowLimit != tt.wantR {
				t.Fatalf("expected top_k=%d rows=%d, got top_k=%d rows=%d", tt.wantK, tt.wantR, got.TopK, got.TableRowLimit)
			}
		})
	}
}

func TestSearchResultProseKeepsTableKeys(t *testing.T) {
	raw, err := json.Marshal(SearchResult{ChunkID: "p1", ContentType: ContentProse})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"year", "table_subtype", "table_text", "table_row_count"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected key %q in %s", key, raw)
		}
	}
	if _, ok := fields["table_rows"]; ok {
		t.Fatalf("table_rows must stay omitted unless requested")
	}
}
