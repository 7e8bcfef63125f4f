package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

type searcherFake struct {
	err  error
	seen domain.SearchRequest
}

func (f *searcherFake) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	f.seen = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SearchResponse{
		Question:     req.Question,
		TopK:         5,
		Scope:        domain.ScopePrevention,
		Results:      []domain.SearchResult{{ChunkID: "c1", DocID: "who-tb-m1-2024", Score: 0.8}},
		RetrievalLog: []domain.LogStage{{Stage: "request"}},
	}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = searchToolName
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content, got %+v", res)
	}
	text, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestHandleSearchForwardsArguments(t *testing.T) {
	searcher := &searcherFake{}
	s := NewServer(searcher, "test", nil)

	res, err := s.handleSearch(context.Background(), callRequest(map[string]any{
		"question":           "TPT for household contacts",
		"top_k":              float64(5),
		"scope":              "prevention",
		"include_table_rows": true,
	}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if searcher.seen.TopK != 5 || searcher.seen.Scope != domain.ScopePrevention || !searcher.seen.IncludeTableRows {
		t.Fatalf("arguments not forwarded: %+v", searcher.seen)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID != "c1" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
	if resp.RetrievalLog != nil {
		t.Fatalf("retrieval log must be dropped unless requested")
	}
}

func TestHandleSearchKeepsLogWhenAsked(t *testing.T) {
	s := NewServer(&searcherFake{}, "test", nil)

	res, err := s.handleSearch(context.Background(), callRequest(map[string]any{
		"question":    "TB",
		"include_log": true,
	}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	var resp domain.SearchResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if len(resp.RetrievalLog) != 1 {
		t.Fatalf("expected retrieval log, got %+v", resp.RetrievalLog)
	}
}

func TestHandleSearchReportsToolErrors(t *testing.T) {
	s := NewServer(&searcherFake{err: domain.WrapError(domain.ErrInvalidInput, "search", errors.New("question is empty"))}, "test", nil)

	res, err := s.handleSearch(context.Background(), callRequest(map[string]any{"question": " "}))
	if err != nil {
		t.Fatalf("search failures must be tool results, got %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}

	res, err = s.handleSearch(context.Background(), callRequest(map[string]any{}))
	if err != nil || !res.IsError {
		t.Fatalf("missing question must be a tool error, got %+v, %v", res, err)
	}
}
