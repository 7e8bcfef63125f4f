// Package mcpadapter exposes guideline search as an MCP tool so that agent
// clients can call it over stdio or streamable HTTP.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/ports"
)

const (
	serverName     = "guideline-retrieval"
	searchToolName = "search_guidelines"
)

type Server struct {
	searcher ports.GuidelineSearcher
	mcp      *server.MCPServer
	logger   *slog.Logger
}

func NewServer(searcher ports.GuidelineSearcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		searcher: searcher,
		mcp:      server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		logger:   logger,
	}
	s.mcp.AddTool(searchTool(), s.handleSearch)
	return s
}

func searchTool() mcp.Tool {
	scopes := make([]string, 0, len(domain.Scopes))
	for _, sc := range domain.Scopes {
		scopes = append(scopes, string(sc))
	}
	return mcp.NewTool(searchToolName,
		mcp.WithDescription("Search WHO TB clinical guidelines. Returns ranked passages with rendered tables and the retrieval log."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Clinical question in natural language."),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results, 1 to 8."),
		),
		mcp.WithString("scope",
			mcp.Description("Restrict to one guideline module. Resolved from the question when omitted."),
			mcp.Enum(scopes...),
		),
		mcp.WithBoolean("include_table_rows",
			mcp.Description("Attach structured rows to table results."),
		),
		mcp.WithNumber("table_row_limit",
			mcp.Description("Maximum rows per table when rows are included."),
		),
		mcp.WithBoolean("include_log",
			mcp.Description("Keep the per-stage retrieval log in the output."),
		),
	)
}

// HTTPHandler serves the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	search := domain.SearchRequest{
		Question:         question,
		TopK:             req.GetInt("top_k", 0),
		Scope:            domain.Scope(req.GetString("scope", "")),
		IncludeTableRows: req.GetBool("include_table_rows", false),
		TableRowLimit:    req.GetInt("table_row_limit", 0),
	}

	resp, err := s.searcher.Search(ctx, search)
	if err != nil {
		s.logger.Warn("mcp_search_failed", "error", err.Error())
		// Tool errors go back to the model; protocol errors are reserved for
		// transport failures.
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !req.GetBool("include_log", false) {
		resp.RetrievalLog = nil
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
