package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/guideline-retrieval/internal/config"
	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/ports"
	"github.com/kirillkom/guideline-retrieval/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 64 << 10
)

type Router struct {
	cfg      config.Config
	searcher ports.GuidelineSearcher
	status   ports.CorpusStatus

	validator *requestValidator
	metrics   *metrics.HTTPServerMetrics
	mcp       http.Handler
	logger    *slog.Logger
}

func NewRouter(cfg config.Config, searcher ports.GuidelineSearcher, status ports.CorpusStatus) *Router {
	rt := &Router{
		cfg:      cfg,
		searcher: searcher,
		status:   status,
		logger:   slog.Default(),
	}
	validator, err := newRequestValidator()
	if err != nil {
		// The contract is embedded at build time.
		panic(err)
	}
	rt.validator = validator
	return rt
}

func (rt *Router) SetMetrics(m *metrics.HTTPServerMetrics) { rt.metrics = m }

// SetMCPHandler mounts a streamable MCP endpoint at /mcp.
func (rt *Router) SetMCPHandler(h http.Handler) { rt.mcp = h }

func (rt *Router) SetLogger(logger *slog.Logger) {
	if logger != nil {
		rt.logger = logger
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/guidelines/search", rt.searchGuidelines)
	if rt.mcp != nil {
		api.Handle("/mcp", rt.mcp)
	}
	limited := rateLimitMiddleware(
		backpressureMiddleware(api, rt.cfg.APIBackpressureMax, rt.cfg.APIBackpressureWait),
		rt.cfg.APIRateLimitRPS,
		rt.cfg.APIRateLimitBurst,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.json", rt.validator.serveSpec)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/", limited)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if rt.status != nil {
		stats := rt.status.Stats()
		resp["corpus"] = stats
		if !stats.Loaded {
			resp["status"] = "loading"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) searchGuidelines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if rt.cfg.APIRequestValidation {
		if err := rt.validator.Validate(r); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}
	}

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	started := time.Now()
	resp, err := rt.searcher.Search(r.Context(), req)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Warn("search_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err.Error(),
		)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
