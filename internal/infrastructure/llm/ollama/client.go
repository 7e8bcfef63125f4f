// Package ollama embeds search questions with an Ollama-compatible
// /api/embed endpoint.
package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/guideline-retrieval/internal/infrastructure/resilience"
)

const providerName = "ollama"

type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, embedModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedQuery returns the raw embedding of text. Failures carry
// domain.ErrEmbeddingFailed, or domain.ErrTemporary when a retry later may
// succeed.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	call := func(ctx context.Context) ([]float32, error) {
		var resp embedResponse
		if err := c.postJSON(ctx, "/api/embed", embedRequest{Model: c.embedModel, Input: []string{text}}, &resp, "embed"); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
			return nil, errors.New("empty embedding result")
		}
		return resp.Embeddings[0], nil
	}

	var (
		vector []float32
		err    error
	)
	if c.executor != nil {
		vector, err = resilience.Do(ctx, c.executor, "ollama.embed", call, classifyOllamaError)
	} else {
		vector, err = call(ctx)
	}
	if err != nil {
		return nil, wrapEmbedError("embed query", err)
	}
	return vector, nil
}
