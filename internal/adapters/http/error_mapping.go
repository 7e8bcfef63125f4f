package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// Temporary must be checked before embedding failures: an open breaker or
// retryable provider error carries both kinds and should read as 503.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
