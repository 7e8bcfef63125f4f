package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("corpus store unavailable")
	ErrEmbeddingFailed  = errors.New("embedding provider failure")
	ErrTemporary        = errors.New("temporary failure")
	ErrAttachment       = errors.New("table attachment unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ProviderStatusError carries the upstream status of a failed embedding call so
// that callers can surface it without parsing messages.
type ProviderStatusError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
}

func (e *ProviderStatusError) Error() string {
	if e == nil {
		return "provider status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s status: %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Provider, e.Status, e.Body)
}
