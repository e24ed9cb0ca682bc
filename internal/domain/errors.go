package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a caller error (empty text, bad parameters, missing credentials).
	// Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited signals the embedding provider rejected the request with HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient signals a retryable failure: transport error, 5xx, malformed payload.
	ErrTransient = errors.New("transient error")
	// ErrRemoteUnavailable signals a missing schema, index or procedure in the remote store.
	// It is a deployment problem and is not retried.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPreferenceNotFound signals that a user has no stored preference embedding.
	ErrPreferenceNotFound = fmt.Errorf("preference embedding %w", ErrNotFound)
	// ErrEmbeddingQuotaExceeded signals an exhausted token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrBackfillRunning signals that another backfill run holds the process-wide slot.
	ErrBackfillRunning = errors.New("backfill already running")
)

// IsRetryable reports whether err belongs to a class the embedding retry policy handles.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// ProviderError carries the HTTP status returned by the embedding provider.
type ProviderError struct {
	StatusCode int
	Detail     string
	Kind       error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("embedding provider: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("embedding provider %d: %s: %s", e.StatusCode, e.Kind, e.Detail)
}

func (e *ProviderError) Unwrap() error { return e.Kind }
