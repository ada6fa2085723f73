package entities

import (
	"errors"
	"fmt"
)

// Configuration errors are fatal and never retried.
var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the semantic index's fixed dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNoIndex is returned when a search runs before any index exists.
	ErrNoIndex = errors.New("no index available for search")
)

// ProviderError wraps a failure of an external embedding or completion
// provider. Retryable errors get one bounded retry with backoff before
// being surfaced to the caller.
type ProviderError struct {
	Provider  string // "embedding" or "completion"
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err wraps a ProviderError and returns it.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
