package usecases

import (
	"context"
	"time"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/domain/ports"
)

// Provider calls are the only operations expected to block on network I/O.
// Each call is time-bounded, retried at most once with backoff, and its
// failure is surfaced as a ProviderError without corrupting index state.

func embedWithRetry(ctx context.Context, svc ports.EmbeddingService, text string, timeout, backoff time.Duration) ([]float32, error) {
	var vec []float32
	err := withRetry(ctx, backoff, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var err error
		vec, err = svc.Embed(callCtx, text)
		return err
	})
	if err != nil {
		return nil, &entities.ProviderError{Provider: "embedding", Retryable: true, Err: err}
	}
	return vec, nil
}

func embedBatchWithRetry(ctx context.Context, svc ports.EmbeddingService, texts []string, timeout, backoff time.Duration) ([][]float32, error) {
	var vecs [][]float32
	err := withRetry(ctx, backoff, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var err error
		vecs, err = svc.EmbedBatch(callCtx, texts)
		return err
	})
	if err != nil {
		return nil, &entities.ProviderError{Provider: "embedding", Retryable: true, Err: err}
	}
	return vecs, nil
}

func completeWithRetry(ctx context.Context, svc ports.CompletionService, prompt string, contexts []string, timeout, backoff time.Duration) (string, int, error) {
	var text string
	var tokens int
	err := withRetry(ctx, backoff, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var err error
		text, tokens, err = svc.Complete(callCtx, prompt, contexts)
		return err
	})
	if err != nil {
		return "", 0, &entities.ProviderError{Provider: "completion", Retryable: true, Err: err}
	}
	return text, tokens, nil
}

// withRetry runs fn, and on failure retries exactly once after backoff,
// unless the parent context has already been cancelled.
func withRetry(ctx context.Context, backoff time.Duration, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(backoff):
	}
	return fn()
}
