package usecases

import (
	"context"
	"errors"
	"sync"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/tokenize"
)

// stubEmbedder produces deterministic vectors by counting occurrences of a
// fixed vocabulary, so texts sharing words land close in cosine space.
type stubEmbedder struct {
	mu         sync.Mutex
	vocab      []string
	calls      int
	batchCalls int
	failFirst  int // number of leading calls that return an error
}

func newStubEmbedder(vocab ...string) *stubEmbedder {
	if len(vocab) == 0 {
		vocab = []string{
			"refund", "window", "days", "purchase",
			"shipping", "rates", "destination",
			"warranty", "coverage", "year",
		}
	}
	return &stubEmbedder{vocab: vocab}
}

func (e *stubEmbedder) vector(text string) []float32 {
	counts := make(map[string]int)
	for _, w := range tokenize.Words(text) {
		counts[w]++
	}
	vec := make([]float32, len(e.vocab))
	for i, term := range e.vocab {
		vec[i] = float32(counts[term])
	}
	return vec
}

func (e *stubEmbedder) take() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failFirst {
		return errors.New("embedding backend down")
	}
	return nil
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if err := e.take(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()
	if err := e.take(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubLLM returns a canned answer and records every prompt it was given.
type stubLLM struct {
	mu        sync.Mutex
	answer    string
	tokens    int
	failFirst int
	prompts   []string
}

func (l *stubLLM) Complete(_ context.Context, prompt string, _ []string) (string, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if len(l.prompts) <= l.failFirst {
		return "", 0, errors.New("completion backend down")
	}
	return l.answer, l.tokens, nil
}

func (l *stubLLM) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

// recordingSink captures metrics and eval runs handed to the history sink.
type recordingSink struct {
	mu      sync.Mutex
	metrics []entities.QueryMetrics
}

func (s *recordingSink) SaveEvalRun(context.Context, entities.EvalSummary, []entities.EvalResult) error {
	return nil
}

func (s *recordingSink) SaveQueryMetrics(_ context.Context, m entities.QueryMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
	return nil
}

func (s *recordingSink) recorded() []entities.QueryMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.QueryMetrics, len(s.metrics))
	copy(out, s.metrics)
	return out
}
