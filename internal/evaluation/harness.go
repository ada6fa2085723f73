// Package evaluation replays golden question/answer sets through the query
// pipeline and computes aggregate accuracy, faithfulness, and latency.
package evaluation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/domain/ports"
	"github.com/documind-ai/documind-go/internal/tokenize"
)

// Pipeline is the slice of the query usecase the harness drives.
type Pipeline interface {
	Ask(ctx context.Context, question string) (*entities.Answer, error)
}

// Config tunes an evaluation run.
type Config struct {
	// Workers bounds pipeline concurrency to respect provider rate limits.
	Workers int
	// HitOverlapThreshold is the keyword-overlap fraction above which a
	// retrieval counts as a hit when no expected document id is given.
	HitOverlapThreshold float64
}

// DefaultConfig returns the harness defaults.
func DefaultConfig() Config {
	return Config{Workers: 4, HitOverlapThreshold: 0.5}
}

// Harness runs golden sets against a pipeline.
type Harness struct {
	pipeline Pipeline
	history  ports.HistorySink // optional
	cfg      Config
	logger   *logrus.Logger
}

// NewHarness creates an evaluation harness. The history sink may be nil.
func NewHarness(pipeline Pipeline, history ports.HistorySink, cfg Config, logger *logrus.Logger) *Harness {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.HitOverlapThreshold <= 0 {
		cfg.HitOverlapThreshold = 0.5
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Harness{pipeline: pipeline, history: history, cfg: cfg, logger: logger}
}

// Run replays the golden pairs with a bounded worker pool. Results keep the
// input order regardless of completion order, and a failure on one question
// is recorded without aborting the batch.
func (h *Harness) Run(ctx context.Context, testName string, goldens []entities.GoldenQA) (entities.EvalSummary, []entities.EvalResult) {
	results := make([]entities.EvalResult, len(goldens))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := h.cfg.Workers
	if workers > len(goldens) {
		workers = len(goldens)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = h.evaluate(ctx, goldens[i])
			}
		}()
	}
	for i := range goldens {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := summarize(testName, results)
	h.logger.WithFields(logrus.Fields{
		"test":               testName,
		"questions":          summary.TotalQuestions,
		"retrieval_accuracy": summary.RetrievalAccuracy,
		"avg_faithfulness":   summary.AvgFaithfulness,
	}).Info("evaluation complete")

	if h.history != nil {
		if err := h.history.SaveEvalRun(ctx, summary, results); err != nil {
			h.logger.WithError(err).Warn("could not persist evaluation run")
		}
	}
	return summary, results
}

func (h *Harness) evaluate(ctx context.Context, qa entities.GoldenQA) entities.EvalResult {
	start := time.Now()
	res := entities.EvalResult{
		Question:       qa.Question,
		ExpectedAnswer: qa.ExpectedAnswer,
	}

	answer, err := h.pipeline.Ask(ctx, qa.Question)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.ActualAnswer = answer.Text
	res.RetrievalHit = h.retrievalHit(qa, answer.Sources)
	res.Faithfulness = Faithfulness(answer.Text, qa.ExpectedAnswer)
	return res
}

// retrievalHit checks whether the retrieval step surfaced the right evidence.
// With an expected document id the check is exact; otherwise it falls back to
// keyword overlap between the expected answer and the retrieved text.
func (h *Harness) retrievalHit(qa entities.GoldenQA, sources []entities.Citation) bool {
	if qa.ExpectedDocumentID != "" {
		for _, s := range sources {
			if s.DocumentID == qa.ExpectedDocumentID {
				return true
			}
		}
		return false
	}

	keywords := tokenize.ContentWords(qa.ExpectedAnswer)
	if len(keywords) == 0 {
		return true
	}
	var sb strings.Builder
	for _, s := range sources {
		sb.WriteString(strings.ToLower(s.Text))
		sb.WriteByte(' ')
	}
	retrieved := sb.String()

	found := 0
	seen := make(map[string]struct{}, len(keywords))
	distinct := 0
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		distinct++
		if strings.Contains(retrieved, kw) {
			found++
		}
	}
	return float64(found)/float64(distinct) > h.cfg.HitOverlapThreshold
}

// Faithfulness is the token-overlap F1 between the actual and expected
// answers over content words, in [0, 1].
func Faithfulness(actual, expected string) float64 {
	actualSet := wordSet(actual)
	expectedSet := wordSet(expected)
	if len(actualSet) == 0 || len(expectedSet) == 0 {
		return 0
	}
	common := 0
	for w := range actualSet {
		if _, ok := expectedSet[w]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	precision := float64(common) / float64(len(actualSet))
	recall := float64(common) / float64(len(expectedSet))
	return 2 * precision * recall / (precision + recall)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range tokenize.ContentWords(text) {
		set[w] = struct{}{}
	}
	return set
}

func summarize(testName string, results []entities.EvalResult) entities.EvalSummary {
	summary := entities.EvalSummary{
		TestName:       testName,
		TotalQuestions: len(results),
		RunAt:          time.Now(),
	}
	if len(results) == 0 {
		return summary
	}
	hits := 0
	var faithfulness float64
	var latency time.Duration
	for _, r := range results {
		if r.RetrievalHit {
			hits++
		}
		faithfulness += r.Faithfulness
		latency += r.Latency
	}
	n := float64(len(results))
	summary.RetrievalAccuracy = float64(hits) / n
	summary.AvgFaithfulness = faithfulness / n
	summary.AvgLatency = time.Duration(float64(latency) / n)
	return summary
}
