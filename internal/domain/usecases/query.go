package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/domain/ports"
	"github.com/documind-ai/documind-go/internal/grounding"
	"github.com/documind-ai/documind-go/internal/guardrails"
	"github.com/documind-ai/documind-go/internal/retrieval/fusion"
	"github.com/documind-ai/documind-go/internal/retrieval/lexical"
	"github.com/documind-ai/documind-go/internal/retrieval/semantic"
)

// FlagNoEvidence marks an answer produced with no supporting chunks. The
// pipeline returns this explicit signal instead of fabricating content.
const FlagNoEvidence = "no_evidence"

const noEvidenceAnswer = "I couldn't find any relevant information in your documents. " +
	"Please upload documents first or rephrase your question."

// QueryConfig tunes the query pipeline.
type QueryConfig struct {
	// TopK is the number of fused hits handed to answer synthesis.
	TopK int
	// RetrieveK is the per-retriever depth before fusion; 0 means 2*TopK.
	RetrieveK int
	// ProviderTimeout bounds each embedding/completion call.
	ProviderTimeout time.Duration
	// RetryBackoff is the pause before the single provider retry.
	RetryBackoff time.Duration
}

// DefaultQueryConfig returns the pipeline defaults.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:            5,
		ProviderTimeout: 30 * time.Second,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// QueryUseCase runs the full question-answering pipeline: input screening,
// parallel lexical+semantic retrieval, rank fusion, answer synthesis,
// grounding validation, and output screening.
type QueryUseCase struct {
	embedder  ports.EmbeddingService
	llm       ports.CompletionService
	repo      ports.ChunkRepository
	history   ports.HistorySink // optional
	guard     *guardrails.Engine
	validator *grounding.Validator
	lexical   *lexical.Index
	semantic  *semantic.Index
	fuser     *fusion.Engine
	cfg       QueryConfig
	logger    *logrus.Logger
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies. The
// history sink may be nil; metrics emission is best-effort.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	llm ports.CompletionService,
	repo ports.ChunkRepository,
	history ports.HistorySink,
	guard *guardrails.Engine,
	validator *grounding.Validator,
	lex *lexical.Index,
	sem *semantic.Index,
	fuser *fusion.Engine,
	cfg QueryConfig,
	logger *logrus.Logger,
) *QueryUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.RetrieveK <= 0 {
		cfg.RetrieveK = cfg.TopK * 2
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &QueryUseCase{
		embedder:  embedder,
		llm:       llm,
		repo:      repo,
		history:   history,
		guard:     guard,
		validator: validator,
		lexical:   lex,
		semantic:  sem,
		fuser:     fuser,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask answers a question against the indexed corpus. A policy rejection is a
// typed outcome (Answer with Refused set), not an error; provider failures
// surface as a ProviderError after one bounded retry.
func (uc *QueryUseCase) Ask(ctx context.Context, question string) (*entities.Answer, error) {
	start := time.Now()

	screen := uc.guard.ScreenInput(question)
	if screen.Blocked {
		ans := &entities.Answer{
			Text:    refusalMessage(screen.Flags),
			Flags:   screen.Flags,
			Refused: true,
			Latency: time.Since(start),
		}
		uc.emitMetrics(ctx, question, ans)
		return ans, nil
	}

	hits, texts, err := uc.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		ans := &entities.Answer{
			Text:    noEvidenceAnswer,
			Flags:   append(screen.Flags, FlagNoEvidence),
			Latency: time.Since(start),
		}
		uc.emitMetrics(ctx, question, ans)
		return ans, nil
	}

	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = texts[h.ChunkID]
	}
	prompt := buildPrompt(question, contexts)

	answerText, tokens, err := completeWithRetry(ctx, uc.llm, prompt, contexts, uc.cfg.ProviderTimeout, uc.cfg.RetryBackoff)
	if err != nil {
		return nil, err
	}

	confidence, groundFlags := uc.validator.Validate(answerText, grounding.EvidenceFromHits(hits, texts))

	flags := screen.Flags
	flags = append(flags, uc.guard.ScreenOutput(answerText).Flags...)
	flags = append(flags, groundFlags...)

	ans := &entities.Answer{
		Text:       answerText,
		Sources:    uc.citations(ctx, hits, texts),
		Confidence: confidence,
		Flags:      flags,
		TokensUsed: tokens,
		Latency:    time.Since(start),
	}
	uc.emitMetrics(ctx, question, ans)
	return ans, nil
}

// Retrieve runs both retrievers concurrently and fuses their rankings. It
// also returns the chunk texts for the fused hits.
func (uc *QueryUseCase) Retrieve(ctx context.Context, question string) ([]entities.RetrievalHit, map[string]string, error) {
	if uc.lexical == nil || uc.semantic == nil {
		return nil, nil, entities.ErrNoIndex
	}

	queryVec, err := embedWithRetry(ctx, uc.embedder, question, uc.cfg.ProviderTimeout, uc.cfg.RetryBackoff)
	if err != nil {
		return nil, nil, err
	}

	var (
		wg         sync.WaitGroup
		lexResults []entities.ScoredChunk
		semResults []entities.ScoredChunk
		semErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexResults = uc.lexical.Search(question, uc.cfg.RetrieveK)
	}()
	go func() {
		defer wg.Done()
		semResults, semErr = uc.semantic.Search(queryVec, uc.cfg.RetrieveK)
	}()
	wg.Wait()
	if semErr != nil {
		return nil, nil, fmt.Errorf("semantic search: %w", semErr)
	}

	hits := uc.fuser.Fuse(lexResults, semResults, uc.cfg.TopK)

	texts := make(map[string]string, len(hits))
	for _, h := range hits {
		chunk, ok, err := uc.repo.Get(ctx, h.ChunkID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading chunk %s: %w", h.ChunkID, err)
		}
		if ok {
			texts[h.ChunkID] = chunk.Text
		}
	}
	return hits, texts, nil
}

func (uc *QueryUseCase) citations(ctx context.Context, hits []entities.RetrievalHit, texts map[string]string) []entities.Citation {
	cites := make([]entities.Citation, 0, len(hits))
	for _, h := range hits {
		cite := entities.Citation{
			ChunkID: h.ChunkID,
			Text:    texts[h.ChunkID],
			Score:   h.FusedScore,
		}
		if chunk, ok, err := uc.repo.Get(ctx, h.ChunkID); err == nil && ok {
			cite.DocumentID = chunk.DocumentID
		}
		cites = append(cites, cite)
	}
	return cites
}

func (uc *QueryUseCase) emitMetrics(ctx context.Context, question string, ans *entities.Answer) {
	if uc.history == nil {
		return
	}
	m := entities.QueryMetrics{
		Question:   question,
		Confidence: ans.Confidence,
		Flags:      ans.Flags,
		Refused:    ans.Refused,
		Latency:    ans.Latency,
		AskedAt:    time.Now(),
	}
	if err := uc.history.SaveQueryMetrics(ctx, m); err != nil {
		uc.logger.WithError(err).Warn("could not record query metrics")
	}
}

func refusalMessage(flags []string) string {
	reason := "policy violation"
	if len(flags) > 0 {
		reason = flags[0]
	}
	return fmt.Sprintf("This question was blocked by the input guardrails (%s).", reason)
}

// buildPrompt creates the synthesis prompt with retrieved context.
func buildPrompt(question string, contexts []string) string {
	var sb strings.Builder
	sb.WriteString("You are a document assistant. Answer the question using ONLY the provided context. ")
	sb.WriteString("If the context does not contain the answer, say so instead of guessing.\n\n")
	sb.WriteString("Context:\n")
	for i, c := range contexts {
		sb.WriteString(fmt.Sprintf("[%d] %s\n\n", i+1, c))
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
