// Package entities contains the core domain objects of the retrieval pipeline.
// Pure data types with no knowledge of storage, transport, or providers.
package entities

import "time"

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus string

const (
	DocumentPending DocumentStatus = "pending"
	DocumentIndexed DocumentStatus = "indexed"
	DocumentFailed  DocumentStatus = "failed"
)

// Document represents a source document in the corpus.
type Document struct {
	ID        string
	Filename  string
	Status    DocumentStatus
	ChunkIDs  []string // ordered; every id must exist in the chunk store
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is an indexed piece of a document. Immutable once created; removed
// from both indices when its parent document is deleted.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Position   int // offset of the chunk within its document
	TokenCount int
	Embedding  []float32
}

// ScoredChunk is a single retriever's ranked result: a chunk id with the
// retriever-native score (BM25 or cosine similarity).
type ScoredChunk struct {
	ChunkID string
	Score   float64
}

// RetrievalHit is a fused retrieval result. Transient, produced per query.
// At least one of LexicalRank/SemanticRank is set; ranks start at 1.
type RetrievalHit struct {
	ChunkID      string
	LexicalRank  int // 0 means absent from the lexical ranking
	SemanticRank int // 0 means absent from the semantic ranking
	FusedScore   float64
}

// InBoth reports whether the hit appeared in both retrievers' rankings.
func (h RetrievalHit) InBoth() bool {
	return h.LexicalRank > 0 && h.SemanticRank > 0
}

// Citation points a caller at the evidence behind an answer.
type Citation struct {
	ChunkID    string
	DocumentID string
	Text       string
	Score      float64
}

// Answer is the result of a full query pipeline run. Transient.
type Answer struct {
	Text       string
	Sources    []Citation
	Confidence float64
	Flags      []string
	Refused    bool // input was blocked by policy; Text carries the reason
	TokensUsed int
	Latency    time.Duration
}

// HasFlag reports whether the answer carries the given guardrail flag.
func (a *Answer) HasFlag(flag string) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// GoldenQA is a hand-curated question/expected-answer pair used as ground
// truth during evaluation. ExpectedDocumentID, when set, makes the
// retrieval-hit metric exact instead of keyword-inferred.
type GoldenQA struct {
	Question           string `yaml:"question" json:"question"`
	ExpectedAnswer     string `yaml:"expected_answer" json:"expected_answer"`
	ExpectedDocumentID string `yaml:"expected_document_id,omitempty" json:"expected_document_id,omitempty"`
}

// EvalResult is the outcome for a single golden pair.
type EvalResult struct {
	Question       string
	ExpectedAnswer string
	ActualAnswer   string
	RetrievalHit   bool
	Faithfulness   float64
	Latency        time.Duration
	Err            string // non-empty when the pipeline failed for this question
}

// EvalSummary aggregates one evaluation run.
type EvalSummary struct {
	TestName          string
	TotalQuestions    int
	RetrievalAccuracy float64
	AvgFaithfulness   float64
	AvgLatency        time.Duration
	RunAt             time.Time
}

// QueryMetrics is the per-query record emitted to the history sink.
type QueryMetrics struct {
	Question   string
	Confidence float64
	Flags      []string
	Refused    bool
	Latency    time.Duration
	AskedAt    time.Time
}
