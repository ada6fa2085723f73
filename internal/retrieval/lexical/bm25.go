// Package lexical implements a sparse keyword index using BM25 scoring over
// an inverted index built incrementally as chunks are indexed.
package lexical

import (
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/tokenize"
)

// Config holds the BM25 tuning parameters.
type Config struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization.
	B float64
	// FilterStopwords drops stopwords from both documents and queries.
	FilterStopwords bool
}

// DefaultConfig returns the standard BM25 parameters.
func DefaultConfig() Config {
	return Config{K1: 1.5, B: 0.75, FilterStopwords: true}
}

// Index is a thread-safe BM25 inverted index over chunk text. Searches hold
// shared read access; index mutation holds exclusive write access, so a
// concurrent search never observes a partial update.
type Index struct {
	mu     sync.RWMutex
	cfg    Config
	logger *logrus.Logger

	postings map[string]map[string]int // term -> chunkID -> term frequency
	docLens  map[string]int            // chunkID -> token count
	docTerms map[string][]string       // chunkID -> distinct terms, for removal
	totalLen int
}

// NewIndex creates an empty BM25 index.
func NewIndex(cfg Config, logger *logrus.Logger) *Index {
	if cfg.K1 <= 0 {
		cfg.K1 = 1.5
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = 0.75
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Index{
		cfg:      cfg,
		logger:   logger,
		postings: make(map[string]map[string]int),
		docLens:  make(map[string]int),
		docTerms: make(map[string][]string),
	}
}

// Add indexes a chunk. Indexing the same chunk id twice replaces the prior
// entry instead of duplicating it.
func (ix *Index) Add(chunk entities.Chunk) {
	tokens := ix.tokenizeDoc(chunk.Text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.docLens[chunk.ID]; exists {
		ix.removeLocked(chunk.ID)
	}

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	terms := make([]string, 0, len(tf))
	for term, freq := range tf {
		m, ok := ix.postings[term]
		if !ok {
			m = make(map[string]int)
			ix.postings[term] = m
		}
		m[chunk.ID] = freq
		terms = append(terms, term)
	}

	ix.docLens[chunk.ID] = len(tokens)
	ix.docTerms[chunk.ID] = terms
	ix.totalLen += len(tokens)
}

// Remove drops a chunk from the index. Removing an unknown id is a no-op.
func (ix *Index) Remove(chunkID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(chunkID)
}

func (ix *Index) removeLocked(chunkID string) {
	length, ok := ix.docLens[chunkID]
	if !ok {
		return
	}
	for _, term := range ix.docTerms[chunkID] {
		delete(ix.postings[term], chunkID)
		if len(ix.postings[term]) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.docLens, chunkID)
	delete(ix.docTerms, chunkID)
	ix.totalLen -= length
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docLens)
}

// Search scores all chunks matching at least one query term and returns up to
// k results, descending by score, ties broken by ascending chunk id. A query
// with no matching terms returns an empty result, not an error.
func (ix *Index) Search(query string, k int) []entities.ScoredChunk {
	if k <= 0 {
		return nil
	}
	terms := ix.tokenizeDoc(query)
	if len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.docLens)
	if n == 0 {
		return nil
	}
	avgLen := float64(ix.totalLen) / float64(n)

	scores := make(map[string]float64)
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		// Repeated query terms contribute once.
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		posting, ok := ix.postings[term]
		if !ok {
			continue
		}
		idf := idf(n, len(posting))
		for chunkID, tf := range posting {
			dl := float64(ix.docLens[chunkID])
			norm := 1 - ix.cfg.B + ix.cfg.B*dl/avgLen
			scores[chunkID] += idf * float64(tf) * (ix.cfg.K1 + 1) / (float64(tf) + ix.cfg.K1*norm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	results := make([]entities.ScoredChunk, 0, len(scores))
	for id, score := range scores {
		results = append(results, entities.ScoredChunk{ChunkID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (ix *Index) tokenizeDoc(text string) []string {
	if ix.cfg.FilterStopwords {
		return tokenize.ContentWords(text)
	}
	return tokenize.Words(text)
}

// idf uses the non-negative formulation ln(1 + (N-df+0.5)/(df+0.5)).
func idf(n, df int) float64 {
	return math.Log1p((float64(n) - float64(df) + 0.5) / (float64(df) + 0.5))
}
