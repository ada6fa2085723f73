// Package fusion merges the lexical and semantic rankings into one ordered
// result set using Reciprocal Rank Fusion. RRF needs no score-scale
// reconciliation between BM25 and cosine similarity: only rank position
// matters, so the fused ranking is invariant to rescaling either input.
package fusion

import (
	"sort"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// DefaultRRFK dampens rank-1 dominance while still rewarding high rank.
const DefaultRRFK = 60

// Engine fuses ranked retrieval lists.
type Engine struct {
	rrfK int
}

// NewEngine creates a fusion engine. A non-positive rrfK falls back to the
// default of 60.
func NewEngine(rrfK int) *Engine {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	return &Engine{rrfK: rrfK}
}

// Fuse merges the two rankings. Each chunk's fused score is the sum over the
// retrievers it appears in of 1/(rrfK+rank), rank starting at 1. Ordering is
// fused score descending; ties prefer chunks present in both rankings, then
// ascending chunk id. The output is truncated to kFinal entries.
func (e *Engine) Fuse(lexical, semantic []entities.ScoredChunk, kFinal int) []entities.RetrievalHit {
	if kFinal <= 0 {
		return nil
	}

	hits := make(map[string]*entities.RetrievalHit)
	for i, sc := range lexical {
		h := hits[sc.ChunkID]
		if h == nil {
			h = &entities.RetrievalHit{ChunkID: sc.ChunkID}
			hits[sc.ChunkID] = h
		}
		h.LexicalRank = i + 1
		h.FusedScore += 1.0 / float64(e.rrfK+i+1)
	}
	for i, sc := range semantic {
		h := hits[sc.ChunkID]
		if h == nil {
			h = &entities.RetrievalHit{ChunkID: sc.ChunkID}
			hits[sc.ChunkID] = h
		}
		h.SemanticRank = i + 1
		h.FusedScore += 1.0 / float64(e.rrfK+i+1)
	}
	if len(hits) == 0 {
		return nil
	}

	fused := make([]entities.RetrievalHit, 0, len(hits))
	for _, h := range hits {
		fused = append(fused, *h)
	}
	sort.Slice(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if a.InBoth() != b.InBoth() {
			return a.InBoth()
		}
		return a.ChunkID < b.ChunkID
	})
	if len(fused) > kFinal {
		fused = fused[:kFinal]
	}
	return fused
}
