// Package semantic implements a dense vector index over chunk embeddings
// with brute-force cosine similarity search.
package semantic

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// Index is a thread-safe dense index. Its embedding dimension is fixed by
// the first vector indexed; mixing dimensionalities is a fatal configuration
// error.
type Index struct {
	mu     sync.RWMutex
	logger *logrus.Logger

	dim     int
	vectors map[string][]float32
}

// NewIndex creates an empty semantic index. The dimension locks in when the
// first chunk is indexed.
func NewIndex(logger *logrus.Logger) *Index {
	if logger == nil {
		logger = logrus.New()
	}
	return &Index{
		logger:  logger,
		vectors: make(map[string][]float32),
	}
}

// Add indexes a chunk whose embedding has already been computed. Indexing
// the same chunk id twice replaces the prior vector.
func (ix *Index) Add(chunk entities.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("chunk %s: %w: empty embedding", chunk.ID, entities.ErrDimensionMismatch)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(chunk.Embedding)
		ix.logger.WithField("dimension", ix.dim).Debug("semantic index dimension fixed")
	} else if len(chunk.Embedding) != ix.dim {
		return fmt.Errorf("chunk %s has dimension %d, index has %d: %w",
			chunk.ID, len(chunk.Embedding), ix.dim, entities.ErrDimensionMismatch)
	}

	vec := make([]float32, len(chunk.Embedding))
	copy(vec, chunk.Embedding)
	ix.vectors[chunk.ID] = vec
	return nil
}

// Remove drops a chunk from the index. Removing an unknown id is a no-op.
func (ix *Index) Remove(chunkID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.vectors, chunkID)
}

// Size returns the number of indexed vectors.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Dimension returns the fixed dimension, or 0 if nothing has been indexed.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Search returns up to k chunks by cosine similarity to the query vector,
// descending, ties broken by ascending chunk id. An empty index returns an
// empty result, never an error.
func (ix *Index) Search(query []float32, k int) ([]entities.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.vectors) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w",
			len(query), ix.dim, entities.ErrDimensionMismatch)
	}

	results := make([]entities.ScoredChunk, 0, len(ix.vectors))
	for id, vec := range ix.vectors {
		results = append(results, entities.ScoredChunk{ChunkID: id, Score: cosine(query, vec)})
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
	return results, nil
}

// cosine computes cosine similarity in [-1, 1]. Zero-magnitude vectors
// score 0 rather than erroring; they carry no direction to compare.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
