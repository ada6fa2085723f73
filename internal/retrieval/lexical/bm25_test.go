package lexical

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

func chunk(id, text string) entities.Chunk {
	return entities.Chunk{ID: id, DocumentID: "doc1", Text: text}
}

func TestSearch_RanksMatchingChunksFirst(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "the refund window lasts thirty days after purchase"))
	ix.Add(chunk("c2", "shipping rates depend on destination country"))
	ix.Add(chunk("c3", "refunds are processed within five business days"))

	results := ix.Search("refund window", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ChunkID)
}

func TestSearch_NoMatchingTermsReturnsEmpty(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "the refund window lasts thirty days"))

	results := ix.Search("zebra quantum", 10)
	assert.Empty(t, results)
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	assert.Empty(t, ix.Search("anything", 5))
}

func TestSearch_RespectsK(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	for i := 0; i < 10; i++ {
		ix.Add(chunk(fmt.Sprintf("c%02d", i), "contract termination clause details"))
	}

	results := ix.Search("termination clause", 3)
	assert.Len(t, results, 3)
}

func TestSearch_ScoresDescendingWithIDTieBreak(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	// Identical texts produce identical scores; order must fall back to id.
	ix.Add(chunk("c2", "termination clause"))
	ix.Add(chunk("c1", "termination clause"))
	ix.Add(chunk("c3", "termination clause and many additional words about other topics entirely"))

	results := ix.Search("termination clause", 10)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "c2", results[1].ChunkID)
}

func TestSearch_ScoresNonNegative(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "alpha beta gamma"))
	ix.Add(chunk("c2", "alpha delta"))
	ix.Add(chunk("c3", "alpha"))

	for _, r := range ix.Search("alpha", 10) {
		assert.GreaterOrEqual(t, r.Score, 0.0)
	}
}

func TestAdd_SameIDTwiceDoesNotDuplicate(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "refund policy"))
	ix.Add(chunk("c1", "refund policy"))

	results := ix.Search("refund", 10)
	require.Len(t, results, 1)
	assert.Equal(t, 1, ix.Size())
}

func TestAdd_SameIDReplacesText(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "refund policy"))
	ix.Add(chunk("c1", "shipping rates"))

	assert.Empty(t, ix.Search("refund", 10))
	assert.NotEmpty(t, ix.Search("shipping", 10))
}

func TestRemove_ChunkNeverReturnedAgain(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "refund policy details"))
	ix.Add(chunk("c2", "refund schedule"))

	ix.Remove("c1")

	for _, r := range ix.Search("refund", 10) {
		assert.NotEqual(t, "c1", r.ChunkID)
	}
	assert.Equal(t, 1, ix.Size())
}

func TestRemove_UnknownIDIsNoOp(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "some text"))
	ix.Remove("missing")
	assert.Equal(t, 1, ix.Size())
}

func TestSearch_RepeatedQueryTermsCountOnce(t *testing.T) {
	ix := NewIndex(DefaultConfig(), nil)
	ix.Add(chunk("c1", "refund window"))

	single := ix.Search("refund", 10)
	repeated := ix.Search("refund refund refund", 10)
	require.Len(t, single, 1)
	require.Len(t, repeated, 1)
	assert.InDelta(t, single[0].Score, repeated[0].Score, 1e-12)
}
