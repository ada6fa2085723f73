// Package usecases contains application business rules. Usecases orchestrate
// entities, the retrieval indices, and port interfaces; they contain no
// framework code.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/domain/ports"
	"github.com/documind-ai/documind-go/internal/guardrails"
	"github.com/documind-ai/documind-go/internal/retrieval/lexical"
	"github.com/documind-ai/documind-go/internal/retrieval/semantic"
	"github.com/documind-ai/documind-go/internal/tokenize"
)

// IngestConfig tunes document ingestion.
type IngestConfig struct {
	ChunkSize       int // characters per chunk
	ChunkOverlap    int
	ProviderTimeout time.Duration
	RetryBackoff    time.Duration
}

// DefaultIngestConfig returns the ingestion defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ChunkSize:       500,
		ChunkOverlap:    50,
		ProviderTimeout: 30 * time.Second,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// IngestUseCase turns raw document text into chunks, embeds them, persists
// them, and registers them with both retrieval indices.
type IngestUseCase struct {
	embedder ports.EmbeddingService
	repo     ports.ChunkRepository
	lexical  *lexical.Index
	semantic *semantic.Index
	cfg      IngestConfig
	logger   *logrus.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	repo ports.ChunkRepository,
	lex *lexical.Index,
	sem *semantic.Index,
	cfg IngestConfig,
	logger *logrus.Logger,
) *IngestUseCase {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 50
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
	return &IngestUseCase{
		embedder: embedder,
		repo:     repo,
		lexical:  lex,
		semantic: sem,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ingest processes a document: chunks it, embeds it, persists it, and indexes
// it. The document record moves pending -> indexed, or pending -> failed if
// any step errors; a failed ingest never leaves a partially indexed document.
// Re-ingesting a filename replaces the previous version: its chunks leave the
// store and both indices before the new ones are built.
func (uc *IngestUseCase) Ingest(ctx context.Context, filename, text string) (*entities.Document, error) {
	if err := uc.DeleteByFilename(ctx, filename); err != nil {
		return nil, err
	}

	doc := &entities.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    entities.DocumentPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	chunks := uc.chunkText(doc.ID, text)
	if len(chunks) == 0 {
		doc.Status = entities.DocumentIndexed
		if err := uc.repo.InsertDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("recording document: %w", err)
		}
		return doc, nil
	}

	if err := uc.repo.InsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("recording document: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := embedBatchWithRetry(ctx, uc.embedder, texts, uc.cfg.ProviderTimeout, uc.cfg.RetryBackoff)
	if err != nil {
		uc.markFailed(ctx, doc)
		return nil, err
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	piiChunks := 0
	for _, c := range chunks {
		if err := uc.repo.Insert(ctx, c); err != nil {
			uc.markFailed(ctx, doc)
			return nil, fmt.Errorf("storing chunk %s: %w", c.ID, err)
		}
		if len(guardrails.DetectPII(c.Text)) > 0 {
			piiChunks++
		}
	}
	if piiChunks > 0 {
		uc.logger.WithFields(logrus.Fields{
			"document": filename,
			"chunks":   piiChunks,
		}).Warn("PII detected in ingested chunks")
	}

	for _, c := range chunks {
		if err := uc.semantic.Add(c); err != nil {
			uc.rollbackIndexes(chunks)
			uc.markFailed(ctx, doc)
			return nil, fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
		uc.lexical.Add(c)
		doc.ChunkIDs = append(doc.ChunkIDs, c.ID)
	}

	doc.Status = entities.DocumentIndexed
	doc.UpdatedAt = time.Now()
	if err := uc.repo.UpdateDocumentStatus(ctx, doc.ID, entities.DocumentIndexed); err != nil {
		return nil, fmt.Errorf("updating document status: %w", err)
	}

	uc.logger.WithFields(logrus.Fields{
		"document": filename,
		"chunks":   len(chunks),
	}).Info("document indexed")
	return doc, nil
}

// Delete removes a document: its chunks leave both indices and the store.
// Subsequent searches never return its chunk ids.
func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	chunks, err := uc.repo.List(ctx, documentID)
	if err != nil {
		return fmt.Errorf("listing chunks: %w", err)
	}
	for _, c := range chunks {
		uc.lexical.Remove(c.ID)
		uc.semantic.Remove(c.ID)
	}
	if err := uc.repo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	uc.logger.WithField("document_id", documentID).Info("document deleted")
	return nil
}

// DeleteByFilename removes the document currently indexed under filename, if
// any. No-op when the filename has never been ingested.
func (uc *IngestUseCase) DeleteByFilename(ctx context.Context, filename string) error {
	doc, ok, err := uc.repo.FindDocumentByFilename(ctx, filename)
	if err != nil {
		return fmt.Errorf("resolving document %q: %w", filename, err)
	}
	if !ok {
		return nil
	}
	return uc.Delete(ctx, doc.ID)
}

func (uc *IngestUseCase) markFailed(ctx context.Context, doc *entities.Document) {
	doc.Status = entities.DocumentFailed
	if err := uc.repo.UpdateDocumentStatus(ctx, doc.ID, entities.DocumentFailed); err != nil {
		uc.logger.WithError(err).Warn("could not mark document failed")
	}
}

func (uc *IngestUseCase) rollbackIndexes(chunks []entities.Chunk) {
	for _, c := range chunks {
		uc.lexical.Remove(c.ID)
		uc.semantic.Remove(c.ID)
	}
}

// chunkText splits text into overlapping chunks, breaking at word boundaries
// where possible.
func (uc *IngestUseCase) chunkText(docID, text string) []entities.Chunk {
	content := strings.TrimSpace(text)
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	position := 0

	for start < len(content) {
		end := start + uc.cfg.ChunkSize
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			}
		}

		chunkText := strings.TrimSpace(content[start:end])
		if len(chunkText) > 0 {
			chunks = append(chunks, entities.Chunk{
				ID:         chunkID(docID, position),
				DocumentID: docID,
				Text:       chunkText,
				Position:   position,
				TokenCount: len(tokenize.Words(chunkText)),
			})
			position++
		}

		next := end - uc.cfg.ChunkOverlap
		if next <= start {
			next = end
		}
		if next >= len(content) {
			break
		}
		start = next
	}
	return chunks
}

// chunkID creates a deterministic id for a chunk.
func chunkID(docID string, position int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", docID, position)))
	return hex.EncodeToString(hash[:8])
}
