// Package chunkstore provides ChunkRepository adapters: an in-memory store
// for tests and small corpora, and a SQLite-backed persistent store.
package chunkstore

import (
	"context"
	"sort"
	"sync"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// MemoryStore is a thread-safe in-memory chunk repository.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]entities.Chunk
	docs   map[string]*entities.Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string]entities.Chunk),
		docs:   make(map[string]*entities.Document),
	}
}

// InsertDocument records a document.
func (s *MemoryStore) InsertDocument(ctx context.Context, doc *entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

// UpdateDocumentStatus moves a document through the ingestion lifecycle.
func (s *MemoryStore) UpdateDocumentStatus(ctx context.Context, documentID string, status entities.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[documentID]; ok {
		doc.Status = status
	}
	return nil
}

// FindDocumentByFilename returns the document indexed under filename.
func (s *MemoryStore) FindDocumentByFilename(ctx context.Context, filename string) (*entities.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.Filename == filename {
			cp := *doc
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// Insert stores a chunk, replacing any prior chunk with the same id.
func (s *MemoryStore) Insert(ctx context.Context, chunk entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
	return nil
}

// Delete removes a document and all of its chunks.
func (s *MemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
	delete(s.docs, documentID)
	return nil
}

// List returns the chunks of a document ordered by position.
func (s *MemoryStore) List(ctx context.Context, documentID string) ([]entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// Documents returns copies of all document records.
func (s *MemoryStore) Documents() []*entities.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		cp := *doc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Get returns a chunk by id.
func (s *MemoryStore) Get(ctx context.Context, chunkID string) (entities.Chunk, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[chunkID]
	return c, ok, nil
}
