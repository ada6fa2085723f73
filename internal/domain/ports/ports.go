// Package ports defines interfaces for external collaborators.
// Usecases depend on these abstractions, not concrete implementations;
// adapters implement them. Providers are injected so tests can substitute
// deterministic stubs without network access.
package ports

import (
	"context"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// EmbeddingService turns text into a fixed-length numeric vector. It must be
// deterministic for identical input within a single index's lifetime.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionService generates an answer from a prompt and supporting context.
type CompletionService interface {
	// Complete returns the generated text and the token count consumed.
	Complete(ctx context.Context, prompt string, contexts []string) (string, int, error)
}

// ChunkRepository persists chunks and document records. The core treats this
// as a capability interface, not a specific storage technology.
type ChunkRepository interface {
	// InsertDocument records a document and its ingestion status.
	InsertDocument(ctx context.Context, doc *entities.Document) error

	// UpdateDocumentStatus moves a document through the ingestion lifecycle.
	UpdateDocumentStatus(ctx context.Context, documentID string, status entities.DocumentStatus) error

	// FindDocumentByFilename returns the document indexed under filename.
	FindDocumentByFilename(ctx context.Context, filename string) (*entities.Document, bool, error)

	// Insert stores a chunk.
	Insert(ctx context.Context, chunk entities.Chunk) error

	// Delete removes a document and all of its chunks.
	Delete(ctx context.Context, documentID string) error

	// List returns the ordered chunks of a document.
	List(ctx context.Context, documentID string) ([]entities.Chunk, error)

	// Get returns a chunk by id.
	Get(ctx context.Context, chunkID string) (entities.Chunk, bool, error)
}

// HistorySink receives evaluation summaries and per-query metrics as
// structured records for an external reporting layer. The core does not
// define that layer's schema.
type HistorySink interface {
	SaveEvalRun(ctx context.Context, summary entities.EvalSummary, results []entities.EvalResult) error
	SaveQueryMetrics(ctx context.Context, metrics entities.QueryMetrics) error
}

// DocumentLoader reads a document from disk.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, string, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for corpus changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
