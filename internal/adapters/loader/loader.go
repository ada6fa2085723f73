// Package loader provides document loading adapters. Binary formats (PDF,
// DOCX) are parsed by external collaborators; this package handles the plain
// text formats the core ingests directly.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path. It returns a document
// shell in pending state plus the raw text; ingestion assigns the final id
// and chunking.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !l.supported(ext) {
		return nil, "", fmt.Errorf("unsupported file type %q", ext)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}

	doc := &entities.Document{
		Filename:  filepath.Base(path),
		Status:    entities.DocumentPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return doc, string(content), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

func (l *TextLoader) supported(ext string) bool {
	for _, e := range l.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}
