package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/documind-ai/documind-go/internal/domain/entities"
)

func TestLoad_ReadsTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("the refund window is thirty days"), 0o644))

	doc, text, err := NewTextLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, entities.DocumentPending, doc.Status)
	assert.Equal(t, "the refund window is thirty days", text)
}

func TestLoad_RejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	_, _, err := NewTextLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := NewTextLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewTextLoader().Load(ctx, "anything.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupportedExtensions(t *testing.T) {
	exts := NewTextLoader().SupportedExtensions()
	assert.Contains(t, exts, ".txt")
	assert.Contains(t, exts, ".md")
}

func TestLoad_ExtensionCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NOTES.TXT")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	_, text, err := NewTextLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "content", text)
}
